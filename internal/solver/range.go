package solver

import "math"

// Range tracks the minimum and maximum of a stream of values.
type Range struct {
	min   float64
	max   float64
	isSet bool
}

// Update folds one value into the range.
func (r *Range) Update(value float64) {
	if !r.isSet {
		r.min = value
		r.max = value
		r.isSet = true
		return
	}
	if value < r.min {
		r.min = value
	}
	if value > r.max {
		r.max = value
	}
}

// Min returns the smallest observed value, or math.MaxFloat64 before any
// update.
func (r *Range) Min() float64 {
	if !r.isSet {
		return math.MaxFloat64
	}
	return r.min
}

// Max returns the largest observed value, or -math.MaxFloat64 before any
// update.
func (r *Range) Max() float64 {
	if !r.isSet {
		return -math.MaxFloat64
	}
	return r.max
}

// Width returns max - min, or zero before any update.
func (r *Range) Width() float64 {
	if !r.isSet {
		return 0.0
	}
	return r.max - r.min
}

// MaxAbs returns the largest absolute observed value, or zero before any
// update.
func (r *Range) MaxAbs() float64 {
	if !r.isSet {
		return 0.0
	}
	return math.Max(math.Abs(r.min), math.Abs(r.max))
}
