package mip

import "math"

// ConstraintSense is the signed sense of a linear constraint. Equality
// constraints are both less-or-equal and greater-or-equal.
type ConstraintSense int

const (
	SenseLess    ConstraintSense = iota // expression <= 0
	SenseEqual                          // expression == 0
	SenseGreater                        // expression >= 0
)

// String returns the symbol of the constraint sense.
func (s ConstraintSense) String() string {
	switch s {
	case SenseLess:
		return "<="
	case SenseEqual:
		return "=="
	case SenseGreater:
		return ">="
	default:
		return "?"
	}
}

// ConstraintClass is the structural classification tag assigned during
// model setup. The search cores do not read it; selection-group detection,
// the solver's chain-move gate, and presolve-style passes key off it.
type ConstraintClass int

const (
	ClassGeneral ConstraintClass = iota
	ClassSingleton
	ClassSetPartitioning
	ClassSetPacking
	ClassSetCovering
	ClassCardinality
	ClassKnapsack
	ClassAggregation
	ClassPrecedence
	ClassVariableBound
)

// Constraint is one linear constraint of the model, normalized to
// "expression (sense) 0".
type Constraint struct {
	Index int
	Name  string
	Sense ConstraintSense
	Class ConstraintClass

	Expression Expression
	IsEnabled  bool

	// Cached evaluation state, refreshed by Model.Update after each commit.
	Value        float64
	PositivePart float64
	NegativePart float64
	Violation    float64

	// Per-side local penalty coefficients and the shared violation counter.
	LocalPenaltyCoefficientLess    float64
	LocalPenaltyCoefficientGreater float64
	ViolationCount                 int64
}

// IsLessOrEqual reports whether the less side of the constraint binds.
func (c *Constraint) IsLessOrEqual() bool {
	return c.Sense == SenseLess || c.Sense == SenseEqual
}

// IsGreaterOrEqual reports whether the greater side of the constraint binds.
func (c *Constraint) IsGreaterOrEqual() bool {
	return c.Sense == SenseGreater || c.Sense == SenseEqual
}

// IsViolative reports whether the cached violation exceeds the feasibility
// tolerance.
func (c *Constraint) IsViolative() bool {
	return c.Violation > Eps
}

// IsEvaluationIgnorable reports whether the single-variable fast path may
// skip this constraint entirely. Disabled constraints never contribute.
func (c *Constraint) IsEvaluationIgnorable() bool {
	return !c.IsEnabled
}

// Refresh recomputes the cached value, parts, and violation from the
// model's current variable values.
func (c *Constraint) Refresh(m *Model) {
	c.UpdateCache(c.Expression.Evaluate(m))
}

// UpdateCache installs a freshly evaluated constraint value and derives the
// violation parts from it.
func (c *Constraint) UpdateCache(value float64) {
	c.Value = value
	c.PositivePart = math.Max(value, 0.0)
	c.NegativePart = math.Max(-value, 0.0)

	violation := 0.0
	if c.IsLessOrEqual() {
		violation += c.PositivePart
	}
	if c.IsGreaterOrEqual() {
		violation += c.NegativePart
	}
	c.Violation = violation
}

// ResetLocalPenaltyCoefficients restores both sides to the given default.
func (c *Constraint) ResetLocalPenaltyCoefficients(initial float64) {
	c.LocalPenaltyCoefficientLess = initial
	c.LocalPenaltyCoefficientGreater = initial
}

// ResetViolationCount clears the dual frequency counter.
func (c *Constraint) ResetViolationCount() {
	c.ViolationCount = 0
}
