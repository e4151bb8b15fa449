package solver

import (
	"math/rand"

	"github.com/rbscholtus/mipcraft/internal/mip"
)

// Memory carries the recency/frequency state of the search: per-variable
// update counts and tabu tags, per-constraint violation counts, and the
// primal/dual intensity scalars derived from them.
//
// Intensity is the concentration measure sum(x_i^2) / (sum(x_i))^2 over the
// counters; it rises toward 1 when few variables (constraints) dominate the
// updates (violations). Both numerators are maintained incrementally with
// the identity (x+1)^2 = x^2 + 2x + 1.
type Memory struct {
	model *mip.Model

	totalUpdateCount           int64
	totalUpdateCountReciprocal float64

	totalViolationCount           int64
	totalViolationCountReciprocal float64

	primalIntensityNumerator float64
	primalIntensity          float64

	dualIntensityNumerator float64
	dualIntensity          float64
}

// NewMemory resets all counters on the model and returns a fresh memory.
func NewMemory(model *mip.Model) *Memory {
	m := &Memory{
		model:                         model,
		totalUpdateCountReciprocal:    1.0,
		totalViolationCountReciprocal: 1.0,
	}
	for i := range model.Variables {
		model.Variables[i].ResetLocalLastUpdateIteration()
		model.Variables[i].ResetUpdateCount()
	}
	for i := range model.Constraints {
		model.Constraints[i].ResetViolationCount()
	}
	return m
}

// PrimalIntensity returns the concentration of variable updates in [0, 1].
func (m *Memory) PrimalIntensity() float64 {
	return m.primalIntensity
}

// DualIntensity returns the concentration of constraint violations in
// [0, 1].
func (m *Memory) DualIntensity() float64 {
	return m.dualIntensity
}

// TotalUpdateCount returns the number of alterations recorded so far.
func (m *Memory) TotalUpdateCount() int64 {
	return m.totalUpdateCount
}

// TotalUpdateCountReciprocal returns 1/max(1, total update count).
func (m *Memory) TotalUpdateCountReciprocal() float64 {
	return m.totalUpdateCountReciprocal
}

// Update records a committed move: each altered variable's update count
// ticks and its tabu tag becomes the iteration jittered by
// uniform(-randomWidth, +randomWidth); each currently violative
// constraint's violation count ticks. With randomWidth zero the update is
// deterministic and rng may be nil.
func (m *Memory) Update(move *mip.Move, iteration, randomWidth int, rng *rand.Rand) {
	for _, a := range move.Alterations {
		randomness := 0
		if randomWidth > 0 && rng != nil {
			randomness = rng.Intn(2*randomWidth+1) - randomWidth
		}
		v := &m.model.Variables[a.Variable]
		v.LocalLastUpdateIteration = iteration + randomness
		v.GlobalLastUpdateIteration = m.totalUpdateCount

		m.primalIntensityNumerator += 2.0*float64(v.UpdateCount) + 1.0
		v.UpdateCount++
		m.totalUpdateCount++
	}

	for _, ci := range m.model.ViolativeConstraints() {
		c := &m.model.Constraints[ci]
		m.dualIntensityNumerator += 2.0*float64(c.ViolationCount) + 1.0
		c.ViolationCount++
		m.totalViolationCount++
	}

	m.totalUpdateCountReciprocal = 1.0 / float64(max64(1, m.totalUpdateCount))
	m.primalIntensity = m.primalIntensityNumerator *
		m.totalUpdateCountReciprocal * m.totalUpdateCountReciprocal

	m.totalViolationCountReciprocal = 1.0 / float64(max64(1, m.totalViolationCount))
	m.dualIntensity = m.dualIntensityNumerator *
		m.totalViolationCountReciprocal * m.totalViolationCountReciprocal
}

// ResetLocalLastUpdateIterations clears every tabu tag to the sentinel so
// all moves are permissible at the start of a fresh round.
func (m *Memory) ResetLocalLastUpdateIterations() {
	for i := range m.model.Variables {
		m.model.Variables[i].ResetLocalLastUpdateIteration()
	}
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
