package mip

import "math"

// Evaluate scores a move against the model from scratch, walking every
// enabled constraint. A nil or empty move scores the current solution.
func (m *Model) Evaluate(move *Move) SolutionScore {
	totalViolation := 0.0
	localPenalty := 0.0
	isFeasibilityImprovable := false

	for i := range m.Constraints {
		c := &m.Constraints[i]
		if !c.IsEnabled {
			continue
		}
		value := c.Value
		if move != nil && len(move.Alterations) > 0 {
			value = c.Expression.EvaluateMove(m, move)
		}
		positivePart := math.Max(value, 0.0)
		negativePart := math.Max(-value, 0.0)

		if c.IsLessOrEqual() {
			violation := positivePart
			totalViolation += violation
			if violation+Eps < c.PositivePart {
				isFeasibilityImprovable = true
			}
			localPenalty += violation * c.LocalPenaltyCoefficientLess
		}
		if c.IsGreaterOrEqual() {
			violation := negativePart
			totalViolation += violation
			if violation+Eps < c.NegativePart {
				isFeasibilityImprovable = true
			}
			localPenalty += violation * c.LocalPenaltyCoefficientGreater
		}
	}

	return m.finishScore(move, totalViolation, localPenalty, isFeasibilityImprovable)
}

// EvaluateSingle scores a single-variable move incrementally against the
// reference score, walking only the altered variable's constraint list.
func (m *Model) EvaluateSingle(move *Move, current SolutionScore) SolutionScore {
	totalViolation := current.TotalViolation
	localPenalty := current.LocalPenalty

	alteration := move.Alterations[0]
	variable := &m.Variables[alteration.Variable]
	valueDiff := float64(alteration.Value - variable.Value)

	for _, s := range variable.ConstraintSensitivities {
		c := &m.Constraints[s.Constraint]
		if c.IsEvaluationIgnorable() {
			continue
		}
		value := c.Value + s.Sensitivity*valueDiff

		if c.IsLessOrEqual() {
			violationDiff := math.Max(value, 0.0) - c.PositivePart
			totalViolation += violationDiff
			localPenalty += violationDiff * c.LocalPenaltyCoefficientLess
		}
		if c.IsGreaterOrEqual() {
			violationDiff := math.Max(-value, 0.0) - c.NegativePart
			totalViolation += violationDiff
			localPenalty += violationDiff * c.LocalPenaltyCoefficientGreater
		}
	}

	score := m.finishScore(move, totalViolation, localPenalty, true)
	return score
}

// EvaluateSelection scores a selection swap incrementally, iterating the
// group's shared related-constraint window once and skipping constraints
// whose value is unchanged.
func (m *Model) EvaluateSelection(move *Move, current SolutionScore) SolutionScore {
	totalViolation := current.TotalViolation
	localPenalty := current.LocalPenalty
	isFeasibilityImprovable := false

	first := &m.Variables[move.Alterations[0].Variable]
	second := &m.Variables[move.Alterations[1].Variable]

	indexMin := mergeWindowBound(first.RelatedSelectionConstraintMin, second.RelatedSelectionConstraintMin, true)
	indexMax := mergeWindowBound(first.RelatedSelectionConstraintMax, second.RelatedSelectionConstraintMax, false)

	if indexMin >= 0 && indexMax >= 0 {
		disjoint := first.RelatedSelectionConstraintMax < second.RelatedSelectionConstraintMin ||
			second.RelatedSelectionConstraintMax < first.RelatedSelectionConstraintMin

		if disjoint {
			// The two windows never meet: treat each alteration as an
			// independent single-variable update.
			for _, a := range move.Alterations {
				v := &m.Variables[a.Variable]
				valueDiff := float64(a.Value - v.Value)
				for _, s := range v.ConstraintSensitivities {
					c := &m.Constraints[s.Constraint]
					if !c.IsEnabled {
						continue
					}
					value := c.Value + s.Sensitivity*valueDiff
					if c.IsLessOrEqual() {
						violationDiff := math.Max(value, 0.0) - c.PositivePart
						totalViolation += violationDiff
						localPenalty += violationDiff * c.LocalPenaltyCoefficientLess
					}
					if c.IsGreaterOrEqual() {
						violationDiff := math.Max(-value, 0.0) - c.NegativePart
						totalViolation += violationDiff
						localPenalty += violationDiff * c.LocalPenaltyCoefficientGreater
					}
				}
			}
			isFeasibilityImprovable = true
		} else {
			related := m.SelectionRelatedConstraints(first.SelectionGroup)
			for pos := indexMin; pos <= indexMax; pos++ {
				c := &m.Constraints[related[pos]]
				if !c.IsEnabled {
					continue
				}
				value := c.Expression.EvaluateMove(m, move)
				if math.Abs(value-c.Value) < Eps10 {
					continue
				}

				violationDiffPositive := 0.0
				if c.IsLessOrEqual() {
					violationDiffPositive = math.Max(value, 0.0) - c.PositivePart
				}
				violationDiffNegative := 0.0
				if c.IsGreaterOrEqual() {
					violationDiffNegative = math.Max(-value, 0.0) - c.NegativePart
				}
				violationDiff := violationDiffPositive + violationDiffNegative
				localPenalty += violationDiffPositive*c.LocalPenaltyCoefficientLess +
					violationDiffNegative*c.LocalPenaltyCoefficientGreater
				totalViolation += violationDiff
				if violationDiff < -Eps {
					isFeasibilityImprovable = true
				}
			}
		}
	}

	return m.finishScore(move, totalViolation, localPenalty, isFeasibilityImprovable)
}

// EvaluateMulti scores a multi-variable move incrementally, fully
// re-evaluating each related constraint under the move's overrides.
func (m *Model) EvaluateMulti(move *Move, current SolutionScore) SolutionScore {
	totalViolation := current.TotalViolation
	localPenalty := current.LocalPenalty
	isFeasibilityImprovable := false

	for _, ci := range move.RelatedConstraints {
		c := &m.Constraints[ci]
		if !c.IsEnabled {
			continue
		}
		value := c.Expression.EvaluateMove(m, move)
		if math.Abs(value-c.Value) < Eps10 {
			continue
		}

		violationDiffPositive := 0.0
		if c.IsLessOrEqual() {
			violationDiffPositive = math.Max(value, 0.0) - c.PositivePart
		}
		violationDiffNegative := 0.0
		if c.IsGreaterOrEqual() {
			violationDiffNegative = math.Max(-value, 0.0) - c.NegativePart
		}
		violationDiff := violationDiffPositive + violationDiffNegative
		localPenalty += violationDiffPositive*c.LocalPenaltyCoefficientLess +
			violationDiffNegative*c.LocalPenaltyCoefficientGreater
		totalViolation += violationDiff
		if violationDiff < -Eps {
			isFeasibilityImprovable = true
		}
	}

	return m.finishScore(move, totalViolation, localPenalty, isFeasibilityImprovable)
}

// finishScore derives the objective fields shared by every evaluation path.
func (m *Model) finishScore(move *Move, totalViolation, localPenalty float64, isFeasibilityImprovable bool) SolutionScore {
	sign := m.Sign()

	objective := 0.0
	if m.Objective.IsDefined {
		objective = m.Objective.Value * sign
		if move != nil && len(move.Alterations) > 0 {
			objective += m.Objective.Expression.EvaluateDiff(m, move) * sign
		}
	}
	objectiveImprovement := 0.0
	if m.Objective.IsDefined {
		objectiveImprovement = m.Objective.Value*sign - objective
	}

	globalPenalty := totalViolation * m.GlobalPenaltyCoefficient

	return SolutionScore{
		Objective:                objective,
		ObjectiveImprovement:     objectiveImprovement,
		TotalViolation:           totalViolation,
		LocalPenalty:             localPenalty,
		GlobalPenalty:            globalPenalty,
		LocalAugmentedObjective:  objective + localPenalty,
		GlobalAugmentedObjective: objective + globalPenalty,
		IsFeasible:               !(totalViolation > Eps),
		IsObjectiveImprovable:    objectiveImprovement > Eps,
		IsFeasibilityImprovable:  isFeasibilityImprovable,
	}
}

// mergeWindowBound combines two optional window bounds; -1 means absent.
func mergeWindowBound(a, b int, takeMin bool) int {
	switch {
	case a < 0 && b >= 0:
		return b
	case a >= 0 && b < 0:
		return a
	case a >= 0 && b >= 0:
		if takeMin == (a < b) {
			return a
		}
		return b
	default:
		return -1
	}
}

// ComputeLagrangian evaluates the Lagrangian at the current variable values
// for the given multiplier vector (one entry per constraint).
func (m *Model) ComputeLagrangian(dual []float64) float64 {
	lagrangian := m.Objective.Value
	for i := range m.Constraints {
		lagrangian += dual[i] * m.Constraints[i].Value
	}
	return lagrangian
}

// ComputeNaiveDualBound bounds the objective by relaxing every constraint:
// each variable sits on whichever bound favors the objective.
func (m *Model) ComputeNaiveDualBound() float64 {
	bound := m.Objective.Expression.Constant
	for _, t := range m.Objective.Expression.Terms {
		v := &m.Variables[t.Variable]
		switch {
		case v.IsFixed:
			bound += float64(v.Value) * t.Coefficient
		case m.IsMinimization == (t.Coefficient > 0):
			bound += float64(v.LowerBound) * t.Coefficient
		default:
			bound += float64(v.UpperBound) * t.Coefficient
		}
	}
	return bound
}
