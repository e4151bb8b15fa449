package solver

import "github.com/rbscholtus/mipcraft/internal/mip"

// IntegerStepSizeAdjuster replaces the last alteration of an improving
// integer move with the best step in the same direction, found by an
// exponential probe followed by binary refinement. Every trial is scored
// with the multi-variable fast path against the pre-move reference score,
// so each evaluation is O(|related constraints|).
type IntegerStepSizeAdjuster struct {
	model *mip.Model
}

// NewIntegerStepSizeAdjuster wires an adjuster to the model.
func NewIntegerStepSizeAdjuster(model *mip.Model) *IntegerStepSizeAdjuster {
	return &IntegerStepSizeAdjuster{model: model}
}

// Adjust rewrites the move's last alteration in place. The reference score
// must belong to the current (pre-move) solution.
func (a *IntegerStepSizeAdjuster) Adjust(move *mip.Move, reference mip.SolutionScore) {
	last := len(move.Alterations) - 1
	variable := &a.model.Variables[move.Alterations[last].Variable]
	original := variable.Value
	initialTarget := move.Alterations[last].Value

	direction := 1
	if initialTarget-original < 0 {
		direction = -1
	}

	if direction > 0 && initialTarget == variable.UpperBound {
		return
	}
	if direction < 0 && initialTarget == variable.LowerBound {
		return
	}

	trial := *move
	trial.Alterations = append([]mip.Alteration(nil), move.Alterations...)

	score := a.model.EvaluateMulti(&trial, reference)
	scoreMin := score.GlobalAugmentedObjective
	targetCandidate := initialTarget

	lowerBound := original
	upperBound := original
	previousImproving := original
	stepSize := 2
	target := original + direction*stepSize

	for {
		trial.Alterations[last].Value = target
		score = a.model.EvaluateMulti(&trial, reference)

		if score.GlobalAugmentedObjective < scoreMin {
			if direction > 0 {
				previousImproving = lowerBound
				lowerBound = maxOf(lowerBound, target)
			} else {
				previousImproving = upperBound
				upperBound = minOf(upperBound, target)
			}
			scoreMin = score.GlobalAugmentedObjective
			targetCandidate = target

			stepSize *= 2
			target = original + direction*stepSize
		} else {
			if direction > 0 {
				upperBound = target
			} else {
				lowerBound = target
			}
			break
		}

		// On a bound hit, widen the bracket back to the previous improving
		// point: the probe may have stepped past the optimum.
		if target <= variable.LowerBound {
			lowerBound = variable.LowerBound
			if direction < 0 {
				upperBound = previousImproving
			}
			break
		} else if target >= variable.UpperBound {
			upperBound = variable.UpperBound
			if direction > 0 {
				lowerBound = previousImproving
			}
			break
		}
	}

	// Binary refine on the bracketed interval: compare adjacent targets to
	// decide which half holds the optimum. Two evaluations per halving.
	evaluateAt := func(value int) float64 {
		trial.Alterations[last].Value = value
		return a.model.EvaluateMulti(&trial, reference).GlobalAugmentedObjective
	}

	for upperBound-lowerBound > 1 {
		mid := (lowerBound + upperBound) / 2
		atMid := evaluateAt(mid)
		atNext := evaluateAt(mid + 1)
		if atMid < atNext {
			upperBound = mid
		} else {
			lowerBound = mid + 1
		}
	}

	final := evaluateAt(lowerBound)
	if final < scoreMin {
		scoreMin = final
		targetCandidate = lowerBound
	}
	if upperBound != lowerBound {
		if alt := evaluateAt(upperBound); alt < scoreMin {
			targetCandidate = upperBound
		}
	}

	move.Alterations[last].Value = targetCandidate
}

func maxOf(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minOf(a, b int) int {
	if a < b {
		return a
	}
	return b
}
