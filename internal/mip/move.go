package mip

import "sort"

// MoveSense identifies the neighborhood a move came from.
type MoveSense int

const (
	MoveSenseBinary MoveSense = iota
	MoveSenseInteger
	MoveSenseSelection
	MoveSenseChain
	MoveSenseTwoFlip
	MoveSenseExclusiveOr
	MoveSenseExclusiveNor
	MoveSenseAggregation
	MoveSensePrecedence
	MoveSenseVariableBound
	MoveSenseSoftSelection
	MoveSenseUserDefined
)

// String returns the name of the move sense.
func (s MoveSense) String() string {
	switch s {
	case MoveSenseBinary:
		return "Binary"
	case MoveSenseInteger:
		return "Integer"
	case MoveSenseSelection:
		return "Selection"
	case MoveSenseChain:
		return "Chain"
	case MoveSenseTwoFlip:
		return "TwoFlip"
	case MoveSenseExclusiveOr:
		return "ExclusiveOr"
	case MoveSenseExclusiveNor:
		return "ExclusiveNor"
	case MoveSenseAggregation:
		return "Aggregation"
	case MoveSensePrecedence:
		return "Precedence"
	case MoveSenseVariableBound:
		return "VariableBound"
	case MoveSenseSoftSelection:
		return "SoftSelection"
	case MoveSenseUserDefined:
		return "UserDefined"
	default:
		return "Unknown"
	}
}

// Alteration assigns a new value to one variable.
type Alteration struct {
	Variable int
	Value    int
}

// Move is one candidate transition between solutions: an ordered list of
// alterations plus the union of constraints touching any altered variable.
// Moves are produced by the neighborhood and consumed within one iteration.
// A move with no alterations is illegal and must be rejected at enumeration.
type Move struct {
	Alterations        []Alteration
	Sense              MoveSense
	RelatedConstraints []int

	IsUnivariableMove         bool
	IsSelectionMove           bool
	IsSpecialNeighborhoodMove bool
	IsAvailable               bool

	// OverlapRate measures how strongly the fused parts of a chain move
	// share constraints; higher values indicate structurally tighter moves.
	OverlapRate float64
}

// valueOf returns the value the move assigns to the variable, falling back
// to the model's current value for untouched variables.
func (mv *Move) valueOf(m *Model, variable int) int {
	for _, a := range mv.Alterations {
		if a.Variable == variable {
			return a.Value
		}
	}
	return m.Variables[variable].Value
}

// HasDuplicateVariable reports whether any variable appears in more than
// one alteration.
func (mv *Move) HasDuplicateVariable() bool {
	for i := range mv.Alterations {
		for j := i + 1; j < len(mv.Alterations); j++ {
			if mv.Alterations[i].Variable == mv.Alterations[j].Variable {
				return true
			}
		}
	}
	return false
}

// SetupRelatedConstraints rebuilds the related-constraint list as the
// sorted, deduplicated union over all altered variables.
func (mv *Move) SetupRelatedConstraints(m *Model) {
	mv.RelatedConstraints = mv.RelatedConstraints[:0]
	for _, a := range mv.Alterations {
		for _, s := range m.Variables[a.Variable].ConstraintSensitivities {
			mv.RelatedConstraints = append(mv.RelatedConstraints, s.Constraint)
		}
	}
	sort.Ints(mv.RelatedConstraints)
	mv.RelatedConstraints = dedupSortedInts(mv.RelatedConstraints)
}

// Fuse concatenates two moves into a chain candidate, computing the overlap
// rate of their related-constraint sets. The first alteration's variable
// index decides canonical ordering at the call site.
func Fuse(first, second *Move, m *Model) Move {
	fused := Move{
		Sense:                     MoveSenseChain,
		IsSpecialNeighborhoodMove: true,
		IsAvailable:               true,
	}
	fused.Alterations = append(fused.Alterations, first.Alterations...)
	fused.Alterations = append(fused.Alterations, second.Alterations...)
	fused.SetupRelatedConstraints(m)

	fused.OverlapRate = overlapRate(first.RelatedConstraints, second.RelatedConstraints)
	return fused
}

// Inverse returns the move that flips every binary alteration back.
func (mv *Move) Inverse() Move {
	inverse := *mv
	inverse.Alterations = make([]Alteration, len(mv.Alterations))
	for i, a := range mv.Alterations {
		inverse.Alterations[i] = Alteration{Variable: a.Variable, Value: 1 - a.Value}
	}
	inverse.RelatedConstraints = append([]int(nil), mv.RelatedConstraints...)
	return inverse
}

// overlapRate returns |intersection| / |union| of two sorted index sets.
// Both sets empty yields zero.
func overlapRate(a, b []int) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0.0
	}
	i, j, common := 0, 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			common++
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	union := len(a) + len(b) - common
	if union == 0 {
		return 0.0
	}
	return float64(common) / float64(union)
}

// dedupSortedInts removes adjacent duplicates in place.
func dedupSortedInts(values []int) []int {
	if len(values) == 0 {
		return values
	}
	out := values[:1]
	for _, v := range values[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
