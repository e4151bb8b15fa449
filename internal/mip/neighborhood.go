package mip

import (
	"math/rand"
	"sync"
)

// Acceptance filters which candidate moves a generator keeps during an
// update, implementing improvability screening.
type Acceptance struct {
	All                   bool
	ObjectiveImprovable   bool
	FeasibilityImprovable bool
}

// AcceptAll keeps every move.
var AcceptAll = Acceptance{All: true, ObjectiveImprovable: true, FeasibilityImprovable: true}

// acceptsVariable applies the screening filter to one altered variable.
func (a Acceptance) acceptsVariable(v *Variable) bool {
	if a.All {
		return true
	}
	if a.ObjectiveImprovable && v.IsObjectiveImprovable {
		return true
	}
	if a.FeasibilityImprovable && v.IsFeasibilityImprovable {
		return true
	}
	return false
}

// MoveGenerator enumerates candidate moves of one kind. Implementations
// must never emit zero-alteration moves.
type MoveGenerator interface {
	Sense() MoveSense
	IsEnabled() bool
	Enable()
	Disable()

	// UpdateStructure rebuilds any cached structure after the model's
	// variable/constraint topology changed.
	UpdateStructure(m *Model)

	// Enumerate appends candidate moves for the current solution, applying
	// the acceptance filter.
	Enumerate(m *Model, accept Acceptance, out []*Move) []*Move
}

// generatorBase carries the shared enable flag.
type generatorBase struct {
	enabled bool
}

func (g *generatorBase) IsEnabled() bool { return g.enabled }
func (g *generatorBase) Enable()         { g.enabled = true }
func (g *generatorBase) Disable()        { g.enabled = false }

// Neighborhood aggregates the move generators and the flattened candidate
// list the search cores iterate. The chain-move store is owned here and
// mutated only between inner iterations.
type Neighborhood struct {
	model *Model

	binary      *BinaryMoveGenerator
	integer     *IntegerMoveGenerator
	selection   *SelectionMoveGenerator
	chain       *ChainMoveStore
	userDefined *UserDefinedMoveGenerator

	moves                []*Move
	numberOfUpdatedMoves int64
}

// NewNeighborhood wires a neighborhood for the given model. Generators
// start disabled; the solver enables the default set at setup.
func NewNeighborhood(model *Model) *Neighborhood {
	n := &Neighborhood{
		model:       model,
		binary:      &BinaryMoveGenerator{},
		integer:     &IntegerMoveGenerator{},
		selection:   &SelectionMoveGenerator{},
		chain:       NewChainMoveStore(),
		userDefined: &UserDefinedMoveGenerator{},
	}
	model.AttachNeighborhood(n)
	return n
}

// Binary returns the binary-flip generator.
func (n *Neighborhood) Binary() *BinaryMoveGenerator { return n.binary }

// Integer returns the integer-step generator.
func (n *Neighborhood) Integer() *IntegerMoveGenerator { return n.integer }

// Selection returns the selection-swap generator.
func (n *Neighborhood) Selection() *SelectionMoveGenerator { return n.selection }

// Chain returns the chain-move store.
func (n *Neighborhood) Chain() *ChainMoveStore { return n.chain }

// UserDefined returns the user-defined move hook.
func (n *Neighborhood) UserDefined() *UserDefinedMoveGenerator { return n.userDefined }

// generators returns every generator in enumeration order.
func (n *Neighborhood) generators() []MoveGenerator {
	return []MoveGenerator{n.binary, n.integer, n.selection, n.chain, n.userDefined}
}

// UpdateStructure rebuilds generator caches after a structural change.
func (n *Neighborhood) UpdateStructure() {
	for _, g := range n.generators() {
		g.UpdateStructure(n.model)
	}
}

// UpdateMoves refreshes the flattened candidate list for the current
// solution. Related-constraint lists of multi-variable moves are rebuilt in
// a chunked parallel region when enabled.
func (n *Neighborhood) UpdateMoves(accept Acceptance, parallel bool, workers int) {
	n.moves = n.moves[:0]
	for _, g := range n.generators() {
		if !g.IsEnabled() {
			continue
		}
		n.moves = g.Enumerate(n.model, accept, n.moves)
	}
	n.numberOfUpdatedMoves += int64(len(n.moves))

	n.setupRelatedConstraints(parallel, workers)
}

// setupRelatedConstraints rebuilds related-constraint lists for moves that
// do not carry them yet.
func (n *Neighborhood) setupRelatedConstraints(parallel bool, workers int) {
	if !parallel || workers <= 1 || len(n.moves) < 2*workers {
		for _, mv := range n.moves {
			if len(mv.RelatedConstraints) == 0 {
				mv.SetupRelatedConstraints(n.model)
			}
		}
		return
	}

	chunk := (len(n.moves) + workers - 1) / workers
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunk
		if start >= len(n.moves) {
			break
		}
		end := minInt(start+chunk, len(n.moves))
		wg.Add(1)
		go func(moves []*Move) {
			defer wg.Done()
			for _, mv := range moves {
				if len(mv.RelatedConstraints) == 0 {
					mv.SetupRelatedConstraints(n.model)
				}
			}
		}(n.moves[start:end])
	}
	wg.Wait()
}

// Moves returns the current flattened candidate list.
func (n *Neighborhood) Moves() []*Move {
	return n.moves
}

// Truncate limits the candidate list to the first count moves.
func (n *Neighborhood) Truncate(count int) {
	if count < len(n.moves) {
		n.moves = n.moves[:count]
	}
}

// ShuffleMoves randomizes the candidate order.
func (n *Neighborhood) ShuffleMoves(rng *rand.Rand) {
	rng.Shuffle(len(n.moves), func(i, j int) {
		n.moves[i], n.moves[j] = n.moves[j], n.moves[i]
	})
}

// NumberOfUpdatedMoves returns the cumulative count of generated moves.
func (n *Neighborhood) NumberOfUpdatedMoves() int64 {
	return n.numberOfUpdatedMoves
}

// IsEnabledSpecialNeighborhoodMove reports whether any special generator is
// currently enabled.
func (n *Neighborhood) IsEnabledSpecialNeighborhoodMove() bool {
	return n.chain.IsEnabled()
}

// ResetSpecialNeighborhoodMovesAvailability re-arms every stored special
// move for the next round.
func (n *Neighborhood) ResetSpecialNeighborhoodMovesAvailability() {
	n.chain.ResetAvailability()
}

// BinaryMoveGenerator flips each mutable 0/1 variable.
type BinaryMoveGenerator struct {
	generatorBase
}

// Sense returns the move kind.
func (g *BinaryMoveGenerator) Sense() MoveSense { return MoveSenseBinary }

// UpdateStructure is a no-op; binary flips carry no cached structure.
func (g *BinaryMoveGenerator) UpdateStructure(*Model) {}

// Enumerate appends one flip move per accepted mutable binary variable.
func (g *BinaryMoveGenerator) Enumerate(m *Model, accept Acceptance, out []*Move) []*Move {
	for i := range m.Variables {
		v := &m.Variables[i]
		if v.Sense != SenseBinary || !v.IsMutable() {
			continue
		}
		if !accept.acceptsVariable(v) {
			continue
		}
		mv := &Move{
			Alterations:       []Alteration{{Variable: i, Value: 1 - v.Value}},
			Sense:             MoveSenseBinary,
			IsUnivariableMove: true,
			IsAvailable:       true,
		}
		out = append(out, mv)
	}
	return out
}

// IntegerMoveGenerator steps each mutable integer variable by +-1 and by
// half-jumps toward its bounds.
type IntegerMoveGenerator struct {
	generatorBase
}

// Sense returns the move kind.
func (g *IntegerMoveGenerator) Sense() MoveSense { return MoveSenseInteger }

// UpdateStructure is a no-op; integer steps carry no cached structure.
func (g *IntegerMoveGenerator) UpdateStructure(*Model) {}

// Enumerate appends step moves per accepted mutable integer variable.
func (g *IntegerMoveGenerator) Enumerate(m *Model, accept Acceptance, out []*Move) []*Move {
	for i := range m.Variables {
		v := &m.Variables[i]
		if v.Sense != SenseInteger || !v.IsMutable() {
			continue
		}
		if !accept.acceptsVariable(v) {
			continue
		}
		targets := make([]int, 0, 4)
		if v.Value < v.UpperBound {
			targets = append(targets, v.Value+1)
		}
		if v.Value > v.LowerBound {
			targets = append(targets, v.Value-1)
		}
		if upperHalf := (v.Value + v.UpperBound) / 2; upperHalf > v.Value+1 {
			targets = append(targets, upperHalf)
		}
		if lowerHalf := (v.Value + v.LowerBound) / 2; lowerHalf < v.Value-1 {
			targets = append(targets, lowerHalf)
		}
		for _, target := range targets {
			mv := &Move{
				Alterations:       []Alteration{{Variable: i, Value: target}},
				Sense:             MoveSenseInteger,
				IsUnivariableMove: true,
				IsAvailable:       true,
			}
			out = append(out, mv)
		}
	}
	return out
}

// SelectionMoveGenerator swaps the selected member of each "exactly one"
// group with every other member.
type SelectionMoveGenerator struct {
	generatorBase
}

// Sense returns the move kind.
func (g *SelectionMoveGenerator) Sense() MoveSense { return MoveSenseSelection }

// UpdateStructure is a no-op; group metadata lives on the model.
func (g *SelectionMoveGenerator) UpdateStructure(*Model) {}

// Enumerate appends one swap per group member other than the selected one.
func (g *SelectionMoveGenerator) Enumerate(m *Model, accept Acceptance, out []*Move) []*Move {
	for _, members := range m.SelectionGroups {
		selected := -1
		for _, vi := range members {
			if m.Variables[vi].Value == 1 {
				selected = vi
				break
			}
		}
		if selected < 0 {
			continue
		}
		for _, vi := range members {
			if vi == selected || m.Variables[vi].IsFixed {
				continue
			}
			if !accept.All && !accept.acceptsVariable(&m.Variables[vi]) &&
				!accept.acceptsVariable(&m.Variables[selected]) {
				continue
			}
			mv := &Move{
				Alterations: []Alteration{
					{Variable: selected, Value: 0},
					{Variable: vi, Value: 1},
				},
				Sense:           MoveSenseSelection,
				IsSelectionMove: true,
				IsAvailable:     true,
			}
			out = append(out, mv)
		}
	}
	return out
}

// UserDefinedMoveGenerator delegates enumeration to a caller-provided hook.
type UserDefinedMoveGenerator struct {
	generatorBase
	enumerate func(m *Model, out []*Move) []*Move
}

// Sense returns the move kind.
func (g *UserDefinedMoveGenerator) Sense() MoveSense { return MoveSenseUserDefined }

// SetEnumerator installs the hook and enables the generator.
func (g *UserDefinedMoveGenerator) SetEnumerator(enumerate func(m *Model, out []*Move) []*Move) {
	g.enumerate = enumerate
	g.enabled = enumerate != nil
}

// UpdateStructure is a no-op; the hook owns any structure.
func (g *UserDefinedMoveGenerator) UpdateStructure(*Model) {}

// Enumerate appends the hook's moves, dropping empty and unavailable ones.
func (g *UserDefinedMoveGenerator) Enumerate(m *Model, accept Acceptance, out []*Move) []*Move {
	if g.enumerate == nil {
		return out
	}
	start := len(out)
	out = g.enumerate(m, out)
	kept := out[:start]
	for _, mv := range out[start:] {
		if len(mv.Alterations) == 0 || !mv.IsAvailable {
			continue
		}
		mv.Sense = MoveSenseUserDefined
		kept = append(kept, mv)
	}
	return kept
}
