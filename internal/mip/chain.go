package mip

import (
	"math/rand"
	"sort"
)

// ChainMoveReduceMode selects how an over-capacity chain store is trimmed.
type ChainMoveReduceMode int

const (
	// ChainMoveReduceOverlapRate drops the highest-overlap moves first.
	ChainMoveReduceOverlapRate ChainMoveReduceMode = iota
	// ChainMoveReduceShuffle trims after a random shuffle.
	ChainMoveReduceShuffle
)

// ChainMoveStore keeps chain moves synthesized by the tabu core from pairs
// of recent moves. It is a MoveGenerator: enumeration hands out the stored
// moves still available in the current round. Mutation happens only between
// inner iterations.
type ChainMoveStore struct {
	generatorBase
	moves []*Move
}

// NewChainMoveStore returns an empty store.
func NewChainMoveStore() *ChainMoveStore {
	return &ChainMoveStore{}
}

// Sense returns the move kind.
func (s *ChainMoveStore) Sense() MoveSense { return MoveSenseChain }

// UpdateStructure re-derives related-constraint lists after a structural
// change.
func (s *ChainMoveStore) UpdateStructure(m *Model) {
	for _, mv := range s.moves {
		mv.RelatedConstraints = mv.RelatedConstraints[:0]
		mv.SetupRelatedConstraints(m)
	}
}

// Enumerate appends the stored moves that are still available and whose
// alterations actually change the current solution.
func (s *ChainMoveStore) Enumerate(m *Model, accept Acceptance, out []*Move) []*Move {
	for _, mv := range s.moves {
		if !mv.IsAvailable {
			continue
		}
		changes := false
		for _, a := range mv.Alterations {
			if m.Variables[a.Variable].Value != a.Value {
				changes = true
				break
			}
		}
		if changes {
			out = append(out, mv)
		}
	}
	return out
}

// Register stores a synthesized chain move.
func (s *ChainMoveStore) Register(move Move) {
	move.Sense = MoveSenseChain
	move.IsSpecialNeighborhoodMove = true
	move.IsAvailable = true
	s.moves = append(s.moves, &move)
}

// Moves returns the stored moves.
func (s *ChainMoveStore) Moves() []*Move {
	return s.moves
}

// Clear drops every stored move.
func (s *ChainMoveStore) Clear() {
	s.moves = s.moves[:0]
}

// Sort orders the store ascending by overlap rate, breaking ties by the
// first altered variable index for a well-defined order.
func (s *ChainMoveStore) Sort() {
	sort.SliceStable(s.moves, func(i, j int) bool {
		if s.moves[i].OverlapRate != s.moves[j].OverlapRate {
			return s.moves[i].OverlapRate < s.moves[j].OverlapRate
		}
		return s.moves[i].Alterations[0].Variable < s.moves[j].Alterations[0].Variable
	})
}

// Deduplicate removes stored moves with identical alteration lists. The
// store should be sorted first.
func (s *ChainMoveStore) Deduplicate() {
	seen := make(map[string]struct{}, len(s.moves))
	kept := s.moves[:0]
	for _, mv := range s.moves {
		key := alterationKey(mv)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, mv)
	}
	s.moves = kept
}

// Shuffle randomizes the stored order.
func (s *ChainMoveStore) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(s.moves), func(i, j int) {
		s.moves[i], s.moves[j] = s.moves[j], s.moves[i]
	})
}

// Reduce trims the store to the given capacity, keeping the head.
func (s *ChainMoveStore) Reduce(capacity int) {
	if capacity >= 0 && len(s.moves) > capacity {
		s.moves = s.moves[:capacity]
	}
}

// ResetAvailability re-arms every stored move.
func (s *ChainMoveStore) ResetAvailability() {
	for _, mv := range s.moves {
		mv.IsAvailable = true
	}
}

// alterationKey builds a deduplication key over (variable, value) pairs.
func alterationKey(mv *Move) string {
	key := make([]byte, 0, len(mv.Alterations)*8)
	for _, a := range mv.Alterations {
		key = appendInt(key, a.Variable)
		key = append(key, ':')
		key = appendInt(key, a.Value)
		key = append(key, ';')
	}
	return string(key)
}

// appendInt appends a decimal representation without allocating.
func appendInt(buf []byte, v int) []byte {
	if v < 0 {
		buf = append(buf, '-')
		v = -v
	}
	if v >= 10 {
		buf = appendInt(buf, v/10)
	}
	return append(buf, byte('0'+v%10))
}
