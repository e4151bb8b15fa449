package mip

// DenseSolution is a full snapshot of every variable value plus the cached
// evaluation metadata of the solution.
type DenseSolution struct {
	VariableValues   []int   `json:"variable_values"`
	ConstraintValues []float64 `json:"constraint_values"`
	Violations       []float64 `json:"violations"`

	Objective                float64 `json:"objective"`
	TotalViolation           float64 `json:"total_violation"`
	GlobalAugmentedObjective float64 `json:"global_augmented_objective"`
	IsFeasible               bool    `json:"is_feasible"`
}

// ToSparse compresses the dense snapshot, keeping only nonzero values.
func (d *DenseSolution) ToSparse() SparseSolution {
	sparse := SparseSolution{
		Variables:                make(map[int]int),
		Objective:                d.Objective,
		TotalViolation:           d.TotalViolation,
		GlobalAugmentedObjective: d.GlobalAugmentedObjective,
		IsFeasible:               d.IsFeasible,
	}
	for i, v := range d.VariableValues {
		if v != 0 {
			sparse.Variables[i] = v
		}
	}
	return sparse
}

// SparseSolution stores only the nonzero variable values of a solution.
type SparseSolution struct {
	Variables map[int]int `json:"variables"`

	Objective                float64 `json:"objective"`
	TotalViolation           float64 `json:"total_violation"`
	GlobalAugmentedObjective float64 `json:"global_augmented_objective"`
	IsFeasible               bool    `json:"is_feasible"`
}

// NewSparseSolution returns an empty sparse solution.
func NewSparseSolution() SparseSolution {
	return SparseSolution{Variables: make(map[int]int)}
}

// Distance returns the Hamming distance between two sparse solutions over
// the union of their supports.
func (s *SparseSolution) Distance(other *SparseSolution) int {
	distance := 0
	for i, v := range s.Variables {
		if other.Variables[i] != v {
			distance++
		}
	}
	for i, v := range other.Variables {
		if _, ok := s.Variables[i]; !ok && v != 0 {
			distance++
		}
	}
	return distance
}

// Equal reports whether two sparse solutions assign identical values.
func (s *SparseSolution) Equal(other *SparseSolution) bool {
	return s.Distance(other) == 0
}
