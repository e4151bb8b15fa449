package mip

import (
	"fmt"
	"math"
	"sort"
)

// Objective is the single linear objective of the model. Value caches the
// raw (unfolded) evaluation at the current variable values.
type Objective struct {
	Expression Expression
	IsDefined  bool
	Value      float64
}

// Model owns the variable and constraint arenas, the objective, and the
// cached evaluation state the incremental evaluator relies on.
type Model struct {
	Name string

	Variables   []Variable
	Constraints []Constraint
	Objective   Objective

	IsMinimization           bool
	GlobalPenaltyCoefficient float64

	// SelectionGroups lists, per group, the member variables of one
	// "exactly one" set-partitioning family detected by SetupStructure.
	SelectionGroups [][]int

	// selectionRelatedConstraints holds, per group, the sorted union of
	// constraints touching any member; variables store index windows into
	// this list for the selection fast path.
	selectionRelatedConstraints [][]int

	violativeConstraints []int

	isSolved         bool
	isStructureBuilt bool

	neighborhood *Neighborhood
}

// NewModel returns an empty minimization model.
func NewModel(name string) *Model {
	return &Model{Name: name, IsMinimization: true}
}

// Sign is +1 for minimization and -1 for maximization; objectives are
// folded by it so the engines always minimize.
func (m *Model) Sign() float64 {
	return MinimizationSign(m.IsMinimization)
}

// IsLinear reports whether the model is linear. The modeling surface only
// admits linear constraints and objectives.
func (m *Model) IsLinear() bool {
	return true
}

// AddVariable appends an integer variable with the given bounds and returns
// its arena index.
func (m *Model) AddVariable(name string, lowerBound, upperBound int) (int, error) {
	if lowerBound > upperBound {
		return -1, fmt.Errorf("variable %q: inconsistent bounds [%d, %d]", name, lowerBound, upperBound)
	}
	sense := SenseInteger
	if lowerBound == 0 && upperBound == 1 {
		sense = SenseBinary
	}
	index := len(m.Variables)
	m.Variables = append(m.Variables, Variable{
		Index:                         index,
		Name:                          name,
		Sense:                         sense,
		Value:                         lowerBound,
		LowerBound:                    lowerBound,
		UpperBound:                    upperBound,
		SelectionGroup:                -1,
		RelatedSelectionConstraintMin: -1,
		RelatedSelectionConstraintMax: -1,
		LocalLastUpdateIteration:      InitialLastUpdateIteration,
	})
	m.isStructureBuilt = false
	return index, nil
}

// AddBinaryVariable appends a 0/1 variable and returns its arena index.
func (m *Model) AddBinaryVariable(name string) int {
	index, _ := m.AddVariable(name, 0, 1)
	return index
}

// AddConstraint appends a constraint "expression (sense) 0" and returns its
// arena index.
func (m *Model) AddConstraint(name string, expression Expression, sense ConstraintSense) int {
	index := len(m.Constraints)
	m.Constraints = append(m.Constraints, Constraint{
		Index:      index,
		Name:       name,
		Sense:      sense,
		Expression: expression,
		IsEnabled:  true,
	})
	m.isStructureBuilt = false
	return index
}

// Minimize installs a minimization objective.
func (m *Model) Minimize(expression Expression) {
	m.Objective = Objective{Expression: expression, IsDefined: true}
	m.IsMinimization = true
	m.isStructureBuilt = false
}

// Maximize installs a maximization objective.
func (m *Model) Maximize(expression Expression) {
	m.Objective = Objective{Expression: expression, IsDefined: true}
	m.IsMinimization = false
	m.isStructureBuilt = false
}

// MarkSolved flips the solve-once guard, failing on a second attempt.
func (m *Model) MarkSolved() error {
	if m.isSolved {
		return fmt.Errorf("model %q has already been solved", m.Name)
	}
	m.isSolved = true
	return nil
}

// NumberOfVariables returns the arena size.
func (m *Model) NumberOfVariables() int {
	return len(m.Variables)
}

// NumberOfMutableVariables counts variables the search may alter.
func (m *Model) NumberOfMutableVariables() int {
	count := 0
	for i := range m.Variables {
		if m.Variables[i].IsMutable() {
			count++
		}
	}
	return count
}

// NumberOfConstraints returns the constraint arena size.
func (m *Model) NumberOfConstraints() int {
	return len(m.Constraints)
}

// SetupStructure builds the variable->constraint back-references, folds the
// objective sensitivities by sign, classifies constraints, and detects
// selection groups. It must run before evaluation and again after any
// structural change.
func (m *Model) SetupStructure() {
	for i := range m.Variables {
		m.Variables[i].ConstraintSensitivities = m.Variables[i].ConstraintSensitivities[:0]
		m.Variables[i].ObjectiveSensitivity = 0.0
		m.Variables[i].SelectionGroup = -1
		m.Variables[i].RelatedSelectionConstraintMin = -1
		m.Variables[i].RelatedSelectionConstraintMax = -1
	}

	for ci := range m.Constraints {
		for _, t := range m.Constraints[ci].Expression.Terms {
			v := &m.Variables[t.Variable]
			v.ConstraintSensitivities = append(v.ConstraintSensitivities,
				ConstraintSensitivity{Constraint: ci, Sensitivity: t.Coefficient})
		}
		m.classifyConstraint(ci)
	}

	sign := m.Sign()
	if m.Objective.IsDefined {
		for _, t := range m.Objective.Expression.Terms {
			m.Variables[t.Variable].ObjectiveSensitivity += t.Coefficient * sign
		}
	}

	m.detectSelectionGroups()
	m.isStructureBuilt = true
}

// classifyConstraint assigns the structural tag used by presolve passes and
// the chain-move gate.
func (m *Model) classifyConstraint(index int) {
	c := &m.Constraints[index]
	terms := c.Expression.Terms

	if len(terms) == 1 {
		c.Class = ClassSingleton
		return
	}
	if len(terms) == 2 && c.Sense == SenseEqual {
		c.Class = ClassAggregation
		return
	}

	allBinaryUnitCoefficients := true
	for _, t := range terms {
		if m.Variables[t.Variable].Sense != SenseBinary && m.Variables[t.Variable].Sense != SenseSelection {
			allBinaryUnitCoefficients = false
			break
		}
		if t.Coefficient != 1.0 {
			allBinaryUnitCoefficients = false
			break
		}
	}

	if allBinaryUnitCoefficients {
		switch {
		case c.Sense == SenseEqual && c.Expression.Constant == -1.0:
			c.Class = ClassSetPartitioning
		case c.Sense == SenseLess && c.Expression.Constant == -1.0:
			c.Class = ClassSetPacking
		case c.Sense == SenseGreater && c.Expression.Constant == -1.0:
			c.Class = ClassSetCovering
		case c.Sense == SenseEqual:
			c.Class = ClassCardinality
		default:
			c.Class = ClassKnapsack
		}
		return
	}

	if c.Sense == SenseLess {
		allBinaryPositiveCoefficients := true
		for _, t := range terms {
			sense := m.Variables[t.Variable].Sense
			if (sense != SenseBinary && sense != SenseSelection) || t.Coefficient <= 0 {
				allBinaryPositiveCoefficients = false
				break
			}
		}
		if allBinaryPositiveCoefficients {
			c.Class = ClassKnapsack
			return
		}
	}

	if len(terms) == 2 && c.Sense != SenseEqual {
		c.Class = ClassPrecedence
		return
	}
	c.Class = ClassGeneral
}

// HasChainMoveEffectiveConstraints reports whether any constraint belongs to
// a zero-one coefficient family the chain move can exploit.
func (m *Model) HasChainMoveEffectiveConstraints() bool {
	for i := range m.Constraints {
		switch m.Constraints[i].Class {
		case ClassSetPartitioning, ClassSetPacking, ClassSetCovering, ClassCardinality, ClassKnapsack:
			return true
		}
	}
	return false
}

// detectSelectionGroups promotes the members of set-partitioning
// constraints to Selection variables and records group metadata.
func (m *Model) detectSelectionGroups() {
	m.SelectionGroups = m.SelectionGroups[:0]
	m.selectionRelatedConstraints = m.selectionRelatedConstraints[:0]

	for ci := range m.Constraints {
		c := &m.Constraints[ci]
		if c.Class != ClassSetPartitioning || !c.IsEnabled {
			continue
		}
		group := len(m.SelectionGroups)
		members := make([]int, 0, len(c.Expression.Terms))
		for _, t := range c.Expression.Terms {
			v := &m.Variables[t.Variable]
			if v.SelectionGroup >= 0 {
				// A variable already claimed by another group keeps its
				// first assignment.
				continue
			}
			v.Sense = SenseSelection
			v.SelectionGroup = group
			members = append(members, t.Variable)
		}
		if len(members) < 2 {
			for _, vi := range members {
				m.Variables[vi].Sense = SenseBinary
				m.Variables[vi].SelectionGroup = -1
			}
			continue
		}

		related := make([]int, 0)
		for _, vi := range members {
			for _, s := range m.Variables[vi].ConstraintSensitivities {
				related = append(related, s.Constraint)
			}
		}
		sort.Ints(related)
		related = dedupSortedInts(related)

		for _, vi := range members {
			v := &m.Variables[vi]
			v.RelatedSelectionConstraintMin = -1
			v.RelatedSelectionConstraintMax = -1
			for pos, rc := range related {
				if m.variableTouchesConstraint(vi, rc) {
					if v.RelatedSelectionConstraintMin < 0 {
						v.RelatedSelectionConstraintMin = pos
					}
					v.RelatedSelectionConstraintMax = pos
				}
			}
		}

		m.SelectionGroups = append(m.SelectionGroups, members)
		m.selectionRelatedConstraints = append(m.selectionRelatedConstraints, related)
	}
}

// variableTouchesConstraint reports whether the variable appears in the
// constraint's expression.
func (m *Model) variableTouchesConstraint(variable, constraint int) bool {
	for _, s := range m.Variables[variable].ConstraintSensitivities {
		if s.Constraint == constraint {
			return true
		}
	}
	return false
}

// SelectionRelatedConstraints returns the shared related-constraint list of
// the given selection group.
func (m *Model) SelectionRelatedConstraints(group int) []int {
	return m.selectionRelatedConstraints[group]
}

// Update refreshes every cached constraint value, the objective value, and
// the violative-constraint list from the current variable values.
func (m *Model) Update() {
	m.violativeConstraints = m.violativeConstraints[:0]
	for i := range m.Constraints {
		c := &m.Constraints[i]
		if !c.IsEnabled {
			continue
		}
		c.Refresh(m)
		if c.IsViolative() {
			m.violativeConstraints = append(m.violativeConstraints, i)
		}
	}
	if m.Objective.IsDefined {
		m.Objective.Value = m.Objective.Expression.Evaluate(m)
	}
}

// Commit applies the move's alterations and incrementally refreshes the
// caches of the related constraints and the objective.
func (m *Model) Commit(move *Move) {
	diffs := make([]float64, len(move.Alterations))
	for i, a := range move.Alterations {
		diffs[i] = float64(a.Value - m.Variables[a.Variable].Value)
		m.Variables[a.Variable].Value = a.Value
	}

	touched := move.RelatedConstraints
	if len(touched) == 0 {
		for _, a := range move.Alterations {
			for _, s := range m.Variables[a.Variable].ConstraintSensitivities {
				touched = append(touched, s.Constraint)
			}
		}
	}
	for _, ci := range touched {
		c := &m.Constraints[ci]
		if !c.IsEnabled {
			continue
		}
		c.Refresh(m)
	}

	if m.Objective.IsDefined {
		objectiveDiff := 0.0
		for i, a := range move.Alterations {
			for _, t := range m.Objective.Expression.Terms {
				if t.Variable == a.Variable {
					objectiveDiff += t.Coefficient * diffs[i]
					break
				}
			}
		}
		m.Objective.Value += objectiveDiff
	}

	m.refreshViolativeConstraints()
}

// refreshViolativeConstraints rebuilds the cached violative list.
func (m *Model) refreshViolativeConstraints() {
	m.violativeConstraints = m.violativeConstraints[:0]
	for i := range m.Constraints {
		if m.Constraints[i].IsEnabled && m.Constraints[i].IsViolative() {
			m.violativeConstraints = append(m.violativeConstraints, i)
		}
	}
}

// ViolativeConstraints returns the indices of currently violated enabled
// constraints, as of the last Update or Commit.
func (m *Model) ViolativeConstraints() []int {
	return m.violativeConstraints
}

// IsFeasible reports whether no enabled constraint is violated.
func (m *Model) IsFeasible() bool {
	return len(m.violativeConstraints) == 0
}

// ImportSparseSolution installs the given variable values, clamping into
// bounds, and refreshes all caches. Fixed variables keep their value.
func (m *Model) ImportSparseSolution(solution *SparseSolution) {
	for i := range m.Variables {
		v := &m.Variables[i]
		if v.IsFixed {
			continue
		}
		value := solution.Variables[i]
		if value < v.LowerBound {
			value = v.LowerBound
		}
		if value > v.UpperBound {
			value = v.UpperBound
		}
		v.Value = value
	}
	m.Update()
}

// ExportDenseSolution snapshots the current state.
func (m *Model) ExportDenseSolution() DenseSolution {
	dense := DenseSolution{
		VariableValues:   make([]int, len(m.Variables)),
		ConstraintValues: make([]float64, len(m.Constraints)),
		Violations:       make([]float64, len(m.Constraints)),
	}
	totalViolation := 0.0
	for i := range m.Variables {
		dense.VariableValues[i] = m.Variables[i].Value
	}
	for i := range m.Constraints {
		dense.ConstraintValues[i] = m.Constraints[i].Value
		dense.Violations[i] = m.Constraints[i].Violation
		if m.Constraints[i].IsEnabled {
			totalViolation += m.Constraints[i].Violation
		}
	}
	dense.Objective = m.Objective.Value
	dense.TotalViolation = totalViolation
	dense.GlobalAugmentedObjective = m.Objective.Value*m.Sign() + totalViolation*m.GlobalPenaltyCoefficient
	dense.IsFeasible = !(totalViolation > Eps)
	return dense
}

// ExportSparseSolution snapshots the current state in sparse form.
func (m *Model) ExportSparseSolution() SparseSolution {
	dense := m.ExportDenseSolution()
	return dense.ToSparse()
}

// AttachNeighborhood wires the move generators to the model.
func (m *Model) AttachNeighborhood(neighborhood *Neighborhood) {
	m.neighborhood = neighborhood
}

// Neighborhood returns the attached move generators.
func (m *Model) Neighborhood() *Neighborhood {
	return m.neighborhood
}

// ResetVariableObjectiveImprovabilities clears the flag on the given
// variables, or on all variables when none are given.
func (m *Model) ResetVariableObjectiveImprovabilities(variables ...int) {
	if len(variables) == 0 {
		for i := range m.Variables {
			m.Variables[i].IsObjectiveImprovable = false
		}
		return
	}
	for _, vi := range variables {
		m.Variables[vi].IsObjectiveImprovable = false
	}
}

// ResetVariableFeasibilityImprovabilities clears the flag on variables
// touching the given constraints, or on all variables when none are given.
func (m *Model) ResetVariableFeasibilityImprovabilities(constraints ...int) {
	if len(constraints) == 0 {
		for i := range m.Variables {
			m.Variables[i].IsFeasibilityImprovable = false
		}
		return
	}
	for _, ci := range constraints {
		for _, t := range m.Constraints[ci].Expression.Terms {
			m.Variables[t.Variable].IsFeasibilityImprovable = false
		}
	}
}

// UpdateVariableObjectiveImprovabilities recomputes the flag on the given
// variables (all mutable variables when none are given): a variable is
// objective-improvable when moving it in one admissible direction lowers
// the folded objective.
func (m *Model) UpdateVariableObjectiveImprovabilities(variables ...int) {
	update := func(vi int) {
		v := &m.Variables[vi]
		if !v.IsMutable() {
			v.IsObjectiveImprovable = false
			return
		}
		c := v.ObjectiveSensitivity
		v.IsObjectiveImprovable = (c > Eps && v.Value > v.LowerBound) ||
			(c < -Eps && v.Value < v.UpperBound)
	}
	if len(variables) == 0 {
		for i := range m.Variables {
			update(i)
		}
		return
	}
	for _, vi := range variables {
		update(vi)
	}
}

// UpdateVariableFeasibilityImprovabilities recomputes the flag over the
// given constraints (the currently violative ones when none are given):
// a variable is feasibility-improvable when moving it in one admissible
// direction shrinks the violation of some violated constraint.
func (m *Model) UpdateVariableFeasibilityImprovabilities(constraints ...int) {
	if len(constraints) == 0 {
		constraints = m.violativeConstraints
	}
	for _, ci := range constraints {
		c := &m.Constraints[ci]
		if !c.IsEnabled || !c.IsViolative() {
			continue
		}
		lessViolated := c.IsLessOrEqual() && c.PositivePart > Eps
		greaterViolated := c.IsGreaterOrEqual() && c.NegativePart > Eps
		for _, t := range c.Expression.Terms {
			v := &m.Variables[t.Variable]
			if !v.IsMutable() || v.IsFeasibilityImprovable {
				continue
			}
			if lessViolated {
				if (t.Coefficient > 0 && v.Value > v.LowerBound) ||
					(t.Coefficient < 0 && v.Value < v.UpperBound) {
					v.IsFeasibilityImprovable = true
					continue
				}
			}
			if greaterViolated {
				if (t.Coefficient > 0 && v.Value < v.UpperBound) ||
					(t.Coefficient < 0 && v.Value > v.LowerBound) {
					v.IsFeasibilityImprovable = true
				}
			}
		}
	}
}

// HasObjectiveImprovableVariable reports whether any variable still carries
// the objective-improvable flag.
func (m *Model) HasObjectiveImprovableVariable() bool {
	for i := range m.Variables {
		if m.Variables[i].IsObjectiveImprovable {
			return true
		}
	}
	return false
}

// TightenVariableBounds narrows variable bounds using the implied
// constraint "objective <= bound" (">=" for maximization), fixes variables
// whose window collapses, and rebuilds the structure when anything changed.
// It returns the number of narrowed bounds.
func (m *Model) TightenVariableBounds(bound float64) int {
	if !m.Objective.IsDefined {
		return 0
	}

	terms := m.Objective.Expression.Terms
	sign := m.Sign()
	narrowed := 0

	for _, t := range terms {
		v := &m.Variables[t.Variable]
		if v.IsFixed || !v.IsMutable() {
			continue
		}
		coefficient := t.Coefficient * sign
		if math.Abs(coefficient) < Eps {
			continue
		}

		// Folded objective of the others at their most favorable values.
		rest := m.Objective.Expression.Constant * sign
		for _, u := range terms {
			if u.Variable == t.Variable {
				continue
			}
			uc := u.Coefficient * sign
			uv := &m.Variables[u.Variable]
			if uv.IsFixed {
				rest += uc * float64(uv.Value)
			} else if uc > 0 {
				rest += uc * float64(uv.LowerBound)
			} else {
				rest += uc * float64(uv.UpperBound)
			}
		}

		foldedBound := bound * sign
		limit := (foldedBound - rest) / coefficient
		if coefficient > 0 {
			newUpper := int(math.Floor(limit + Eps))
			if newUpper < v.UpperBound {
				v.UpperBound = maxInt(newUpper, v.LowerBound)
				narrowed++
			}
		} else {
			newLower := int(math.Ceil(limit - Eps))
			if newLower > v.LowerBound {
				v.LowerBound = minInt(newLower, v.UpperBound)
				narrowed++
			}
		}

		if v.LowerBound == v.UpperBound {
			v.Value = v.LowerBound
			v.IsFixed = true
		} else {
			if v.Value < v.LowerBound {
				v.Value = v.LowerBound
			}
			if v.Value > v.UpperBound {
				v.Value = v.UpperBound
			}
		}
	}

	if narrowed > 0 {
		m.SetupStructure()
		m.Update()
	}
	return narrowed
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
