package solver

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rbscholtus/mipcraft/internal/mip"
)

// testOption returns quiet defaults bounded for unit runs.
func testOption() Option {
	option := quietOption()
	option.General.TimeMax = 10.0
	option.General.IterationMax = 10
	option.TabuSearch.IterationMax = 200
	return option
}

// TestSolve_TrivialFeasibility is the end-to-end scenario: min x subject
// to x = 1 over x in {0, 1}, starting from x = 0.
func TestSolve_TrivialFeasibility(t *testing.T) {
	model := mip.NewModel("trivial")
	x := model.AddBinaryVariable("x")

	fixed := mip.NewExpression()
	fixed.AddTerm(x, 1.0)
	fixed.Constant = -1.0
	model.AddConstraint("fix", fixed, mip.SenseEqual)

	objective := mip.NewExpression()
	objective.AddTerm(x, 1.0)
	model.Minimize(objective)

	result, err := Solve(context.Background(), model, testOption())
	require.NoError(t, err)

	require.True(t, result.FeasibleIncumbentFound())
	require.Equal(t, 1, result.Solution.VariableValues["x"])
	require.InDelta(t, 1.0, result.Solution.Objective, mip.Eps)
	require.Contains(t, []TerminationStatus{
		StatusTimeOver, StatusIterationOver, StatusOptimal,
	}, result.Status.TerminationStatus)
}

// TestSolve_KnapsackMaximization solves the three-item knapsack end to
// end and expects the optimum with the raw (unfolded) objective.
func TestSolve_KnapsackMaximization(t *testing.T) {
	model, _ := buildKnapsack3()

	result, err := Solve(context.Background(), model, testOption())
	require.NoError(t, err)

	require.True(t, result.Solution.IsFeasible)
	require.InDelta(t, 6.0, result.Solution.Objective, mip.Eps)
	require.Equal(t, 0, result.Solution.VariableValues["y1"])
	require.Equal(t, 1, result.Solution.VariableValues["y2"])
	require.Equal(t, 1, result.Solution.VariableValues["y3"])
}

// TestSolve_WithWarmStartPhases runs every optional phase in sequence.
func TestSolve_WithWarmStartPhases(t *testing.T) {
	model, _ := buildKnapsack3()

	option := testOption()
	option.LagrangeDual.IsEnabled = true
	option.LagrangeDual.IterationMax = 200
	option.LocalSearch.IsEnabled = true
	option.LocalSearch.IterationMax = 50

	result, err := Solve(context.Background(), model, option)
	require.NoError(t, err)

	require.True(t, result.Solution.IsFeasible)
	require.InDelta(t, 6.0, result.Solution.Objective, mip.Eps)

	phaseNames := make([]string, 0, len(result.Status.Phases))
	for _, phase := range result.Status.Phases {
		phaseNames = append(phaseNames, phase.Name)
	}
	require.Equal(t, []string{"lagrange_dual", "local_search", "tabu_search"}, phaseNames)
}

// TestSolve_SolveTwiceFails enforces the boundary precondition.
func TestSolve_SolveTwiceFails(t *testing.T) {
	model, _ := buildKnapsack3()

	_, err := Solve(context.Background(), model, testOption())
	require.NoError(t, err)

	_, err = Solve(context.Background(), model, testOption())
	require.Error(t, err)
	require.Contains(t, err.Error(), "already been solved")
}

// TestSolve_EmptyModelFails rejects models without variables.
func TestSolve_EmptyModelFails(t *testing.T) {
	model := mip.NewModel("empty")
	_, err := Solve(context.Background(), model, testOption())
	require.Error(t, err)
}

// TestSolve_CancelledContextInterrupts returns through the interruption
// path with the incumbents collected so far retained.
func TestSolve_CancelledContextInterrupts(t *testing.T) {
	model, _ := buildKnapsack3()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	option := testOption()
	result, err := Solve(ctx, model, option)
	require.NoError(t, err)
	require.Equal(t, StatusInterruption, result.Status.TerminationStatus)
}

// TestSolve_StatusRecord verifies the metadata half of the result.
func TestSolve_StatusRecord(t *testing.T) {
	model, _ := buildKnapsack3()

	result, err := Solve(context.Background(), model, testOption())
	require.NoError(t, err)

	status := result.Status
	require.NotEmpty(t, status.RunID)
	require.Equal(t, "knapsack3", status.ModelName)
	require.Equal(t, 3, status.NumberOfVariables)
	require.Equal(t, 1, status.NumberOfConstraints)
	require.Len(t, status.PenaltyCoefficients, 1)
	require.Len(t, status.VariableUpdateCounts, 3)
	require.False(t, status.FinishedAt.Before(status.StartedAt))

	var totalUpdates int64
	for _, record := range status.VariableUpdateCounts {
		totalUpdates += record.UpdateCount
	}
	require.Positive(t, totalUpdates)
}

// TestSolve_TrendLog emits parseable JSONL events.
func TestSolve_TrendLog(t *testing.T) {
	model, _ := buildKnapsack3()

	option := testOption()
	option.Output.IsEnabledWriteTrend = true

	var trend bytes.Buffer
	s := NewSolver(model, option)
	s.SetWriters(nil, &trend)

	_, err := s.Solve(context.Background())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(trend.String()), "\n")
	require.NotEmpty(t, lines)
	for _, line := range lines {
		var event TrendEvent
		require.NoError(t, json.Unmarshal([]byte(line), &event), "line: %s", line)
		require.NotEmpty(t, event.Event)
	}
}

// TestSolve_StoresFeasibleSolutions fills the archive when enabled.
func TestSolve_StoresFeasibleSolutions(t *testing.T) {
	model, _ := buildKnapsack3()

	option := testOption()
	option.Output.IsEnabledStoreFeasibleSolutions = true
	option.Output.FeasibleSolutionsCapacity = 16

	result, err := Solve(context.Background(), model, option)
	require.NoError(t, err)
	require.NotEmpty(t, result.FeasibleSolutions)
	require.LessOrEqual(t, len(result.FeasibleSolutions), 16)
	for _, solution := range result.FeasibleSolutions {
		require.True(t, solution.IsFeasible)
	}
}
