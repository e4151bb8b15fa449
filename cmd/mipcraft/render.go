package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/rbscholtus/mipcraft/internal/solver"
)

// renderResult prints the solve outcome as summary tables.
func renderResult(result *solver.Result) {
	renderSummaryTable(result)
	renderPhaseTable(result)
	renderSolutionTable(result)
}

// renderSummaryTable prints the headline numbers.
func renderSummaryTable(result *solver.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Result")
	t.AppendRows([]table.Row{
		{"Model", result.Status.ModelName},
		{"Objective", fmt.Sprintf("%.6g", result.Solution.Objective)},
		{"Violation", fmt.Sprintf("%.6g", result.Solution.TotalViolation)},
		{"Feasible", result.Solution.IsFeasible},
		{"Termination", string(result.Status.TerminationStatus)},
		{"Elapsed", fmt.Sprintf("%.3fs", result.Status.ElapsedSeconds)},
	})
	if result.Status.DualBound != nil {
		t.AppendRow(table.Row{"Dual bound", fmt.Sprintf("%.6g", *result.Status.DualBound)})
	}
	t.Render()
}

// renderPhaseTable prints per-phase statistics.
func renderPhaseTable(result *solver.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Phases")
	t.AppendHeader(table.Row{"Phase", "Iterations", "Elapsed", "Termination"})
	for _, phase := range result.Status.Phases {
		t.AppendRow(table.Row{
			phase.Name,
			phase.Iterations,
			fmt.Sprintf("%.3fs", phase.ElapsedSeconds),
			string(phase.TerminationStatus),
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})
	t.Render()
}

// renderSolutionTable prints the nonzero variable values, sorted by name.
func renderSolutionTable(result *solver.Result) {
	names := make([]string, 0, len(result.Solution.VariableValues))
	for name, value := range result.Solution.VariableValues {
		if value != 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Nonzero variables")
	t.AppendHeader(table.Row{"Variable", "Value"})
	for _, name := range names {
		t.AppendRow(table.Row{name, result.Solution.VariableValues[name]})
	}
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	t.Render()
}
