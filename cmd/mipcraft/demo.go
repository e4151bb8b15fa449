package main

import (
	"fmt"

	"github.com/rbscholtus/mipcraft/internal/mip"
)

// DemoModel is one built-in model the solve command can run.
type DemoModel struct {
	Name        string
	Description string
	Build       func() *mip.Model
}

// demoModels returns the built-in demonstration models.
func demoModels() []DemoModel {
	return []DemoModel{
		{
			Name:        "knapsack",
			Description: "30-item 0/1 knapsack, maximize value under one capacity",
			Build:       buildKnapsack,
		},
		{
			Name:        "assignment",
			Description: "8x8 assignment with exactly-one selection groups",
			Build:       buildAssignment,
		},
		{
			Name:        "production",
			Description: "integer production planning with resource limits",
			Build:       buildProduction,
		},
	}
}

// findDemoModel looks up a demo by name.
func findDemoModel(name string) (*DemoModel, error) {
	for _, demo := range demoModels() {
		if demo.Name == name {
			return &demo, nil
		}
	}
	return nil, fmt.Errorf("unknown model %q; run 'mipcraft list' for the available models", name)
}

// buildKnapsack creates a deterministic 30-item knapsack instance.
func buildKnapsack() *mip.Model {
	model := mip.NewModel("knapsack")

	// Deterministic pseudo-random weights/values, small LCG.
	state := int64(12345)
	next := func(modulus int64) int64 {
		state = (state*1103515245 + 12341) % 2147483648
		return state % modulus
	}

	objective := mip.NewExpression()
	capacity := mip.NewExpression()
	for i := 0; i < 30; i++ {
		item := model.AddBinaryVariable(fmt.Sprintf("x[%d]", i))
		objective.AddTerm(item, float64(10+next(90)))
		capacity.AddTerm(item, float64(5+next(45)))
	}
	capacity.Constant = -400.0
	model.AddConstraint("capacity", capacity, mip.SenseLess)
	model.Maximize(objective)
	return model
}

// buildAssignment creates an 8x8 assignment problem: every row picks
// exactly one column, every column at most one row, minimize total cost.
func buildAssignment() *mip.Model {
	const n = 8
	model := mip.NewModel("assignment")

	state := int64(98765)
	next := func(modulus int64) int64 {
		state = (state*1103515245 + 12341) % 2147483648
		return state % modulus
	}

	vars := make([][]int, n)
	objective := mip.NewExpression()
	for i := 0; i < n; i++ {
		vars[i] = make([]int, n)
		for j := 0; j < n; j++ {
			vars[i][j] = model.AddBinaryVariable(fmt.Sprintf("x[%d][%d]", i, j))
			objective.AddTerm(vars[i][j], float64(1+next(99)))
		}
	}

	for i := 0; i < n; i++ {
		row := mip.NewExpression()
		for j := 0; j < n; j++ {
			row.AddTerm(vars[i][j], 1.0)
		}
		row.Constant = -1.0
		model.AddConstraint(fmt.Sprintf("row[%d]", i), row, mip.SenseEqual)
	}
	for j := 0; j < n; j++ {
		column := mip.NewExpression()
		for i := 0; i < n; i++ {
			column.AddTerm(vars[i][j], 1.0)
		}
		column.Constant = -1.0
		model.AddConstraint(fmt.Sprintf("column[%d]", j), column, mip.SenseLess)
	}

	model.Minimize(objective)
	return model
}

// buildProduction creates a small integer production planning model:
// maximize profit over three products under two shared resources.
func buildProduction() *mip.Model {
	model := mip.NewModel("production")

	a, _ := model.AddVariable("a", 0, 100)
	b, _ := model.AddVariable("b", 0, 100)
	c, _ := model.AddVariable("c", 0, 100)

	profit := mip.NewExpression()
	profit.AddTerm(a, 7.0)
	profit.AddTerm(b, 5.0)
	profit.AddTerm(c, 9.0)

	machine := mip.NewExpression()
	machine.AddTerm(a, 2.0)
	machine.AddTerm(b, 1.0)
	machine.AddTerm(c, 3.0)
	machine.Constant = -240.0
	model.AddConstraint("machine_hours", machine, mip.SenseLess)

	labor := mip.NewExpression()
	labor.AddTerm(a, 3.0)
	labor.AddTerm(b, 2.0)
	labor.AddTerm(c, 2.0)
	labor.Constant = -300.0
	model.AddConstraint("labor_hours", labor, mip.SenseLess)

	model.Maximize(profit)
	return model
}
