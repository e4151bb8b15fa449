package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/rbscholtus/mipcraft/internal/solver"
)

// newSolveCommand builds the solve command.
func newSolveCommand() *cli.Command {
	return &cli.Command{
		Name:      "solve",
		Usage:     "Solve a built-in demonstration model",
		ArgsUsage: "<model>",
		Flags: flags("time-max", "iteration-max", "seed", "tabu-tenure", "verbose",
			"lagrange", "local-search", "annealing", "trend-log", "status",
			"store-feasible"),
		Action: runSolve,
	}
}

// parseVerbose maps the flag value onto a verbose level.
func parseVerbose(value string) (solver.VerboseLevel, error) {
	switch value {
	case "off":
		return solver.VerboseOff, nil
	case "warning":
		return solver.VerboseWarning, nil
	case "outer":
		return solver.VerboseOuter, nil
	case "inner":
		return solver.VerboseInner, nil
	case "full":
		return solver.VerboseFull, nil
	case "debug":
		return solver.VerboseDebug, nil
	default:
		return solver.VerboseOff, fmt.Errorf("unknown verbose level %q", value)
	}
}

// runSolve solves the selected demo model and renders the result.
func runSolve(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one model name; run 'mipcraft list'")
	}
	demo, err := findDemoModel(c.Args().First())
	if err != nil {
		return err
	}

	verbose, err := parseVerbose(c.String("verbose"))
	if err != nil {
		return err
	}

	option := solver.DefaultOption()
	option.General.TimeMax = c.Float64("time-max")
	option.General.IterationMax = c.Int("iteration-max")
	option.General.Seed = c.Int64("seed")
	option.TabuSearch.InitialTabuTenure = c.Int("tabu-tenure")
	option.TabuSearch.Seed = c.Int64("seed")
	option.LagrangeDual.IsEnabled = c.Bool("lagrange")
	option.LocalSearch.IsEnabled = c.Bool("local-search")
	option.Annealing.IsEnabled = c.Bool("annealing")
	option.Output.Verbose = verbose
	option.Output.IsEnabledStoreFeasibleSolutions = c.Bool("store-feasible")
	option.Output.StatusPath = c.String("status")
	if path := c.String("trend-log"); path != "" {
		option.Output.IsEnabledWriteTrend = true
		option.Output.TrendLogPath = path
	}

	model := demo.Build()
	result, err := solver.Solve(context.Background(), model, option)
	if err != nil {
		return fmt.Errorf("solve %s: %w", demo.Name, err)
	}

	renderResult(result)
	return nil
}
