// Package main provides the CLI entrypoint for the mipcraft solver.
//
// demo.go builds the built-in demonstration models the solve command runs
// on (the modeling API and file-format readers live outside this tool).
//
// render.go renders solve results as human-friendly tables.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// Centralized map of CLI flags used across commands.
// Keeps flag definitions in one place so commands can select only the flags they need.
var appFlagsMap = map[string]cli.Flag{
	"time-max": &cli.Float64Flag{
		Name:    "time-max",
		Aliases: []string{"t"},
		Usage:   "wall-clock limit for the whole run, in seconds",
		Value:   10.0,
	},
	"iteration-max": &cli.IntFlag{
		Name:    "iteration-max",
		Aliases: []string{"i"},
		Usage:   "outer-loop iteration limit",
		Value:   50,
	},
	"seed": &cli.Int64Flag{
		Name:  "seed",
		Usage: "random seed for reproducible runs",
		Value: 1,
	},
	"tabu-tenure": &cli.IntFlag{
		Name:  "tabu-tenure",
		Usage: "initial tabu tenure",
		Value: 10,
	},
	"verbose": &cli.StringFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "console verbosity: off, warning, outer, inner, full, debug",
		Value:   "outer",
	},
	"lagrange": &cli.BoolFlag{
		Name:  "lagrange",
		Usage: "run the Lagrange dual warm start before tabu search",
	},
	"local-search": &cli.BoolFlag{
		Name:  "local-search",
		Usage: "run the greedy local search phase before tabu search",
	},
	"annealing": &cli.BoolFlag{
		Name:  "annealing",
		Usage: "run the simulated annealing warm start before other phases",
	},
	"trend-log": &cli.StringFlag{
		Name:  "trend-log",
		Usage: "write a JSONL trend log to this path",
	},
	"status": &cli.StringFlag{
		Name:  "status",
		Usage: "write the final status record as JSON to this path",
	},
	"store-feasible": &cli.BoolFlag{
		Name:  "store-feasible",
		Usage: "archive every feasible solution encountered",
	},
}

// flags selects the named flags from the centralized map.
func flags(names ...string) []cli.Flag {
	selected := make([]cli.Flag, 0, len(names))
	for _, name := range names {
		selected = append(selected, appFlagsMap[name])
	}
	return selected
}

func main() {
	app := &cli.App{
		Name:  "mipcraft",
		Usage: "tabu-search solver for mixed-integer programs",
		Commands: []*cli.Command{
			newSolveCommand(),
			newListCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// newListCommand lists the built-in demonstration models.
func newListCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List the built-in demonstration models",
		Action: func(c *cli.Context) error {
			for _, demo := range demoModels() {
				fmt.Printf("%-16s %s\n", demo.Name, demo.Description)
			}
			return nil
		},
	}
}
