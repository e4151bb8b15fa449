package solver

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// PhaseSummary records one executed phase for the status report.
type PhaseSummary struct {
	Name              string            `json:"name"`
	Iterations        int64             `json:"iterations"`
	ElapsedSeconds    float64           `json:"elapsed_seconds"`
	TerminationStatus TerminationStatus `json:"termination_status"`
}

// PenaltyCoefficientRecord is the final penalty state of one constraint.
type PenaltyCoefficientRecord struct {
	Name           string  `json:"name"`
	Less           float64 `json:"less"`
	Greater        float64 `json:"greater"`
	ViolationCount int64   `json:"violation_count"`
}

// VariableUpdateRecord is the final frequency state of one variable.
type VariableUpdateRecord struct {
	Name        string `json:"name"`
	UpdateCount int64  `json:"update_count"`
}

// Status is the metadata half of a Result: identity, per-phase counters,
// termination statuses, and the final memory state.
type Status struct {
	RunID     string    `json:"run_id"`
	ModelName string    `json:"model_name"`
	StartedAt time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	NumberOfVariables   int `json:"number_of_variables"`
	NumberOfConstraints int `json:"number_of_constraints"`

	ElapsedSeconds    float64           `json:"elapsed_seconds"`
	TerminationStatus TerminationStatus `json:"termination_status"`

	Phases []PhaseSummary `json:"phases"`

	DualBound    *float64 `json:"dual_bound,omitempty"`

	PenaltyCoefficients   []PenaltyCoefficientRecord `json:"penalty_coefficients"`
	VariableUpdateCounts  []VariableUpdateRecord     `json:"variable_update_counts"`
}

// WriteJSON persists the status record; it mirrors the in-memory object.
func (s *Status) WriteJSON(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write status file: %w", err)
	}
	return nil
}
