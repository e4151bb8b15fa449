package solver

import (
	"encoding/json"
	"io"
	"time"
)

// TrendEvent is one JSONL record of the trend log. Optional fields use
// pointers so absent values stay out of the output.
type TrendEvent struct {
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
	ElapsedMs int64     `json:"elapsed_ms"`

	Phase     string `json:"phase,omitempty"`
	Iteration *int   `json:"iteration,omitempty"`

	Objective                *float64 `json:"objective,omitempty"`
	TotalViolation           *float64 `json:"total_violation,omitempty"`
	GlobalAugmentedObjective *float64 `json:"global_augmented_objective,omitempty"`
	DualBound                *float64 `json:"dual_bound,omitempty"`

	PrimalIntensity *float64 `json:"primal_intensity,omitempty"`
	DualIntensity   *float64 `json:"dual_intensity,omitempty"`

	TabuTenure                  *int `json:"tabu_tenure,omitempty"`
	NumberOfInitialModification *int `json:"number_of_initial_modification,omitempty"`
	InnerIterationMax           *int `json:"inner_iteration_max,omitempty"`

	TerminationStatus string `json:"termination_status,omitempty"`
	Message           string `json:"message,omitempty"`
}

// TrendLogger streams one JSONL line per outer-loop event, in addition to
// whatever the console logger prints. A nil writer disables it.
type TrendLogger struct {
	file      io.Writer
	startTime time.Time
}

// NewTrendLogger returns a logger writing to the given writer; nil
// disables output.
func NewTrendLogger(file io.Writer) *TrendLogger {
	return &TrendLogger{file: file, startTime: time.Now()}
}

// IsEnabled reports whether events will be written.
func (l *TrendLogger) IsEnabled() bool {
	return l != nil && l.file != nil
}

// Write appends one event line. Marshalling failures are dropped silently;
// the trend log is advisory output.
func (l *TrendLogger) Write(event TrendEvent) {
	if !l.IsEnabled() {
		return
	}
	event.Timestamp = time.Now()
	event.ElapsedMs = time.Since(l.startTime).Milliseconds()

	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	data = append(data, '\n')
	_, _ = l.file.Write(data)
}

// float64Ptr, intPtr adapt literals for optional event fields.
func float64Ptr(v float64) *float64 { return &v }
func intPtr(v int) *int             { return &v }
