package solver

// TerminationStatus is the observable reason a phase (or a single core
// round) stopped. Statuses are normal outcomes, never errors.
type TerminationStatus string

const (
	StatusPending                    TerminationStatus = "PENDING"
	StatusTimeOver                   TerminationStatus = "TIME_OVER"
	StatusIterationOver              TerminationStatus = "ITERATION_OVER"
	StatusNoMove                     TerminationStatus = "NO_MOVE"
	StatusReachTarget                TerminationStatus = "REACH_TARGET"
	StatusEarlyStop                  TerminationStatus = "EARLY_STOP"
	StatusOptimal                    TerminationStatus = "OPTIMAL"
	StatusPenaltyCoefficientTooLarge TerminationStatus = "PENALTY_COEFFICIENT_TOO_LARGE"
	StatusConverge                   TerminationStatus = "CONVERGE"
	StatusLocalOptimal               TerminationStatus = "LOCAL_OPTIMAL"
	StatusInterruption               TerminationStatus = "INTERRUPTION"
)
