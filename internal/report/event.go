package report

import "time"

// Kind identifies the type of a loop report entry.
type Kind int

const (
	LogInfo         Kind = iota // General informational message
	LogIterStart                // Iteration starting
	LogReloadFailed             // A module could not be reloaded
	LogReloaded                 // Reload pass finished, driver about to run
	LogResolved                 // Driver returned a value
	LogRejected                 // Driver returned an error
	LogAwaiting                 // Waiting for an operator decision
	LogUnknownInput             // Operator entered something other than r/c
	LogRerun                    // Operator chose to re-run
	LogDone                     // Loop finished
)

var kindNames = [...]string{
	LogInfo:         "info",
	LogIterStart:    "iter_start",
	LogReloadFailed: "reload_failed",
	LogReloaded:     "reloaded",
	LogResolved:     "resolved",
	LogRejected:     "rejected",
	LogAwaiting:     "awaiting",
	LogUnknownInput: "unknown_input",
	LogRerun:        "rerun",
	LogDone:         "done",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Entry is a structured event emitted by the loop and the prompters.
type Entry struct {
	Kind      Kind
	Timestamp time.Time
	Message   string

	// Iteration the entry belongs to (1-based; 0 when not applicable).
	Iteration int

	// Module identifier for reload entries.
	Module string

	// Driver outcome for LogResolved / LogRejected.
	Value any
	Err   error

	// Raw operator input for LogUnknownInput.
	Input string
}
