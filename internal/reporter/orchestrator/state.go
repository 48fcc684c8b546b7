// Package orchestrator drives the pipeline end-to-end: extraction, the
// three analysis tiers, and artifact merge, under bounded concurrency and
// cancellation (§4.10, §5).
package orchestrator

// State is one node of the run's state machine:
// INIT -> EXTRACT -> TIER1 -> TIER2 -> TIER3 -> MERGE -> DONE, with
// CANCELED/FAILED reachable from any step.
type State string

const (
	StateInit     State = "INIT"
	StateExtract  State = "EXTRACT"
	StateTier1    State = "TIER1"
	StateTier2    State = "TIER2"
	StateTier3    State = "TIER3"
	StateMerge    State = "MERGE"
	StateDone     State = "DONE"
	StateCanceled State = "CANCELED"
	StateFailed   State = "FAILED"
)

// Result is the terminal outcome of a Run.
type Result struct {
	State     State
	FailedAt  State  // set only when State == StateFailed: the step that failed
	Reason    string // set only when State == StateFailed or StateCanceled
	Artifacts []ArtifactOutput
}

// ArtifactOutput pairs a rendered artifact kind with its text, returned for
// the driver to persist.
type ArtifactOutput struct {
	Kind string
	Text string
}
