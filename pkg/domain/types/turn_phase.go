package types

// TurnPhase names the steps of the turn state machine. Attached to errors
// and logs so a failed turn reports how far it got.
type TurnPhase string

const (
	TurnPhaseLoad        TurnPhase = "load"
	TurnPhaseObserve     TurnPhase = "observe"
	TurnPhaseCommitState TurnPhase = "commit_state"
	TurnPhaseRetrieve    TurnPhase = "retrieve"
	TurnPhaseAssemble    TurnPhase = "assemble"
	TurnPhaseAct         TurnPhase = "act"
	TurnPhaseCommitLog   TurnPhase = "commit_log"
	TurnPhaseDone        TurnPhase = "done"
	TurnPhaseFailed      TurnPhase = "failed"
)

// String returns the string representation of the turn phase
func (p TurnPhase) String() string {
	return string(p)
}
