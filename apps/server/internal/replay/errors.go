package replay

import (
	"fmt"

	"hometable/holdem"
)

// ReplayError pins a failed replay to the event that caused it.
// StepIndex is -1 when the stream as a whole is unusable.
type ReplayError struct {
	StepIndex int            `json:"step_index"`
	Seq       int64          `json:"seq"`
	Reason    string         `json:"reason"`
	Message   string         `json:"message"`
	Expected  *ExpectedState `json:"expected,omitempty"`
}

// ExpectedState is what the table was waiting for when an action event did
// not apply.
type ExpectedState struct {
	CurrentTurn int          `json:"current_turn"`
	Stage       string       `json:"stage,omitempty"`
	Legal       holdem.Legal `json:"legal"`
}

func (e *ReplayError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("replay error(step=%d seq=%d reason=%s): %s", e.StepIndex, e.Seq, e.Reason, e.Message)
}
