package pipeline

import (
	"errors"
	"fmt"
)

// State is a point in the request lifecycle.
type State string

const (
	StateCreated     State = "created"
	StateRanked      State = "ranked"
	StateRetrieved   State = "retrieved"
	StateTrimmed     State = "trimmed"
	StateMixed       State = "mixed"
	StatePackaged    State = "packaged"
	StateSizeChecked State = "size_checked"
	StateDelivered   State = "delivered"
	StateCleaned     State = "cleaned"
)

// Stage names used in StageError and log context.
const (
	StageRanking   = "ranking"
	StageRetrieval = "retrieval"
	StageTrimming  = "trimming"
	StageMixing    = "mixing"
	StagePackaging = "packaging"
	StageSizeCheck = "size_check"
	StageDelivery  = "delivery"
)

const (
	MsgSuccess         = "Mashup generated and emailed successfully!"
	MsgDownloadFailed  = "Failed to download videos."
	MsgProcessFailed   = "Failed to process audio files."
	MsgMixFailed       = "Failed to create mashup."
	MsgPackageFailed   = "Failed to create zip."
	msgDeliveryPattern = "Failed to send email: %s"
)

// StageError reports a failed stage with its requester-facing message.
type StageError struct {
	Stage   string
	Message string
	Err     error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Stage, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Message, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// UserMessage returns the message a requester should see for err.
func UserMessage(err error) string {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
