package models

// Status is the lifecycle of one asynchronous operation.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// OpState is attached to every loaded collection or record. Message is set
// only when Status is StatusFailed.
type OpState struct {
	Status  Status
	Message string
}

func Idle() OpState      { return OpState{Status: StatusIdle} }
func Pending() OpState   { return OpState{Status: StatusPending} }
func Succeeded() OpState { return OpState{Status: StatusSucceeded} }

func Failed(message string) OpState {
	return OpState{Status: StatusFailed, Message: message}
}

func (s OpState) IsPending() bool { return s.Status == StatusPending }
func (s OpState) IsFailed() bool  { return s.Status == StatusFailed }
