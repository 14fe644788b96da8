package grouping

type Status string

const (
	StatusAccepted Status = "accepted"
	StatusBuffered Status = "buffered"
	StatusRejected Status = "rejected"
)

// Outcome is what a transition handler reports back to the event router.
// Err is set only when Status is StatusRejected.
type Outcome struct {
	Status Status
	Err    *Error
}

func accepted() Outcome { return Outcome{Status: StatusAccepted} }

func buffered() Outcome { return Outcome{Status: StatusBuffered} }

func rejected(kind Kind, reason string, err error) Outcome {
	return Outcome{Status: StatusRejected, Err: newError(kind, reason, err)}
}

func (o Outcome) Rejected() bool { return o.Status == StatusRejected }

func (o Outcome) Reason() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Reason
}
