package models

type OutcomeKind int

const (
	OutcomeSaved OutcomeKind = iota
	OutcomeRejected
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSaved:
		return "saved"
	case OutcomeRejected:
		return "rejected"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the result of processing one submission. Rejected covers
// validation failures, Failed covers decode and IO errors.
type Outcome struct {
	Kind       OutcomeKind
	Message    string
	Submission *Submission
}

func Saved(sub *Submission) Outcome {
	return Outcome{Kind: OutcomeSaved, Submission: sub}
}

func Rejected(sub *Submission, message string) Outcome {
	return Outcome{Kind: OutcomeRejected, Message: message, Submission: sub}
}

func Failed(sub *Submission, err error) Outcome {
	return Outcome{Kind: OutcomeFailed, Message: err.Error(), Submission: sub}
}

// Recordable reports whether the outcome belongs in the error log.
func (o Outcome) Recordable() bool {
	return o.Kind != OutcomeSaved
}
