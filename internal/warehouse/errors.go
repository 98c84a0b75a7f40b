package warehouse

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Sentinel errors for the warehouse package.
var (
	// ErrAdmission is wrapped by every *AdmissionError.
	ErrAdmission = errors.New("document exceeds admission limits")

	// ErrReentrant is returned when Dispatch or Register is called while a
	// dispatch pass is already running.
	ErrReentrant = errors.New("warehouse is already dispatching")

	// ErrCollectorTimeout marks a collector call that overran its budget.
	ErrCollectorTimeout = errors.New("collector timed out")

	// ErrCollectorFailed marks a collector call that returned an error or panicked.
	ErrCollectorFailed = errors.New("collector failed")

	// ErrDuplicateName is returned when two distinct collectors share a name.
	ErrDuplicateName = errors.New("collector name already registered")

	// ErrTooManyContainers is returned when collectors ignore more distinct
	// container types than the open-container mask can hold.
	ErrTooManyContainers = errors.New("too many ignored container types")
)

// AdmissionError reports which ceiling a document exceeded.
type AdmissionError struct {
	Limit  string // "tokens" or "bytes"
	Actual int64
	Max    int64
}

func (e *AdmissionError) Error() string {
	return fmt.Sprintf("admission: %s %d exceeds limit %d", e.Limit, e.Actual, e.Max)
}

func (e *AdmissionError) Unwrap() error { return ErrAdmission }

// FailureKind classifies a collector failure.
type FailureKind string

const (
	FailureTimeout FailureKind = "timeout"
	FailureError   FailureKind = "error"
	FailurePanic   FailureKind = "panic"
)

// Phase names the collector callback that failed.
type Phase string

const (
	PhaseReset    Phase = "reset"
	PhaseToken    Phase = "on_token"
	PhaseFinalize Phase = "finalize"
)

// CollectorError is one entry in the dispatch failure log.
type CollectorError struct {
	Collector  string
	TokenIndex int // -1 outside OnToken
	Phase      Phase
	Kind       FailureKind
	Err        error
	Stack      []byte
}

func (e *CollectorError) Error() string {
	if e.Phase != PhaseToken {
		return fmt.Sprintf("collector %s %s (%s): %v", e.Collector, e.Phase, e.Kind, e.Err)
	}
	return fmt.Sprintf("collector %s %s at token %d (%s): %v", e.Collector, e.Phase, e.TokenIndex, e.Kind, e.Err)
}

// Unwrap exposes both the kind sentinel and the underlying cause, so
// errors.Is works against ErrCollectorTimeout and timeout.ErrTimeout alike.
func (e *CollectorError) Unwrap() []error {
	kind := ErrCollectorFailed
	if e.Kind == FailureTimeout {
		kind = ErrCollectorTimeout
	}
	return []error{kind, e.Err}
}

func (e *CollectorError) MarshalJSON() ([]byte, error) {
	msg := ""
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return json.Marshal(struct {
		Collector  string      `json:"collector"`
		TokenIndex int         `json:"token_index"`
		Phase      Phase       `json:"phase"`
		Kind       FailureKind `json:"kind"`
		Message    string      `json:"message"`
	}{e.Collector, e.TokenIndex, e.Phase, e.Kind, msg})
}
