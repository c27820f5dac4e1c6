package relax

import (
	"fmt"

	"github.com/matzehuels/pointfit/pkg/errors"
)

// Status is the optimizer's state-machine position.
type Status int

const (
	// StatusRunning means more rounds may follow.
	StatusRunning Status = iota
	// StatusConverged means the step size fell below the tolerance.
	StatusConverged
	// StatusExhausted means the round limit was reached first.
	StatusExhausted
	// StatusCanceled means the caller's context ended between rounds. The
	// run can be resumed.
	StatusCanceled
)

var statusNames = map[Status]string{
	StatusRunning:   "running",
	StatusConverged: "converged",
	StatusExhausted: "exhausted",
	StatusCanceled:  "canceled",
}

// String returns the lowercase status name.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Terminated reports whether the run reached a terminal state on its own.
func (s Status) Terminated() bool {
	return s == StatusConverged || s == StatusExhausted
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	if _, ok := statusNames[s]; !ok {
		return nil, errors.New(errors.ErrCodeInternal, "unknown status %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(b []byte) error {
	for st, name := range statusNames {
		if name == string(b) {
			*s = st
			return nil
		}
	}
	return errors.New(errors.ErrCodeInvalidFormat, "unknown status %q", string(b))
}
