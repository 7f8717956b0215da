package grid

import (
	"errors"
	"fmt"
)

// Reject marks a constraint violation that invalidates the whole mission
// under construction. It is not an error to repair in place: the sole
// consumer is the generator's retry loop, which discards all partial state
// and starts the attempt over.
type Reject struct {
	Reason string
}

func (e *Reject) Error() string { return "reject: " + e.Reason }

func Rejectf(format string, args ...any) error {
	return &Reject{Reason: fmt.Sprintf(format, args...)}
}

// IsReject distinguishes recoverable sampling violations from programming
// or configuration errors, which must propagate.
func IsReject(err error) bool {
	var r *Reject
	return errors.As(err, &r)
}
