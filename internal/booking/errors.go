package booking

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrWindowNotFound: the referenced availability window does not exist
	// (or is already booked).
	ErrWindowNotFound = errors.New("availability window not found")

	// ErrWindowUnavailable: the window was consumed by a concurrent booking
	// between selection and commit. Recoverable by re-fetching availability.
	ErrWindowUnavailable = errors.New("slot no longer available")

	// ErrDuplicateSessionRef: a booking already carries this payment session
	// reference. Callers treat the confirmation as already processed.
	ErrDuplicateSessionRef = errors.New("payment session already processed")
)

// OpError is an opaque internal failure. The underlying cause is logged with
// the correlation id; only the id is safe to show to callers.
type OpError struct {
	CorrelationID string
	Err           error
}

func newOpError(err error) *OpError {
	return &OpError{CorrelationID: uuid.NewString(), Err: err}
}

func (e *OpError) Error() string {
	return fmt.Sprintf("operation failed (ref %s)", e.CorrelationID)
}

func (e *OpError) Unwrap() error { return e.Err }
