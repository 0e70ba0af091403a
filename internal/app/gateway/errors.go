package gateway

import (
	"errors"
	"fmt"

	"github.com/PabloGalante/csr-lab/internal/domain"
)

var (
	// ErrMalformedOutput: the backend answered but the answer is unusable.
	ErrMalformedOutput = errors.New("malformed backend output")

	ErrTimeout     = errors.New("backend deadline exceeded")
	ErrRateLimited = errors.New("backend rate limit wait failed")
)

// BackendFailure is the expected, recoverable failure of a capability call:
// timeout, transport error or malformed output.
type BackendFailure struct {
	Capability domain.Capability
	Err        error
}

func (e *BackendFailure) Error() string {
	return fmt.Sprintf("%s: %v", e.Capability, e.Err)
}

func (e *BackendFailure) Unwrap() error {
	return e.Err
}

func failure(c domain.Capability, err error) error {
	return &BackendFailure{Capability: c, Err: err}
}

// IsBackendFailure reports whether err is a BackendFailure.
func IsBackendFailure(err error) bool {
	var bf *BackendFailure
	return errors.As(err, &bf)
}
