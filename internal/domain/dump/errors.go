package dump

import "github.com/cockroachdb/errors"

var (
	// ErrValidation marks bad client input.
	ErrValidation = errors.New("invalid dump")
	// ErrNotFound is returned when no analysis exists for a dump id.
	ErrNotFound = errors.New("analysis not found")
	// ErrStorage marks failures of the analysis store.
	ErrStorage = errors.New("analysis storage failure")
)

// NewValidationError creates a message-bearing error that matches ErrValidation.
func NewValidationError(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrValidation)
}

// WrapStorage annotates a driver error and marks it as ErrStorage.
func WrapStorage(err error, op string) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.Wrap(err, op), ErrStorage)
}

// NewNotFoundError reports a missing analysis for dumpID.
func NewNotFoundError(dumpID string) error {
	return errors.Mark(errors.Newf("no analysis for dump %q", dumpID), ErrNotFound)
}
