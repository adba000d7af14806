package ai

import "github.com/cockroachdb/errors"

var (
	// ErrConfiguration indicates a missing or invalid provider setting.
	ErrConfiguration = errors.New("ai provider misconfigured")
	// ErrBackend indicates the generation provider failed (network, auth, quota, bad reply).
	ErrBackend = errors.New("ai provider error")
)

// NewConfigurationError creates an error matching ErrConfiguration.
func NewConfigurationError(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrConfiguration)
}

// WrapBackend prefixes err with the provider name and msg, keeping the
// provider's own message, and marks it as ErrBackend.
func WrapBackend(err error, provider, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.Wrapf(err, "%s: %s", provider, msg), ErrBackend)
}

// NewBackendError creates an error matching ErrBackend.
func NewBackendError(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrBackend)
}
