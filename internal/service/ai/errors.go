package ai

import (
	"errors"
	"fmt"
)

// ErrCredentialUnavailable is wrapped by ConfigurationError when no API key is configured.
var ErrCredentialUnavailable = errors.New("credential unavailable")

const genericRemoteMessage = "failed to process request"

// ConfigurationError reports a request that could not be attempted because the
// service is misconfigured. No network I/O happens before it is returned.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("ai configuration error: %v", e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// RemoteError reports a failed call to the inference endpoint: a non-2xx
// response, an unreadable body or a transport failure.
type RemoteError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *RemoteError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("ai remote error (status %d): %s", e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("ai remote error: %s: %v", e.Message, e.Err)
	default:
		return "ai remote error: " + e.Message
	}
}

func (e *RemoteError) Unwrap() error { return e.Err }

func asRemoteError(err error) *RemoteError {
	var remote *RemoteError
	if errors.As(err, &remote) {
		return remote
	}
	return &RemoteError{Message: genericRemoteMessage, Err: err}
}
