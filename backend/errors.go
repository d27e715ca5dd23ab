package backend

import (
	"errors"
	"fmt"
)

var (
	// ErrSyncInProgress is returned when another operation already holds the list kind
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrUnsupportedKind is returned for unknown list kinds or operations a kind does not support
	ErrUnsupportedKind = errors.New("unsupported list kind")
)

// RemoteError reports a failed remote call: a non-success HTTP status or a transport failure
type RemoteError struct {
	Op         string
	StatusCode int // 0 for transport failures
	Err        error
}

func (e *RemoteError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op + ": remote error"
}

func (e *RemoteError) Unwrap() error { return e.Err }

// AuthError reports that no session token is available
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	if e.Reason == "" {
		return "not logged in"
	}
	return "not logged in: " + e.Reason
}

// FormatError reports malformed import data. The import is rejected as a whole.
type FormatError struct {
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid backup data: %s: %v", e.Reason, e.Err)
	}
	return "invalid backup data: " + e.Reason
}

func (e *FormatError) Unwrap() error { return e.Err }

// IsRemote reports whether err wraps a RemoteError
func IsRemote(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}

// IsAuth reports whether err wraps an AuthError
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}
