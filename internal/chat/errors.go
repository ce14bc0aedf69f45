package chat

import (
	"errors"
	"fmt"
)

// Sentinel errors for synchronous rejections. These are returned before any
// mutation happens; callers surface them to the user.
var (
	ErrInvalidInput            = errors.New("invalid input")
	ErrVersionNotFound         = errors.New("version not found")
	ErrCannotDeleteSoleVersion = errors.New("cannot delete sole version")
	ErrNoUserPredecessor       = errors.New("no user message precedes this assistant message")

	// ErrRequestFailed and ErrCancelled classify completion outcomes. Both
	// leave the session idle with any partial streamed content preserved.
	ErrRequestFailed = errors.New("completion request failed")
	ErrCancelled     = errors.New("completion request cancelled")
)

// RequestError wraps a completion-service failure with enough context to
// reproduce it. errors.Is(err, ErrRequestFailed) matches.
type RequestError struct {
	SessionID string
	ItemID    string
	Err       error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("completion request failed [session=%s item=%s]: %v", e.SessionID, e.ItemID, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

func (e *RequestError) Is(target error) bool {
	return target == ErrRequestFailed
}
