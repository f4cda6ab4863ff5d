package browser

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies engine failures.
type ErrorKind string

const (
	KindLaunchFailure          ErrorKind = "launch_failure"
	KindAuthFailure            ErrorKind = "auth_failure"
	KindAuthTimeout            ErrorKind = "auth_timeout"
	KindNavigationTimeout      ErrorKind = "navigation_timeout"
	KindElementNotFound        ErrorKind = "element_not_found"
	KindEditorDetectionTimeout ErrorKind = "editor_detection_timeout"
	KindActionTimeout          ErrorKind = "action_timeout"
	KindVerification           ErrorKind = "verification_failed"
	KindInvalidValue           ErrorKind = "invalid_value"
	KindInteraction            ErrorKind = "interaction_failed"
	KindSessionClosed          ErrorKind = "session_closed"
	KindSessionBusy            ErrorKind = "session_busy"
	KindCancelled              ErrorKind = "cancelled"
)

// Error is the structured error carried by results. Kind drives errors.Is
// matching, so callers can test against the Err* sentinels below.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Op      string    `json:"op,omitempty"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

// Sentinels for errors.Is.
var (
	ErrLaunchFailure          = &Error{Kind: KindLaunchFailure}
	ErrAuthFailure            = &Error{Kind: KindAuthFailure}
	ErrAuthTimeout            = &Error{Kind: KindAuthTimeout}
	ErrNavigationTimeout      = &Error{Kind: KindNavigationTimeout}
	ErrElementNotFound        = &Error{Kind: KindElementNotFound}
	ErrEditorDetectionTimeout = &Error{Kind: KindEditorDetectionTimeout}
	ErrActionTimeout          = &Error{Kind: KindActionTimeout}
	ErrVerification           = &Error{Kind: KindVerification}
	ErrSessionClosed          = &Error{Kind: KindSessionClosed}
	ErrSessionBusy            = &Error{Kind: KindSessionBusy}
	ErrCancelled              = &Error{Kind: KindCancelled}
)

func newError(kind ErrorKind, op string, err error, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", e.Op, msg)
	}
	if e.Err != nil && e.Err.Error() != e.Message {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Timeout reports whether the failure is a timed-out wait or action.
func (e *Error) Timeout() bool {
	switch e.Kind {
	case KindAuthTimeout, KindNavigationTimeout, KindEditorDetectionTimeout, KindActionTimeout:
		return true
	}
	return false
}

// IsTimeout reports whether err is, or wraps, a timeout-kind engine error or
// a raw driver deadline.
func IsTimeout(err error) bool {
	var e *Error
	if errors.As(err, &e) && e.Timeout() {
		return true
	}
	return errors.Is(err, ErrDeadlineExceeded)
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// asError converts any error into an *Error, keeping existing ones.
func asError(err error, fallback ErrorKind, op string) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: fallback, Op: op, Message: err.Error(), Err: err}
}

// waitError builds the error for a failed wait. A cancelled context is
// reported as KindCancelled whatever kind the wait would otherwise carry.
// Only timeout kinds keep the wait's cause.
func waitError(kind ErrorKind, op string, err error, format string, args ...interface{}) *Error {
	if errors.Is(err, context.Canceled) {
		return newError(KindCancelled, op, err, "cancelled while waiting")
	}
	e := newError(kind, op, nil, format, args...)
	if e.Timeout() {
		e.Err = err
	}
	return e
}

// actionError classifies a failed page primitive: deadline → ActionTimeout,
// anything else → Interaction.
func actionError(op, selector string, err error) *Error {
	if errors.Is(err, ErrDeadlineExceeded) {
		return newError(KindActionTimeout, op, err, "timed out on %s", selector)
	}
	return newError(KindInteraction, op, err, "failed on %s", selector)
}
