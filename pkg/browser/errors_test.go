package browser

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	cause := errors.New("net::ERR_CONNECTION_REFUSED")

	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "kind only",
			err:  &Error{Kind: KindSessionClosed},
			want: "session_closed",
		},
		{
			name: "op and message",
			err:  newError(KindElementNotFound, "field", nil, "%s not found", "#blogname"),
			want: "field: #blogname not found",
		},
		{
			name: "wrapped cause",
			err:  newError(KindInteraction, "navigate", cause, "could not open %s", "https://site.test/wp-admin/"),
			want: "navigate: could not open https://site.test/wp-admin/: net::ERR_CONNECTION_REFUSED",
		},
		{
			name: "cause equal to message is not repeated",
			err:  asError(cause, KindInteraction, "execute"),
			want: "execute: net::ERR_CONNECTION_REFUSED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestErrorIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("login flow: %w", newError(KindAuthFailure, "login", nil, "bad password"))

	assert.True(t, errors.Is(err, ErrAuthFailure))
	assert.False(t, errors.Is(err, ErrAuthTimeout))
	assert.Equal(t, KindAuthFailure, KindOf(err))
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
}

func TestErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("%w: click #submit", ErrDeadlineExceeded)
	err := actionError("click", "#submit", cause)

	assert.Equal(t, KindActionTimeout, err.Kind)
	assert.True(t, errors.Is(err, ErrDeadlineExceeded))
	assert.True(t, IsTimeout(err))
}

func TestActionErrorClassification(t *testing.T) {
	assert.Equal(t, KindActionTimeout, actionError("type", "#x", fmt.Errorf("wrapped: %w", ErrDeadlineExceeded)).Kind)
	assert.Equal(t, KindInteraction, actionError("type", "#x", errors.New("element is detached")).Kind)
}

func TestTimeoutKinds(t *testing.T) {
	timeouts := []ErrorKind{KindAuthTimeout, KindNavigationTimeout, KindEditorDetectionTimeout, KindActionTimeout}
	for _, k := range timeouts {
		assert.True(t, (&Error{Kind: k}).Timeout(), k)
	}

	others := []ErrorKind{KindLaunchFailure, KindAuthFailure, KindElementNotFound, KindVerification, KindInteraction, KindCancelled}
	for _, k := range others {
		assert.False(t, (&Error{Kind: k}).Timeout(), k)
		assert.False(t, IsTimeout(&Error{Kind: k}), k)
	}
}

func TestAsErrorKeepsEngineErrors(t *testing.T) {
	orig := newError(KindNavigationTimeout, "navigate", nil, "slow")
	assert.Same(t, orig, asError(fmt.Errorf("outer: %w", orig), KindInteraction, "execute"))
	assert.Nil(t, asError(nil, KindInteraction, "execute"))
}
