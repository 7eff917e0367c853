package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf_ThroughWrapping(t *testing.T) {
	base := Gone("link_already_used", "request is %s", "approved")
	wrapped := fmt.Errorf("respond: %w", base)

	assert.Equal(t, KindGone, KindOf(wrapped))
	assert.Equal(t, "link_already_used", CodeOf(wrapped))
	assert.True(t, IsConflict(wrapped))
	assert.False(t, Is(wrapped, KindNotFound))
}

func TestKindOf_PlainError(t *testing.T) {
	err := errors.New("boom")
	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, "internal_error", CodeOf(err))
	assert.False(t, IsConflict(nil))
}

func TestErrorsIs_MatchesKindAndCode(t *testing.T) {
	err := fmt.Errorf("wrap: %w", Forbidden("wrong_verifier", "signed in as someone else"))

	assert.True(t, errors.Is(err, &Error{Kind: KindAuthorizationDenied}))
	assert.True(t, errors.Is(err, &Error{Kind: KindAuthorizationDenied, Code: "wrong_verifier"}))
	assert.False(t, errors.Is(err, &Error{Kind: KindAuthorizationDenied, Code: "role_required"}))
	assert.False(t, errors.Is(err, &Error{Kind: KindNotFound}))
}

func TestError_Message(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := Dependency("mail_unavailable", cause)

	assert.Equal(t, "mail_unavailable: dial tcp: refused", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "dependency_failure", err.Kind.String())
}
