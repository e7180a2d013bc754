package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewestFirst(t *testing.T) {
	a := &Account{Messages: []Message{{MessageID: "1"}, {MessageID: "2"}, {MessageID: "3"}}}
	got := a.NewestFirst()
	require.Len(t, got, 3)
	assert.Equal(t, "3", got[0].MessageID)
	assert.Equal(t, "1", got[2].MessageID)
	assert.Equal(t, "1", a.Messages[0].MessageID, "stored order is untouched")

	assert.Empty(t, (&Account{}).NewestFirst())
}

func TestIndexOfMessage(t *testing.T) {
	a := &Account{Messages: []Message{{MessageID: "a"}, {MessageID: "b"}}}
	assert.Equal(t, 1, a.IndexOfMessage("b"))
	assert.Equal(t, -1, a.IndexOfMessage("z"))
}

func TestPrincipalOwns(t *testing.T) {
	p := &Principal{Handle: "alice", ExpiresAt: time.Now().Add(time.Hour)}
	assert.True(t, p.Owns("alice"))
	assert.False(t, p.Owns("Alice"), "handles are case-sensitive")
	assert.False(t, p.Owns(""))

	var nilPrincipal *Principal
	assert.False(t, nilPrincipal.Owns("alice"))
	assert.ErrorIs(t, Authorize(nilPrincipal, "alice"), ErrUnauthorized)
	assert.NoError(t, Authorize(p, "alice"))
}

func TestErrorKinds(t *testing.T) {
	cases := []struct {
		err  error
		kind error
	}{
		{ErrInvalidContent, ErrValidation},
		{ErrNotVerified, ErrAuth},
		{ErrInvalidSession, ErrAuth},
		{ErrMessageNotFound, ErrNotFound},
		{ErrDuplicateEmail, ErrConflict},
		{ErrCodeMismatch, ErrState},
		{ErrSuggestionUnavailable, ErrDependency},
	}
	for _, tc := range cases {
		wrapped := fmt.Errorf("op: %w", tc.err)
		assert.ErrorIs(t, wrapped, tc.kind, tc.err.Error())
		assert.ErrorIs(t, wrapped, tc.err)
	}
	assert.False(t, errors.Is(ErrCredentialCorrupt, ErrAuth))
	assert.False(t, errors.Is(ErrCodeMismatch, ErrExpiredCode))
}

func TestWithDetail(t *testing.T) {
	err := fmt.Errorf("create: %w", ErrInvalidInput.WithDetail("handle is required"))
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.ErrorIs(t, err, ErrValidation)

	var de *Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "InvalidInput", de.Code)
	assert.Equal(t, "handle is required", de.Msg)
}
