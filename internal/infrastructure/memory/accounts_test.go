package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-anon-inbox/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPending(handle, email string) *domain.Account {
	code := "123456"
	return &domain.Account{
		AccountID:              "id-" + handle,
		Handle:                 handle,
		Email:                  email,
		VerificationCode:       &code,
		VerificationCodeExpiry: time.Now().Add(time.Hour),
		IsAcceptingMessages:    true,
	}
}

func seed(t *testing.T, s *AccountStore, handle, email string) *domain.Account {
	t.Helper()
	a := newPending(handle, email)
	require.NoError(t, s.CreatePending(context.Background(), a, nil))
	return a
}

func TestCreatePending_Uniqueness(t *testing.T) {
	ctx := context.Background()
	s := NewAccountStore()
	seed(t, s, "alice", "a@x.com")

	err := s.CreatePending(ctx, newPending("alice", "other@x.com"), nil)
	assert.ErrorIs(t, err, domain.ErrDuplicateHandle)

	err = s.CreatePending(ctx, newPending("bob", "a@x.com"), nil)
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
}

func TestCreatePending_ReplacesPendingAccounts(t *testing.T) {
	ctx := context.Background()
	s := NewAccountStore()
	alice := seed(t, s, "alice", "old@x.com")
	bob := seed(t, s, "bob", "a@x.com")

	require.NoError(t, s.CreatePending(ctx, newPending("alice", "a@x.com"), []*domain.Account{alice, bob}))

	got, err := s.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Handle)

	_, err = s.GetByHandle(ctx, "bob")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	_, err = s.GetByEmail(ctx, "old@x.com")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestCreatePending_RefusesToDisplaceVerified(t *testing.T) {
	ctx := context.Background()
	s := NewAccountStore()
	alice := seed(t, s, "alice", "a@x.com")
	require.NoError(t, s.MarkVerified(ctx, "alice", "123456"))

	err := s.CreatePending(ctx, newPending("alice", "a@x.com"), []*domain.Account{alice})
	assert.ErrorIs(t, err, domain.ErrSignupConflict)
}

func TestMarkVerified(t *testing.T) {
	ctx := context.Background()
	s := NewAccountStore()
	seed(t, s, "alice", "a@x.com")

	assert.ErrorIs(t, s.MarkVerified(ctx, "alice", "000000"), domain.ErrCodeMismatch)
	require.NoError(t, s.MarkVerified(ctx, "alice", "123456"))
	assert.ErrorIs(t, s.MarkVerified(ctx, "alice", "123456"), domain.ErrCodeMismatch)

	got, err := s.GetByHandle(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, got.IsVerified)
	require.NotNil(t, got.VerificationCode)
	assert.Equal(t, "123456", *got.VerificationCode)
}

func TestReissueCode(t *testing.T) {
	ctx := context.Background()
	s := NewAccountStore()
	seed(t, s, "alice", "a@x.com")
	exp := time.Now().Add(2 * time.Hour).UTC()

	issued, err := s.ReissueCode(ctx, "alice", domain.PendingCode{Code: "654321", ExpiresAt: exp})
	require.NoError(t, err)
	assert.True(t, issued)
	require.NoError(t, s.MarkVerified(ctx, "alice", "654321"))

	issued, err = s.ReissueCode(ctx, "alice", domain.PendingCode{Code: "111111", ExpiresAt: exp})
	require.NoError(t, err)
	assert.False(t, issued)

	_, err = s.ReissueCode(ctx, "ghost", domain.PendingCode{Code: "111111", ExpiresAt: exp})
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestAppendMessage_RespectsAcceptanceFlag(t *testing.T) {
	ctx := context.Background()
	s := NewAccountStore()
	seed(t, s, "alice", "a@x.com")

	require.NoError(t, s.SetAcceptingMessages(ctx, "alice", false))
	err := s.AppendMessage(ctx, "alice", domain.Message{MessageID: "m1", Content: "hello there friend"})
	assert.ErrorIs(t, err, domain.ErrMessagesClosed)

	require.NoError(t, s.SetAcceptingMessages(ctx, "alice", true))
	require.NoError(t, s.AppendMessage(ctx, "alice", domain.Message{MessageID: "m1", Content: "hello there friend"}))

	err = s.AppendMessage(ctx, "nobody", domain.Message{MessageID: "m2"})
	assert.ErrorIs(t, err, domain.ErrRecipientNotFound)
}

func TestAppendMessage_ConcurrentAppendsAreAllKept(t *testing.T) {
	ctx := context.Background()
	s := NewAccountStore()
	seed(t, s, "alice", "a@x.com")

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.AppendMessage(ctx, "alice", domain.Message{MessageID: fmt.Sprintf("m%02d", i)}))
		}(i)
	}
	wg.Wait()

	got, err := s.GetByHandle(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, got.Messages, n)
}

func TestRemoveMessage(t *testing.T) {
	ctx := context.Background()
	s := NewAccountStore()
	seed(t, s, "alice", "a@x.com")
	seed(t, s, "bob", "b@x.com")
	for _, id := range []string{"m1", "m2", "m3"} {
		require.NoError(t, s.AppendMessage(ctx, "alice", domain.Message{MessageID: id}))
	}
	require.NoError(t, s.AppendMessage(ctx, "bob", domain.Message{MessageID: "b1"}))

	require.NoError(t, s.RemoveMessage(ctx, "alice", "m2"))
	assert.ErrorIs(t, s.RemoveMessage(ctx, "alice", "m2"), domain.ErrMessageNotFound)
	assert.ErrorIs(t, s.RemoveMessage(ctx, "alice", "b1"), domain.ErrMessageNotFound, "other accounts' messages are invisible")

	got, err := s.GetByHandle(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "m1", got.Messages[0].MessageID)
	assert.Equal(t, "m3", got.Messages[1].MessageID)

	bob, err := s.GetByHandle(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, bob.Messages, 1)
}

func TestGetByHandle_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewAccountStore()
	seed(t, s, "alice", "a@x.com")

	got, err := s.GetByHandle(ctx, "alice")
	require.NoError(t, err)
	got.IsAcceptingMessages = false

	again, err := s.GetByHandle(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, again.IsAcceptingMessages)
}
