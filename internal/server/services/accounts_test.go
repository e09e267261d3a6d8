package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/lockbox/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountService_Lifecycle(t *testing.T) {
	repos := newFakeRepoManager()
	s := NewAccountService(newTxDB(t), repos)
	ctx := context.Background()

	_, exists, err := s.AccountExists(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, exists)

	u, err := s.CreateAccount(ctx, "a@x.com", "pw1", true)
	require.NoError(t, err)
	assert.True(t, u.EmailVerified)
	assert.NotEqual(t, "pw1", u.PasswordHash, "password is stored hashed")

	again, err := s.CreateAccount(ctx, "a@x.com", "other", false)
	require.NoError(t, err, "duplicate create returns the existing account")
	assert.Equal(t, u.ID, again.ID)

	got, err := s.SignIn(ctx, "a@x.com", "pw1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = s.SignIn(ctx, "a@x.com", "wrong")
	assert.ErrorIs(t, err, common.ErrAuth)
	_, err = s.SignIn(ctx, "ghost@x.com", "pw1")
	assert.ErrorIs(t, err, common.ErrAuth)

	require.NoError(t, s.SetPassword(ctx, u.ID, "pw2"))
	_, err = s.SignIn(ctx, "a@x.com", "pw2")
	assert.NoError(t, err)

	assert.ErrorIs(t, s.SetPassword(ctx, "missing", "pw"), common.ErrAuth)
}
