package redisstore_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/stonevalleypartners/auth-library/accounts"
	"github.com/stonevalleypartners/auth-library/accounts/redisstore"
)

func setupStore(t *testing.T) *redisstore.Store {
	t.Helper()

	mr := miniredis.RunT(t)
	store, err := redisstore.New(redisstore.Config{RedisAddr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSaveAndLookupByID(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	account := &accounts.Account{
		ID:           "u1",
		Email:        "user@example.com",
		PasswordHash: "$2a$10$hash",
	}
	require.NoError(t, store.Save(ctx, account))

	loaded, err := store.LookupAccount(ctx, accounts.Query{ID: "u1"})
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, account.Email, loaded.Email)
	require.Equal(t, account.PasswordHash, loaded.PasswordHash)
}

func TestLookupByEmail(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &accounts.Account{ID: "u1", Email: "user@example.com"}))

	loaded, err := store.LookupAccount(ctx, accounts.Query{Email: "user@example.com"})
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, "u1", loaded.ID)
}

func TestLookupMissingAccount(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	loaded, err := store.LookupAccount(ctx, accounts.Query{ID: "nope"})
	require.NoError(t, err)
	require.Nil(t, loaded)

	loaded, err = store.LookupAccount(ctx, accounts.Query{Email: "nope@example.com"})
	require.NoError(t, err)
	require.Nil(t, loaded)

	loaded, err = store.LookupAccount(ctx, accounts.Query{})
	require.NoError(t, err)
	require.Nil(t, loaded)
}

func TestUpdateRefreshTokens(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	account := &accounts.Account{ID: "u1", Email: "user@example.com"}
	require.NoError(t, store.Save(ctx, account))

	account.RefreshTokens = []string{"newest", "older"}
	require.NoError(t, store.UpdateRefreshTokens(ctx, account))

	loaded, err := store.LookupAccount(ctx, accounts.Query{ID: "u1"})
	require.NoError(t, err)
	require.Equal(t, []string{"newest", "older"}, loaded.RefreshTokens)
}

func TestRegisterExternalAccount(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	ext := accounts.External{
		Provider:   "google",
		ProviderID: "goog-123",
		Name:       "Jane Doe",
		Email:      "jane@example.com",
	}
	account, err := store.RegisterExternalAccount(ctx, ext)
	require.NoError(t, err)
	require.NotEmpty(t, account.ID)

	loaded, err := store.LookupAccount(ctx, accounts.Query{Provider: "google", ProviderID: "goog-123"})
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, account.ID, loaded.ID)
	require.Equal(t, ext, loaded.External)
}

func TestSaveRequiresID(t *testing.T) {
	store := setupStore(t)
	require.Error(t, store.Save(context.Background(), &accounts.Account{}))
}
