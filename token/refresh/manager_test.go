package refresh_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stonevalleypartners/auth-library/accounts"
	"github.com/stonevalleypartners/auth-library/accounts/storefake"
	"github.com/stonevalleypartners/auth-library/token"
	"github.com/stonevalleypartners/auth-library/token/refresh"
)

const testSecret = "refresh-test-secret"

type testFixture struct {
	store   *storefake.FakeAccountStore
	issuer  *token.Issuer
	manager *refresh.Manager
	account *accounts.Account
}

func setupTestFixture(t *testing.T, issuerOpts []token.IssuerOption, managerOpts ...refresh.Option) *testFixture {
	t.Helper()

	issuer, err := token.NewIssuer(token.SymmetricConfig{Secret: testSecret}, issuerOpts...)
	require.NoError(t, err)

	store := storefake.New()
	account := store.Add(&accounts.Account{Email: "user@example.com"})

	return &testFixture{
		store:   store,
		issuer:  issuer,
		manager: refresh.NewManager(issuer, store, managerOpts...),
		account: account,
	}
}

func TestIssueRetainsNewestFirst(t *testing.T) {
	// A frozen clock: tokens minted within one tick must still be distinct
	// members of the retained set
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	f := setupTestFixture(t, []token.IssuerOption{
		token.WithNowFunc(func() time.Time { return now }),
	}, refresh.WithMaxRefreshTokens(3))

	var minted []string
	for i := 0; i < 5; i++ {
		tok, err := f.manager.Issue(context.Background(), f.account)
		require.NoError(t, err)
		require.NotContains(t, minted, tok)
		minted = append(minted, tok)
	}

	require.Len(t, f.account.RefreshTokens, 3)
	require.Equal(t, minted[4], f.account.RefreshTokens[0])
	require.Equal(t, minted[3], f.account.RefreshTokens[1])
	require.Equal(t, minted[2], f.account.RefreshTokens[2])
}

func TestIssueBelowMaximumKeepsAll(t *testing.T) {
	f := setupTestFixture(t, nil, refresh.WithMaxRefreshTokens(5))

	for i := 0; i < 2; i++ {
		_, err := f.manager.Issue(context.Background(), f.account)
		require.NoError(t, err)
	}
	require.Len(t, f.account.RefreshTokens, 2)
}

func TestRedeemValidToken(t *testing.T) {
	f := setupTestFixture(t, nil)

	minted, err := f.manager.Issue(context.Background(), f.account)
	require.NoError(t, err)

	resp, err := f.manager.Redeem(context.Background(), minted)
	require.NoError(t, err)
	require.Equal(t, f.account.ID, resp.ID)
	require.Equal(t, "bearer", resp.TokenType)
	require.Empty(t, resp.RefreshToken, "redemption does not rotate the refresh token")

	// The original token stays redeemable
	_, err = f.manager.Redeem(context.Background(), minted)
	require.NoError(t, err)
}

func TestRedeemEvictedToken(t *testing.T) {
	// Three issuances in immediate succession under a frozen clock with a
	// maximum of two: the oldest token must be gone, not a surviving duplicate
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	f := setupTestFixture(t, []token.IssuerOption{
		token.WithNowFunc(func() time.Time { return now }),
	}, refresh.WithMaxRefreshTokens(2))

	oldest, err := f.manager.Issue(context.Background(), f.account)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := f.manager.Issue(context.Background(), f.account)
		require.NoError(t, err)
	}

	require.False(t, f.account.HasRefreshToken(oldest))
	_, err = f.manager.Redeem(context.Background(), oldest)
	require.ErrorIs(t, err, refresh.ErrRefreshTokenRevoked)
}

func TestRedeemUnknownAccount(t *testing.T) {
	f := setupTestFixture(t, nil)

	orphan, err := f.issuer.IssueRefreshToken("no-such-account", nil)
	require.NoError(t, err)

	_, err = f.manager.Redeem(context.Background(), orphan)
	require.ErrorIs(t, err, refresh.ErrAccountNotFound)
}

func TestRedeemGarbageToken(t *testing.T) {
	f := setupTestFixture(t, nil)

	_, err := f.manager.Redeem(context.Background(), "not-a-token")
	require.ErrorIs(t, err, refresh.ErrInvalidRefreshToken)
}

func TestIssueDisabled(t *testing.T) {
	f := setupTestFixture(t, nil, refresh.WithMaxRefreshTokens(0))

	require.False(t, f.manager.Enabled())
	_, err := f.manager.Issue(context.Background(), f.account)
	require.Error(t, err)
}

func TestOpaqueRegime(t *testing.T) {
	f := setupTestFixture(t, []token.IssuerOption{
		token.WithRefreshFormat(token.RefreshFormatOpaque),
	})

	minted, err := f.manager.Issue(context.Background(), f.account)
	require.NoError(t, err)

	resp, err := f.manager.Redeem(context.Background(), minted)
	require.NoError(t, err)
	require.Equal(t, f.account.ID, resp.ID)
}

func TestExtendedClaims(t *testing.T) {
	f := setupTestFixture(t, nil, refresh.WithExtendedClaims(func(a *accounts.Account) map[string]any {
		return map[string]any{"email": a.Email}
	}))

	minted, err := f.manager.Issue(context.Background(), f.account)
	require.NoError(t, err)

	resp, err := f.manager.Redeem(context.Background(), minted)
	require.NoError(t, err)

	claims, err := f.issuer.Verify(resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, f.account.Email, claims["email"])
}

func TestEvictExpiredOnRedeem(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	f := setupTestFixture(t, []token.IssuerOption{
		token.WithRefreshDuration(time.Hour),
		token.WithNowFunc(func() time.Time { return now }),
	}, refresh.WithEvictExpiredOnRedeem())

	expired, err := f.manager.Issue(context.Background(), f.account)
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	fresh, err := f.manager.Issue(context.Background(), f.account)
	require.NoError(t, err)
	require.Len(t, f.account.RefreshTokens, 2)

	// The expired token itself no longer decodes
	_, err = f.manager.Redeem(context.Background(), expired)
	require.ErrorIs(t, err, refresh.ErrInvalidRefreshToken)

	// A decodable non-member triggers the opportunistic cleanup, which drops
	// the expired entry from the retained set
	nonMember, err := f.issuer.IssueRefreshToken(f.account.ID, nil)
	require.NoError(t, err)
	_, err = f.manager.Redeem(context.Background(), nonMember)
	require.ErrorIs(t, err, refresh.ErrRefreshTokenRevoked)
	require.Equal(t, []string{fresh}, f.account.RefreshTokens)

	resp, err := f.manager.Redeem(context.Background(), fresh)
	require.NoError(t, err)
	require.Equal(t, f.account.ID, resp.ID)
}
