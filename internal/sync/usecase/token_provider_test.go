package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	syncdomain "nexcrm-backend/internal/sync/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestGetAccessToken_NotLinked(t *testing.T) {
	provider := &TokenProvider{accounts: newFakeAccountRepo()}

	_, err := provider.GetAccessToken(context.Background(), "u1")

	assert.ErrorIs(t, err, syncdomain.ErrNotLinked)
}

func TestGetAccessToken_CachedTokenStillValid(t *testing.T) {
	accounts := newFakeAccountRepo()
	accounts.Save(&syncdomain.GoogleAccount{
		UserID:      "u1",
		AccessToken: "cached",
		TokenExpiry: time.Now().Add(time.Hour),
	})
	provider := &TokenProvider{
		accounts: accounts,
		refresh: func(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
			t.Fatal("refresh must not run while the cached token is valid")
			return nil, nil
		},
	}

	token, err := provider.GetAccessToken(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, "cached", token)
}

func TestGetAccessToken_TokenInsideValidityWindowRefreshes(t *testing.T) {
	accounts := newFakeAccountRepo()
	accounts.Save(&syncdomain.GoogleAccount{
		UserID:       "u1",
		AccessToken:  "almost-expired",
		RefreshToken: "refresh-1",
		TokenExpiry:  time.Now().Add(10 * time.Second),
	})
	accounts.saves = 0

	newExpiry := time.Now().Add(time.Hour)
	provider := &TokenProvider{
		accounts: accounts,
		refresh: func(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
			assert.Equal(t, "refresh-1", refreshToken)
			return &oauth2.Token{AccessToken: "fresh", Expiry: newExpiry}, nil
		},
	}

	token, err := provider.GetAccessToken(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, "fresh", token)

	// Refreshed token is persisted, original refresh token kept
	saved, _ := accounts.FindByUserID("u1")
	assert.Equal(t, "fresh", saved.AccessToken)
	assert.Equal(t, "refresh-1", saved.RefreshToken)
	assert.Equal(t, 1, accounts.saves)
}

func TestGetAccessToken_RotatedRefreshTokenPersisted(t *testing.T) {
	accounts := newFakeAccountRepo()
	accounts.Save(&syncdomain.GoogleAccount{
		UserID:       "u1",
		RefreshToken: "refresh-old",
	})
	provider := &TokenProvider{
		accounts: accounts,
		refresh: func(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
			return &oauth2.Token{AccessToken: "fresh", RefreshToken: "refresh-new", Expiry: time.Now().Add(time.Hour)}, nil
		},
	}

	_, err := provider.GetAccessToken(context.Background(), "u1")

	require.NoError(t, err)
	saved, _ := accounts.FindByUserID("u1")
	assert.Equal(t, "refresh-new", saved.RefreshToken)
}

func TestGetAccessToken_NoRefreshToken(t *testing.T) {
	accounts := newFakeAccountRepo()
	accounts.Save(&syncdomain.GoogleAccount{
		UserID:      "u1",
		AccessToken: "stale",
		TokenExpiry: time.Now().Add(-time.Minute),
	})
	provider := &TokenProvider{accounts: accounts}

	_, err := provider.GetAccessToken(context.Background(), "u1")

	assert.ErrorIs(t, err, syncdomain.ErrReauthRequired)
}

func TestGetAccessToken_RevokedRefreshToken(t *testing.T) {
	accounts := newFakeAccountRepo()
	accounts.Save(&syncdomain.GoogleAccount{
		UserID:       "u1",
		RefreshToken: "revoked",
	})
	provider := &TokenProvider{
		accounts: accounts,
		refresh: func(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
			return nil, &oauth2.RetrieveError{ErrorCode: "invalid_grant"}
		},
	}

	_, err := provider.GetAccessToken(context.Background(), "u1")

	assert.ErrorIs(t, err, syncdomain.ErrReauthRequired)
}

func TestGetAccessToken_TransientRefreshFailure(t *testing.T) {
	accounts := newFakeAccountRepo()
	accounts.Save(&syncdomain.GoogleAccount{
		UserID:       "u1",
		RefreshToken: "refresh-1",
	})
	provider := &TokenProvider{
		accounts: accounts,
		refresh: func(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
			return nil, errors.New("token endpoint timeout")
		},
	}

	_, err := provider.GetAccessToken(context.Background(), "u1")

	require.Error(t, err)
	assert.NotErrorIs(t, err, syncdomain.ErrReauthRequired)
}
