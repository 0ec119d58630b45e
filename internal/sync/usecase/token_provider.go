package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	"nexcrm-backend/internal/sync/domain"
	"nexcrm-backend/internal/sync/repository"
	"nexcrm-backend/pkg/config"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// tokenValidityWindow is how much remaining lifetime a cached access token
// must have before it is handed out without a refresh round-trip.
const tokenValidityWindow = 60 * time.Second

// refreshFunc exchanges a refresh token for a fresh access token.
type refreshFunc func(ctx context.Context, refreshToken string) (*oauth2.Token, error)

// TokenProvider owns the per-user Google token cache. Callers never touch
// stored tokens directly: GetAccessToken returns a token valid for at least
// tokenValidityWindow, refreshing and persisting through the account
// repository when the cached one is stale.
type TokenProvider struct {
	accounts repository.GoogleAccountRepository
	refresh  refreshFunc
}

func NewTokenProvider(accounts repository.GoogleAccountRepository, cfg *config.Config) *TokenProvider {
	oauthCfg := &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURI,
		Endpoint:     google.Endpoint,
	}

	return &TokenProvider{
		accounts: accounts,
		refresh: func(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
			source := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
			return source.Token()
		},
	}
}

// GetAccessToken returns a usable access token for the user's linked Google
// account. Returns ErrNotLinked when no account row exists and
// ErrReauthRequired when the refresh token has been revoked upstream.
func (p *TokenProvider) GetAccessToken(ctx context.Context, userID string) (string, error) {
	account, err := p.accounts.FindByUserID(userID)
	if err != nil {
		return "", fmt.Errorf("account lookup failed: %w", err)
	}
	if account == nil {
		return "", domain.ErrNotLinked
	}

	if account.AccessToken != "" && time.Until(account.TokenExpiry) > tokenValidityWindow {
		return account.AccessToken, nil
	}

	if account.RefreshToken == "" {
		return "", domain.ErrReauthRequired
	}

	fresh, err := p.refresh(ctx, account.RefreshToken)
	if err != nil {
		if domain.IsReauthRequired(err) {
			log.Printf("[TokenProvider] Refresh token revoked for user %s, re-auth required", userID)
			return "", domain.ErrReauthRequired
		}
		return "", fmt.Errorf("token refresh failed: %w", err)
	}

	account.AccessToken = fresh.AccessToken
	account.TokenExpiry = fresh.Expiry
	if fresh.RefreshToken != "" {
		account.RefreshToken = fresh.RefreshToken
	}
	if err := p.accounts.Save(account); err != nil {
		log.Printf("[TokenProvider] Failed to persist refreshed token for user %s: %v", userID, err)
	}

	return fresh.AccessToken, nil
}
