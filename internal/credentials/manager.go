// Package credentials manages the OAuth token lifecycle for users:
// first-time code exchange, expiry detection, refresh, and persistence.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/koayon/training-song/internal/tokenstore"
)

// Sentinel errors for the authorization lifecycle.
var (
	// ErrMissingAuthCode is returned when a user has no stored
	// credential and supplied no authorization code.
	ErrMissingAuthCode = errors.New("no stored credential and no authorization code provided")

	// ErrAuthorizationFailed is returned when the provider rejects an
	// authorization code.
	ErrAuthorizationFailed = errors.New("authorization code rejected")

	// ErrRefreshFailed is returned when the provider refuses to
	// refresh an expired token. No further retry is attempted.
	ErrRefreshFailed = errors.New("token refresh failed")
)

// Store is the slice of the token store the manager needs.
type Store interface {
	Get(ctx context.Context, email string) (*tokenstore.Credential, error)
	Put(ctx context.Context, email, accessToken, refreshToken string, expiresAt int64) error
}

// Provider exchanges and refreshes tokens with the authorization
// provider.
type Provider interface {
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// Manager obtains a valid access token for a user, persisting every
// successful provider exchange before handing the token back.
type Manager struct {
	store    Store
	provider Provider

	// now is swappable for tests.
	now func() time.Time
}

// NewManager creates a Manager.
func NewManager(store Store, provider Provider) *Manager {
	return &Manager{
		store:    store,
		provider: provider,
		now:      time.Now,
	}
}

// SessionToken returns a valid access token for email.
//
// With no stored credential, code is exchanged with the provider and
// the resulting triple persisted. With a stored credential past its
// expiry, a single refresh is attempted and persisted. A stored,
// unexpired credential is returned as-is with no provider call.
func (m *Manager) SessionToken(ctx context.Context, email, code string) (string, error) {
	cred, err := m.store.Get(ctx, email)
	if err != nil && !errors.Is(err, tokenstore.ErrNotFound) {
		return "", fmt.Errorf("loading credential: %w", err)
	}

	if cred == nil {
		if code == "" {
			return "", ErrMissingAuthCode
		}

		log.WithField("email", email).Info("exchanging authorization code")
		token, err := m.provider.Exchange(ctx, code)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrAuthorizationFailed, err)
		}

		// The exchange succeeded, so the write must happen before the
		// token is handed back. A crash between the two is the only
		// window where a token is lost.
		if err := m.store.Put(ctx, email, token.AccessToken, token.RefreshToken, token.Expiry.Unix()); err != nil {
			return "", fmt.Errorf("persisting credential: %w", err)
		}
		return token.AccessToken, nil
	}

	if cred.ExpiresAt < m.now().Unix() {
		log.WithField("email", email).Info("refreshing expired access token")
		token, err := m.provider.Refresh(ctx, cred.RefreshToken)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrRefreshFailed, err)
		}

		// Spotify may omit a new refresh token; keep the stored one.
		refreshToken := token.RefreshToken
		if refreshToken == "" {
			refreshToken = cred.RefreshToken
		}

		if err := m.store.Put(ctx, email, token.AccessToken, refreshToken, token.Expiry.Unix()); err != nil {
			return "", fmt.Errorf("persisting refreshed credential: %w", err)
		}
		return token.AccessToken, nil
	}

	return cred.AccessToken, nil
}
