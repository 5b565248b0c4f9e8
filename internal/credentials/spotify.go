package credentials

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	spotifyoauth "golang.org/x/oauth2/spotify"
)

// providerTimeout caps each call to the accounts service.
const providerTimeout = 15 * time.Second

// Scopes requested during authorization. Playback control plus the
// read scopes the player endpoints require.
var Scopes = []string{
	"user-modify-playback-state",
	"user-read-currently-playing",
	"user-read-recently-played",
	"user-read-playback-state",
}

// SpotifyProvider implements Provider against Spotify's accounts
// service.
type SpotifyProvider struct {
	config     *oauth2.Config
	httpClient *http.Client
}

// NewSpotifyProvider creates a provider for the given application
// credentials. redirectURI must match the Spotify app configuration.
func NewSpotifyProvider(clientID, clientSecret, redirectURI string) *SpotifyProvider {
	return &SpotifyProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       Scopes,
			Endpoint:     spotifyoauth.Endpoint,
		},
		httpClient: &http.Client{Timeout: providerTimeout},
	}
}

// Exchange trades an authorization code for a token triple.
func (p *SpotifyProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return p.config.Exchange(p.withHTTPClient(ctx), code)
}

// Refresh obtains a fresh access token from a refresh token.
func (p *SpotifyProvider) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	source := p.config.TokenSource(p.withHTTPClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	return source.Token()
}

// withHTTPClient makes the oauth2 transport use the timeout-bounded
// client.
func (p *SpotifyProvider) withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}

// AuthCodeURL returns the consent URL a user visits to authorize the
// application.
func (p *SpotifyProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state)
}
