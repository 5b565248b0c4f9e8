// Package playback resolves tracks and starts playback through the
// Spotify Web API.
package playback

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
)

// providerTimeout caps each call to the playback provider.
const providerTimeout = 15 * time.Second

// Sentinel errors.
var (
	// ErrTrackNotFound is returned when the search yields no results.
	ErrTrackNotFound = errors.New("track not found on Spotify")

	// ErrNoActiveDevice is returned when the user has no active
	// playback device, instead of surfacing an opaque provider error.
	ErrNoActiveDevice = errors.New("no active playback device")
)

// Track is a resolved Spotify track.
type Track struct {
	Link string // public web link
	Name string // Spotify's canonical track name
	URI  string // playback reference
}

// Client wraps an authenticated Spotify API client.
type Client struct {
	api *spotify.Client
}

// New creates a Client for a session access token.
func New(ctx context.Context, accessToken string) *Client {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	httpClient := oauth2.NewClient(ctx, source)
	httpClient.Timeout = providerTimeout
	return &Client{api: spotify.New(httpClient)}
}

// newWithHTTP builds a Client on an arbitrary HTTP client. Used by
// tests to point the API at a fake server.
func newWithHTTP(httpClient *http.Client) *Client {
	return &Client{api: spotify.New(httpClient)}
}

// ResolveTrack searches for a song and returns its link, canonical
// name and playback reference. Only the first search result is used.
func (c *Client) ResolveTrack(ctx context.Context, title, artist string) (Track, error) {
	query := fmt.Sprintf("%s %s", title, artist)
	result, err := c.api.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(1))
	if err != nil {
		return Track{}, fmt.Errorf("searching for track: %w", err)
	}

	if result.Tracks == nil || len(result.Tracks.Tracks) == 0 {
		return Track{}, fmt.Errorf("%w: %s by %s", ErrTrackNotFound, title, artist)
	}

	song := result.Tracks.Tracks[0]
	return Track{
		Link: song.ExternalURLs["spotify"],
		Name: song.Name,
		URI:  string(song.URI),
	}, nil
}

// Start begins playback of a track on the user's first active device.
// Returns ErrNoActiveDevice when nothing is playing anywhere, so the
// caller can report a useful message rather than a provider error.
func (c *Client) Start(ctx context.Context, uri string) error {
	devices, err := c.api.PlayerDevices(ctx)
	if err != nil {
		return fmt.Errorf("listing playback devices: %w", err)
	}

	var active *spotify.PlayerDevice
	for i := range devices {
		if devices[i].Active {
			active = &devices[i]
			break
		}
	}
	if active == nil {
		return ErrNoActiveDevice
	}

	opts := &spotify.PlayOptions{
		DeviceID: &active.ID,
		URIs:     []spotify.URI{spotify.URI(uri)},
	}
	if err := c.api.PlayOpt(ctx, opts); err != nil {
		return fmt.Errorf("starting playback: %w", err)
	}
	return nil
}
