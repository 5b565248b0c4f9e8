// Package song composes date mapping, chart lookup, credentials and
// playback into one end-to-end selection per request.
package song

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/koayon/training-song/internal/chart"
	"github.com/koayon/training-song/internal/datemap"
	"github.com/koayon/training-song/internal/playback"
)

// Request is the unit of work for one end-user call.
type Request struct {
	Percentage        float64
	Chart             string
	Autoplay          bool
	Email             string
	AuthorizationCode string
}

// Selection is the response payload for one request.
type Selection struct {
	SpotifyLink string  `json:"spotify_link"`
	SongName    string  `json:"song_name"`
	ArtistName  string  `json:"artist_name"`
	TargetDate  string  `json:"target_date"`
	Percentage  float64 `json:"percentage"`
	Chart       string  `json:"chart"`
	Errors      string  `json:"errors"`
	SongInfo    string  `json:"song_info"`
}

// ChartSource provides the top chart entry for a date.
type ChartSource interface {
	TopEntry(ctx context.Context, date time.Time, chartID string) (chart.Entry, error)
}

// TokenSource yields a valid access token for a user.
type TokenSource interface {
	SessionToken(ctx context.Context, email, code string) (string, error)
}

// Player resolves tracks and starts playback for one session.
type Player interface {
	ResolveTrack(ctx context.Context, title, artist string) (playback.Track, error)
	Start(ctx context.Context, uri string) error
}

// Config tunes request normalization and fallback routing.
type Config struct {
	// FallbackThresholdPercent routes percentages below it to the
	// curated fallback table instead of the chart provider.
	FallbackThresholdPercent float64

	// FractionCutoff: percentages strictly below it are treated as
	// fractions and scaled by 100.
	FractionCutoff float64
}

// Service is the request orchestrator.
type Service struct {
	charts ChartSource
	tokens TokenSource
	cfg    Config

	// newPlayer is swappable for tests.
	newPlayer func(ctx context.Context, accessToken string) Player
}

// NewService creates a Service backed by the real Spotify player.
func NewService(charts ChartSource, tokens TokenSource, cfg Config) *Service {
	return &Service{
		charts: charts,
		tokens: tokens,
		cfg:    cfg,
		newPlayer: func(ctx context.Context, accessToken string) Player {
			return playback.New(ctx, accessToken)
		},
	}
}

// Handle resolves a song for the request's percentage and, when the
// user's credentials allow it, a playback link and optional autoplay.
//
// Only date and chart resolution can fail the whole call. Everything
// downstream of a resolved song degrades into the Errors field so the
// caller always learns the song.
func (s *Service) Handle(ctx context.Context, req Request) (Selection, error) {
	percentage, err := s.normalize(req.Percentage)
	if err != nil {
		return Selection{}, err
	}

	chartID := req.Chart
	if chartID == "" {
		chartID = chart.DefaultChart
	}

	sel, err := s.resolveSong(ctx, percentage, chartID)
	if err != nil {
		return Selection{}, err
	}

	var problems []string

	token, err := s.tokens.SessionToken(ctx, req.Email, req.AuthorizationCode)
	if err != nil {
		log.WithError(err).WithField("email", req.Email).Warn("could not obtain session token")
		sel.Errors = fmt.Sprintf("%v. Failed to create Spotify client.", err)
		return sel, nil
	}

	player := s.newPlayer(ctx, token)

	track, err := player.ResolveTrack(ctx, sel.SongName, sel.ArtistName)
	if err != nil {
		problems = append(problems, fmt.Sprintf("%v.", err))
	} else {
		sel.SpotifyLink = track.Link
	}

	if req.Autoplay && err == nil {
		if playErr := player.Start(ctx, track.URI); playErr != nil {
			problems = append(problems, playbackProblem(playErr))
		}
	}

	sel.Errors = strings.Join(problems, " ")
	return sel, nil
}

// normalize rescales fractional inputs and validates the range.
func (s *Service) normalize(p float64) (float64, error) {
	if p < s.cfg.FractionCutoff {
		p *= 100
	}
	if p < 0 || p > 100 {
		return 0, datemap.ErrInvalidPercentage
	}
	return p, nil
}

// resolveSong picks the song for a percentage: curated fallback below
// the coverage threshold, chart provider otherwise. A provider data
// gap substitutes the universal default rather than failing.
func (s *Service) resolveSong(ctx context.Context, percentage float64, chartID string) (Selection, error) {
	sel := Selection{
		Percentage: percentage,
		Chart:      chartID,
	}

	if percentage < s.cfg.FallbackThresholdPercent {
		entry, curated := chart.Fallback(int(percentage))
		log.WithFields(log.Fields{"percentage": percentage, "curated": curated}).Debug("serving fallback song")

		sel.SongName = entry.Title
		sel.ArtistName = entry.Artist
		sel.SongInfo = chart.FallbackDescription(chartID, entry)
		return sel, nil
	}

	date, err := datemap.Date(percentage)
	if err != nil {
		return Selection{}, err
	}
	sel.TargetDate = date.Format("2006-01-02")

	entry, err := s.charts.TopEntry(ctx, date, chartID)
	switch {
	case errors.Is(err, chart.ErrChartUnavailable):
		entry = chart.Default()
		sel.SongName = entry.Title
		sel.ArtistName = entry.Artist
		sel.SongInfo = fmt.Sprintf("No %s chart data exists for %s. Here's %s by %s instead.",
			chartID, sel.TargetDate, entry.Title, entry.Artist)
		return sel, nil
	case err != nil:
		return Selection{}, err
	}

	sel.SongName = entry.Title
	sel.ArtistName = entry.Artist
	sel.SongInfo = fmt.Sprintf("The Number 1 song %v%% through the 1900s on the %s chart was %s by %s. \nThe date was %s and the song was on the chart for %d weeks.",
		percentage, chartID, entry.Title, entry.Artist, sel.TargetDate, entry.WeeksOnChart)
	return sel, nil
}

// playbackProblem maps playback failures onto user-facing messages.
func playbackProblem(err error) string {
	if errors.Is(err, playback.ErrNoActiveDevice) {
		return "Unable to start playback because there are no active devices available. " +
			"Please ensure that Spotify is active on one of your devices and try again."
	}
	return fmt.Sprintf("%v. Unable to start playback. Please ensure that Spotify is active on one of your devices and try again.", err)
}
