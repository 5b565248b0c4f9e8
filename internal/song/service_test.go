package song

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/koayon/training-song/internal/chart"
	"github.com/koayon/training-song/internal/datemap"
	"github.com/koayon/training-song/internal/playback"
)

type fakeCharts struct {
	entry chart.Entry
	err   error

	calls    int
	lastDate time.Time
}

func (f *fakeCharts) TopEntry(_ context.Context, date time.Time, _ string) (chart.Entry, error) {
	f.calls++
	f.lastDate = date
	return f.entry, f.err
}

type fakeTokens struct {
	token string
	err   error
}

func (f *fakeTokens) SessionToken(_ context.Context, _, _ string) (string, error) {
	return f.token, f.err
}

type fakePlayer struct {
	track    playback.Track
	trackErr error
	startErr error

	starts int
}

func (f *fakePlayer) ResolveTrack(_ context.Context, _, _ string) (playback.Track, error) {
	return f.track, f.trackErr
}

func (f *fakePlayer) Start(_ context.Context, _ string) error {
	f.starts++
	return f.startErr
}

func testConfig() Config {
	return Config{FallbackThresholdPercent: 52, FractionCutoff: 1}
}

func newTestService(charts ChartSource, tokens TokenSource, player Player) *Service {
	s := NewService(charts, tokens, testConfig())
	s.newPlayer = func(context.Context, string) Player { return player }
	return s
}

func TestHandleChartPath(t *testing.T) {
	charts := &fakeCharts{entry: chart.Entry{Title: "Bad Blood", Artist: "Neil Sedaka", WeeksOnChart: 9}}
	player := &fakePlayer{track: playback.Track{
		Link: "https://open.spotify.com/track/abc",
		Name: "Bad Blood",
		URI:  "spotify:track:abc",
	}}
	s := newTestService(charts, &fakeTokens{token: "access-1"}, player)

	sel, err := s.Handle(context.Background(), Request{
		Percentage: 75.8,
		Chart:      "hot-100",
		Email:      "u@example.com",
	})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}

	if sel.TargetDate != "1975-10-19" {
		t.Errorf("TargetDate = %q, want 1975-10-19", sel.TargetDate)
	}
	if sel.SpotifyLink == "" {
		t.Error("SpotifyLink is empty")
	}
	if sel.Errors != "" {
		t.Errorf("Errors = %q, want empty", sel.Errors)
	}
	if sel.SongName != "Bad Blood" || sel.ArtistName != "Neil Sedaka" {
		t.Errorf("song = %q by %q", sel.SongName, sel.ArtistName)
	}
	if !strings.Contains(sel.SongInfo, "9 weeks") {
		t.Errorf("SongInfo missing weeks: %s", sel.SongInfo)
	}
	if player.starts != 0 {
		t.Errorf("playback started %d times with autoplay off", player.starts)
	}
}

func TestHandleFractionNormalization(t *testing.T) {
	// 0.2 is read as 20%: pre-threshold, no curated entry for offset 20.
	s := newTestService(&fakeCharts{}, &fakeTokens{token: "access-1"},
		&fakePlayer{track: playback.Track{Link: "link", URI: "uri"}})

	sel, err := s.Handle(context.Background(), Request{Percentage: 0.2, Email: "u@example.com"})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}

	if sel.Percentage != 20 {
		t.Errorf("Percentage = %v, want 20", sel.Percentage)
	}
	if sel.SongName != "Never Gonna Give You Up" {
		t.Errorf("SongName = %q, want the universal default", sel.SongName)
	}
	if !strings.Contains(sel.SongInfo, "before the hot-100 chart started") {
		t.Errorf("SongInfo does not explain the coverage gap: %s", sel.SongInfo)
	}
}

func TestHandleFallbackCurated(t *testing.T) {
	charts := &fakeCharts{}
	s := newTestService(charts, &fakeTokens{token: "access-1"},
		&fakePlayer{track: playback.Track{Link: "link", URI: "uri"}})

	sel, err := s.Handle(context.Background(), Request{Percentage: 22.5, Email: "u@example.com"})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}

	if sel.SongName != "22" || sel.ArtistName != "Taylor Swift" {
		t.Errorf("song = %q by %q, want 22 by Taylor Swift", sel.SongName, sel.ArtistName)
	}
	if sel.TargetDate != "" {
		t.Errorf("TargetDate = %q, want empty for fallback", sel.TargetDate)
	}
	if charts.calls != 0 {
		t.Errorf("chart provider called %d times below the threshold", charts.calls)
	}
}

func TestHandleInvalidPercentage(t *testing.T) {
	s := newTestService(&fakeCharts{}, &fakeTokens{}, &fakePlayer{})

	for _, p := range []float64{-5, 101, 250} {
		_, err := s.Handle(context.Background(), Request{Percentage: p, Email: "u@example.com"})
		if !errors.Is(err, datemap.ErrInvalidPercentage) {
			t.Errorf("Handle(%v) error = %v, want ErrInvalidPercentage", p, err)
		}
	}
}

func TestHandleChartGapSubstitutesDefault(t *testing.T) {
	charts := &fakeCharts{err: chart.ErrChartUnavailable}
	s := newTestService(charts, &fakeTokens{token: "access-1"},
		&fakePlayer{track: playback.Track{Link: "link", URI: "uri"}})

	sel, err := s.Handle(context.Background(), Request{Percentage: 60, Email: "u@example.com"})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}

	if sel.SongName != "Never Gonna Give You Up" {
		t.Errorf("SongName = %q, want the universal default", sel.SongName)
	}
	if !strings.Contains(sel.SongInfo, "No hot-100 chart data exists") {
		t.Errorf("SongInfo = %s", sel.SongInfo)
	}
}

func TestHandleProviderFailureAborts(t *testing.T) {
	charts := &fakeCharts{err: chart.ErrProvider}
	s := newTestService(charts, &fakeTokens{}, &fakePlayer{})

	_, err := s.Handle(context.Background(), Request{Percentage: 60, Email: "u@example.com"})
	if !errors.Is(err, chart.ErrProvider) {
		t.Errorf("Handle error = %v, want ErrProvider", err)
	}
}

func TestHandleCredentialFailureKeepsSong(t *testing.T) {
	charts := &fakeCharts{entry: chart.Entry{Title: "Bad Blood", Artist: "Neil Sedaka"}}
	s := newTestService(charts, &fakeTokens{err: errors.New("no stored credential and no authorization code provided")}, &fakePlayer{})

	sel, err := s.Handle(context.Background(), Request{Percentage: 75.8, Email: "u@example.com"})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}

	if sel.SongName != "Bad Blood" {
		t.Errorf("SongName = %q, song data should survive auth failure", sel.SongName)
	}
	if !strings.Contains(sel.Errors, "Failed to create Spotify client") {
		t.Errorf("Errors = %q", sel.Errors)
	}
	if sel.SpotifyLink != "" {
		t.Errorf("SpotifyLink = %q, want empty without a session", sel.SpotifyLink)
	}
}

func TestHandleTrackNotFoundInBand(t *testing.T) {
	charts := &fakeCharts{entry: chart.Entry{Title: "Obscure", Artist: "Unknown"}}
	player := &fakePlayer{trackErr: playback.ErrTrackNotFound}
	s := newTestService(charts, &fakeTokens{token: "access-1"}, player)

	sel, err := s.Handle(context.Background(), Request{Percentage: 75.8, Autoplay: true, Email: "u@example.com"})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}

	if !strings.Contains(sel.Errors, "track not found") {
		t.Errorf("Errors = %q", sel.Errors)
	}
	if player.starts != 0 {
		t.Error("playback attempted for an unresolved track")
	}
}

func TestHandleAutoplay(t *testing.T) {
	charts := &fakeCharts{entry: chart.Entry{Title: "Bad Blood", Artist: "Neil Sedaka"}}

	tests := []struct {
		name       string
		startErr   error
		wantStarts int
		wantErrors string
	}{
		{name: "playback succeeds", startErr: nil, wantStarts: 1, wantErrors: ""},
		{
			name:       "no active device reported in band",
			startErr:   playback.ErrNoActiveDevice,
			wantStarts: 1,
			wantErrors: "no active devices available",
		},
		{
			name:       "provider playback error reported in band",
			startErr:   errors.New("starting playback: 403"),
			wantStarts: 1,
			wantErrors: "Unable to start playback",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			player := &fakePlayer{
				track:    playback.Track{Link: "link", URI: "spotify:track:abc"},
				startErr: tt.startErr,
			}
			s := newTestService(charts, &fakeTokens{token: "access-1"}, player)

			sel, err := s.Handle(context.Background(), Request{Percentage: 75.8, Autoplay: true, Email: "u@example.com"})
			if err != nil {
				t.Fatalf("Handle returned error: %v", err)
			}

			if player.starts != tt.wantStarts {
				t.Errorf("starts = %d, want %d", player.starts, tt.wantStarts)
			}
			if tt.wantErrors == "" && sel.Errors != "" {
				t.Errorf("Errors = %q, want empty", sel.Errors)
			}
			if tt.wantErrors != "" && !strings.Contains(sel.Errors, tt.wantErrors) {
				t.Errorf("Errors = %q, want substring %q", sel.Errors, tt.wantErrors)
			}
		})
	}
}

// TestHandleWithChartClient runs the orchestrator against the real
// chart HTTP client backed by a fake provider.
func TestHandleWithChartClient(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("date"); got != "1975-10-19" {
			t.Errorf("date param = %q, want 1975-10-19", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"date": "1975-10-19",
			"entries": []map[string]any{
				{"rank": 1, "title": "Bad Blood", "artist": "Neil Sedaka", "weeks_on_chart": 9},
			},
		})
	}))
	t.Cleanup(provider.Close)

	charts := chart.NewClient(provider.URL, 5*time.Second)
	player := &fakePlayer{track: playback.Track{Link: "https://open.spotify.com/track/abc", URI: "spotify:track:abc"}}
	s := newTestService(charts, &fakeTokens{token: "access-1"}, player)

	sel, err := s.Handle(context.Background(), Request{Percentage: 75.8, Chart: "hot-100", Email: "u@example.com"})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if sel.TargetDate != "1975-10-19" {
		t.Errorf("TargetDate = %q, want 1975-10-19", sel.TargetDate)
	}
	if sel.SpotifyLink == "" {
		t.Error("SpotifyLink is empty")
	}
	if sel.Errors != "" {
		t.Errorf("Errors = %q, want empty", sel.Errors)
	}
}

func TestHandleDefaultChart(t *testing.T) {
	charts := &fakeCharts{entry: chart.Entry{Title: "x", Artist: "y"}}
	s := newTestService(charts, &fakeTokens{token: "t"}, &fakePlayer{track: playback.Track{Link: "l", URI: "u"}})

	sel, err := s.Handle(context.Background(), Request{Percentage: 80, Email: "u@example.com"})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if sel.Chart != chart.DefaultChart {
		t.Errorf("Chart = %q, want %q", sel.Chart, chart.DefaultChart)
	}
}
