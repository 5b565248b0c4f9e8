package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/koayon/training-song/internal/chart"
	"github.com/koayon/training-song/internal/datemap"
	"github.com/koayon/training-song/internal/song"
)

// SongService handles one percentage request end to end.
type SongService interface {
	Handle(ctx context.Context, req song.Request) (song.Selection, error)
}

// CredentialChecker reports whether a user already has a stored
// credential.
type CredentialChecker interface {
	Exists(ctx context.Context, email string) (bool, error)
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	songs SongService
	creds CredentialChecker
}

// NewHandlers creates a Handlers instance.
func NewHandlers(songs SongService, creds CredentialChecker) *Handlers {
	return &Handlers{songs: songs, creds: creds}
}

// Song handles the main endpoint (GET /). Query parameters: p
// (percentage or fraction, required), chart, autoplay, email
// (required), spotify_client_code (first authorization only).
func (h *Handlers) Song(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	rawP := q.Get("p")
	if rawP == "" {
		writeError(w, http.StatusBadRequest, "Missing required parameter p")
		return
	}
	p, err := strconv.ParseFloat(rawP, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Parameter p must be a number")
		return
	}

	email := q.Get("email")
	if email == "" {
		writeError(w, http.StatusBadRequest, "Missing Spotify code and email")
		return
	}

	autoplay, _ := strconv.ParseBool(q.Get("autoplay"))

	req := song.Request{
		Percentage:        p,
		Chart:             q.Get("chart"),
		Autoplay:          autoplay,
		Email:             email,
		AuthorizationCode: q.Get("spotify_client_code"),
	}

	sel, err := h.songs.Handle(r.Context(), req)
	switch {
	case errors.Is(err, datemap.ErrInvalidPercentage):
		writeError(w, http.StatusBadRequest, "Please enter a percentage between 0 and 100")
		return
	case errors.Is(err, chart.ErrChartUnavailable):
		writeError(w, http.StatusNotFound, "No chart data found")
		return
	case errors.Is(err, chart.ErrProvider):
		writeError(w, http.StatusBadGateway, "Chart provider unavailable")
		return
	case err != nil:
		log.WithError(err).Error("song request failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, sel)
}

// Hello is the liveness probe (GET /hello).
func (h *Handlers) Hello(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"hello": "world"})
}

// EmailInDB reports whether a stored credential exists for an email
// (GET /email_in_db). Callers use it to decide whether an interactive
// authorization round-trip is needed.
func (h *Handlers) EmailInDB(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		writeError(w, http.StatusBadRequest, "Missing required parameter email")
		return
	}

	exists, err := h.creds.Exists(r.Context(), email)
	if err != nil {
		log.WithError(err).Error("credential lookup failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	// Historical string convention: "True" or "".
	present := ""
	if exists {
		present = "True"
	}
	writeJSON(w, http.StatusOK, map[string]string{"present_in_db": present})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.WithError(err).Error("encoding response")
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
