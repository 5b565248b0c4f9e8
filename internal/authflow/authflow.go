// Package authflow captures a Spotify authorization code from the
// OAuth redirect during interactive authorization. The code is
// delivered exactly once through a single-slot channel with a bounded
// wait, instead of a shared variable polled in a loop.
package authflow

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout bounds the wait for the user to finish authorizing
// in their browser.
const DefaultTimeout = 2 * time.Minute

var (
	// ErrTimeout is returned when no callback arrives in time.
	ErrTimeout = errors.New("timed out waiting for authorization callback")

	// ErrStateMismatch is returned when the callback's state parameter
	// does not match the one sent with the consent URL.
	ErrStateMismatch = errors.New("authorization state mismatch")
)

// CodeFlow runs a local HTTP server that waits for one authorization
// redirect and hands the code to the caller.
type CodeFlow struct {
	addr    string
	path    string
	state   string
	timeout time.Duration

	codeCh chan string
	errCh  chan error
	once   sync.Once
}

// New creates a CodeFlow listening on addr (host:port) at path.
func New(addr, path string) *CodeFlow {
	return &CodeFlow{
		addr:    addr,
		path:    path,
		state:   uuid.NewString(),
		timeout: DefaultTimeout,
		codeCh:  make(chan string, 1),
		errCh:   make(chan error, 1),
	}
}

// State returns the nonce to embed in the consent URL.
func (f *CodeFlow) State() string {
	return f.state
}

// Wait serves the callback endpoint until a code arrives, the timeout
// elapses, or ctx is cancelled. It returns the captured code.
func (f *CodeFlow) Wait(ctx context.Context) (string, error) {
	mux := http.NewServeMux()
	mux.HandleFunc(f.path, f.handleCallback)

	server := &http.Server{
		Addr:    f.addr,
		Handler: mux,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			f.errCh <- fmt.Errorf("callback server: %w", err)
		}
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	select {
	case code := <-f.codeCh:
		return code, nil
	case err := <-f.errCh:
		return "", err
	case <-time.After(f.timeout):
		return "", ErrTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// handleCallback processes the redirect from the authorization
// provider. Only the first valid callback is delivered.
func (f *CodeFlow) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if state := q.Get("state"); state != "" && state != f.state {
		http.Error(w, "State mismatch", http.StatusBadRequest)
		f.deliverErr(ErrStateMismatch)
		return
	}

	if errMsg := q.Get("error"); errMsg != "" {
		http.Error(w, "Authorization failed: "+errMsg, http.StatusBadRequest)
		f.deliverErr(fmt.Errorf("authorization refused: %s", errMsg))
		return
	}

	code := q.Get("code")
	if code == "" {
		http.Error(w, "Missing code parameter", http.StatusBadRequest)
		return
	}

	f.once.Do(func() { f.codeCh <- code })

	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, "<html><body><h1>Success!</h1><p>You can close this window and return to the terminal.</p></body></html>")
}

func (f *CodeFlow) deliverErr(err error) {
	select {
	case f.errCh <- err:
	default:
	}
}
