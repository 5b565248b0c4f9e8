package authflow

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

// waitWithHandler runs the flow's callback handler on an httptest
// server, avoiding a fixed listen port.
func waitWithHandler(t *testing.T, f *CodeFlow, visit func(baseURL string)) (string, error) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(f.handleCallback))
	t.Cleanup(server.Close)

	// Cleanups run last-registered-first, so this waits for the visit
	// goroutine to finish while the server is still up, keeping it from
	// calling t.Errorf after the test has completed.
	done := make(chan struct{})
	t.Cleanup(func() { <-done })

	go func() {
		defer close(done)
		visit(server.URL)
	}()

	select {
	case code := <-f.codeCh:
		return code, nil
	case err := <-f.errCh:
		return "", err
	case <-time.After(2 * time.Second):
		return "", ErrTimeout
	}
}

func TestCodeFlowDeliversCode(t *testing.T) {
	f := New("127.0.0.1:0", "/local_callback")

	code, err := waitWithHandler(t, f, func(baseURL string) {
		resp, err := http.Get(fmt.Sprintf("%s?code=the-code&state=%s", baseURL, url.QueryEscape(f.State())))
		if err != nil {
			t.Errorf("callback request failed: %v", err)
			return
		}
		resp.Body.Close()
	})
	if err != nil {
		t.Fatalf("flow returned error: %v", err)
	}
	if code != "the-code" {
		t.Errorf("code = %q, want the-code", code)
	}
}

func TestCodeFlowDeliversOnlyOnce(t *testing.T) {
	f := New("127.0.0.1:0", "/local_callback")

	code, err := waitWithHandler(t, f, func(baseURL string) {
		for i := 0; i < 3; i++ {
			resp, err := http.Get(fmt.Sprintf("%s?code=code-%d", baseURL, i))
			if err != nil {
				t.Errorf("callback request failed: %v", err)
				return
			}
			resp.Body.Close()
		}
	})
	if err != nil {
		t.Fatalf("flow returned error: %v", err)
	}
	if code != "code-0" {
		t.Errorf("code = %q, want the first delivery", code)
	}

	select {
	case extra := <-f.codeCh:
		t.Errorf("unexpected second delivery: %q", extra)
	default:
	}
}

func TestCodeFlowStateMismatch(t *testing.T) {
	f := New("127.0.0.1:0", "/local_callback")

	_, err := waitWithHandler(t, f, func(baseURL string) {
		resp, err := http.Get(baseURL + "?code=the-code&state=wrong")
		if err != nil {
			t.Errorf("callback request failed: %v", err)
			return
		}
		resp.Body.Close()
	})
	if !errors.Is(err, ErrStateMismatch) {
		t.Errorf("error = %v, want ErrStateMismatch", err)
	}
}

func TestCodeFlowProviderRefusal(t *testing.T) {
	f := New("127.0.0.1:0", "/local_callback")

	_, err := waitWithHandler(t, f, func(baseURL string) {
		resp, err := http.Get(baseURL + "?error=access_denied")
		if err != nil {
			t.Errorf("callback request failed: %v", err)
			return
		}
		resp.Body.Close()
	})
	if err == nil {
		t.Fatal("expected an error for a refused authorization")
	}
}

func TestCodeFlowBoundedWait(t *testing.T) {
	f := New("127.0.0.1:0", "/local_callback")
	f.timeout = 30 * time.Millisecond

	_, err := f.Wait(context.Background())
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("error = %v, want ErrTimeout", err)
	}
}

func TestCodeFlowContextCancel(t *testing.T) {
	f := New("127.0.0.1:0", "/local_callback")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := f.Wait(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
