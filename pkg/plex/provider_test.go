package plex

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestProvider(t *testing.T, baseURL, minVersion string) *Provider {
	t.Helper()
	p, err := NewProvider(ProviderOptions{
		Client:         ClientOptions{BaseURL: baseURL, Token: testToken},
		SessionTimeout: time.Minute,
		MinVersion:     minVersion,
	})
	if err != nil {
		t.Fatalf("plex:provider_test - NewProvider failed: %v", err)
	}
	return p
}

func countIdentity(f *fakePlex) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if r.URL.Path == "/identity" {
			n++
		}
	}
	return n
}

func TestProvider_CachesUntilTimeout(t *testing.T) {
	f, srv := newFakePlex(t, map[string]string{"GET /identity": identityJSON})
	p := newTestProvider(t, srv.URL, "")

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	first, err := p.Session(context.Background())
	if err != nil {
		t.Fatalf("plex:provider_test - Session failed: %v", err)
	}
	second, _ := p.Session(context.Background())
	if first != second {
		t.Error("plex:provider_test - expected the cached session to be reused")
	}
	if n := countIdentity(f); n != 1 {
		t.Errorf("plex:provider_test - identity calls = %d, want 1", n)
	}

	now = now.Add(2 * time.Minute)
	third, err := p.Session(context.Background())
	if err != nil {
		t.Fatalf("plex:provider_test - refresh failed: %v", err)
	}
	if third == first {
		t.Error("plex:provider_test - expected a fresh session after expiry")
	}
	if n := countIdentity(f); n != 2 {
		t.Errorf("plex:provider_test - identity calls = %d, want 2", n)
	}

	machine, err := third.MachineIdentifier(context.Background())
	if err != nil || machine != "abc123" {
		t.Errorf("plex:provider_test - machine id = %q, %v", machine, err)
	}
	if n := countIdentity(f); n != 2 {
		t.Error("plex:provider_test - machine id should come from the verified session")
	}
}

func TestProvider_Invalidate(t *testing.T) {
	f, srv := newFakePlex(t, map[string]string{"GET /identity": identityJSON})
	p := newTestProvider(t, srv.URL, "")

	if _, err := p.Session(context.Background()); err != nil {
		t.Fatalf("plex:provider_test - Session failed: %v", err)
	}
	p.Invalidate()
	if _, err := p.Session(context.Background()); err != nil {
		t.Fatalf("plex:provider_test - Session failed: %v", err)
	}
	if n := countIdentity(f); n != 2 {
		t.Errorf("plex:provider_test - identity calls = %d, want 2", n)
	}
}

func TestProvider_MinimumVersion(t *testing.T) {
	_, srv := newFakePlex(t, map[string]string{"GET /identity": identityJSON})

	if _, err := newTestProvider(t, srv.URL, "1.32.0").Session(context.Background()); err != nil {
		t.Errorf("plex:provider_test - 1.40.2 should satisfy 1.32.0: %v", err)
	}
	if _, err := newTestProvider(t, srv.URL, "1.41.0").Session(context.Background()); err == nil {
		t.Error("plex:provider_test - 1.40.2 should not satisfy 1.41.0")
	}
}

func TestProvider_ConnectFailure(t *testing.T) {
	_, srv := newFakePlex(t, map[string]string{})
	p, err := NewProvider(ProviderOptions{Client: ClientOptions{BaseURL: srv.URL, Token: "wrong"}})
	if err != nil {
		t.Fatalf("plex:provider_test - NewProvider failed: %v", err)
	}
	if _, err := p.Session(context.Background()); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("plex:provider_test - expected ErrUnauthorized, got %v", err)
	}
}

func TestNewProvider_RejectsBadConfig(t *testing.T) {
	if _, err := NewProvider(ProviderOptions{Client: ClientOptions{BaseURL: "http://plex:32400"}}); err == nil {
		t.Error("plex:provider_test - expected missing token error")
	}
	if _, err := NewProvider(ProviderOptions{
		Client:     ClientOptions{BaseURL: "http://plex:32400", Token: "x"},
		MinVersion: "newest",
	}); err == nil {
		t.Error("plex:provider_test - expected bad constraint error")
	}
}

func TestProvider_ConnectErrorIsTyped(t *testing.T) {
	p := newTestProvider(t, "http://127.0.0.1:1", "")
	_, err := p.Session(context.Background())

	var connErr *ConnectError
	if !errors.As(err, &connErr) {
		t.Fatalf("plex:provider_test - expected *ConnectError, got %T %v", err, err)
	}
	if connErr.BaseURL != "http://127.0.0.1:1" {
		t.Errorf("plex:provider_test - BaseURL = %q", connErr.BaseURL)
	}
	if !IsTransportError(err) {
		t.Errorf("plex:provider_test - refused dial should be a transport error: %v", err)
	}
	reason := Reason(err)
	if reason != "connection refused" || strings.Contains(reason, "127.0.0.1") || strings.Contains(reason, "plex:") {
		t.Errorf("plex:provider_test - Reason = %q", reason)
	}
}

func TestProvider_UnsupportedVersionReason(t *testing.T) {
	_, srv := newFakePlex(t, map[string]string{"GET /identity": identityJSON})
	_, err := newTestProvider(t, srv.URL, "1.41.0").Session(context.Background())
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("plex:provider_test - expected ErrUnsupportedVersion, got %v", err)
	}
	if Reason(err) != "unsupported Plex server version" {
		t.Errorf("plex:provider_test - Reason = %q", Reason(err))
	}
}

func TestProvider_WaiterHonorsOwnDeadline(t *testing.T) {
	release := make(chan struct{})
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(identityJSON))
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() {
		select {
		case <-release:
		default:
			close(release)
		}
	})
	p := newTestProvider(t, srv.URL, "")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	if _, err := p.Session(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("plex:provider_test - expected DeadlineExceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("plex:provider_test - waiter blocked for %s", elapsed)
	}

	// The shared connect keeps going and later callers reuse it.
	close(release)
	if _, err := p.Session(context.Background()); err != nil {
		t.Fatalf("plex:provider_test - Session failed: %v", err)
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("plex:provider_test - identity calls = %d, want 1", n)
	}
}
