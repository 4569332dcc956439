package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/morezero/plex-mcp-server/internal/config"
	"github.com/morezero/plex-mcp-server/pkg/commands"
	"github.com/morezero/plex-mcp-server/pkg/dispatcher"
	"github.com/morezero/plex-mcp-server/pkg/events"
	"github.com/morezero/plex-mcp-server/pkg/permission"
	"github.com/morezero/plex-mcp-server/pkg/plex"
)

const serverTestPrefix = "server:server_test"

const testToken = "test-token"

// fakePlex answers the few routes the server tests touch.
func fakePlex(t *testing.T) *httptest.Server {
	t.Helper()
	routes := map[string]string{
		"/identity":         `{"MediaContainer":{"machineIdentifier":"abc123","version":"1.40.2.8395-c67dce28e","claimed":true}}`,
		"/library/sections": `{"MediaContainer":{"Directory":[{"key":"1","title":"Movies","type":"movie"}]}}`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Plex-Token") != testToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		body, ok := routes[r.URL.Path]
		if !ok || r.Method != http.MethodGet {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// fakeUpstream hands out one client and a scripted identity check.
type fakeUpstream struct {
	client   *plex.Client
	checkErr error
}

func (f *fakeUpstream) Session(context.Context) (*plex.Client, error) { return f.client, nil }

func (f *fakeUpstream) Check(ctx context.Context) (*plex.Identity, error) {
	if f.checkErr != nil {
		return nil, f.checkErr
	}
	return f.client.Identity(ctx)
}

// testServer returns a Server wired to a fake Plex with the given tier.
func testServer(t *testing.T, tier permission.Tier) (*Server, *fakeUpstream) {
	t.Helper()
	srv := fakePlex(t)
	client, err := plex.NewClient(plex.ClientOptions{BaseURL: srv.URL, Token: testToken})
	if err != nil {
		t.Fatalf("%s - NewClient failed: %v", serverTestPrefix, err)
	}
	up := &fakeUpstream{client: client}

	reg, err := commands.NewRegistry()
	if err != nil {
		t.Fatalf("%s - NewRegistry failed: %v", serverTestPrefix, err)
	}
	disp, err := dispatcher.NewDispatcher(dispatcher.Params{Registry: reg, Sessions: up})
	if err != nil {
		t.Fatalf("%s - NewDispatcher failed: %v", serverTestPrefix, err)
	}
	cfg := &config.Config{
		ServiceName:        "plex-mcp-server",
		HealthCheckTimeout: 5 * time.Second,
		RequestTimeout:     5 * time.Second,
		COMMSSubject:       "plex.commands",
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(cfg, tier, up, disp, logger), up
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
	return rec
}

func TestHealth(t *testing.T) {
	s, up := testServer(t, permission.Write)
	h := s.Handler()

	rec := get(t, h, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("%s - status = %d, body %s", serverTestPrefix, rec.Code, rec.Body)
	}
	var out HealthOutput
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("%s - decode: %v", serverTestPrefix, err)
	}
	if out.Status != "ok" || out.Service != "plex-mcp-server" || out.Permissions != "write" || !out.Plex.Connected || out.Plex.MachineIdentifier != "abc123" {
		t.Errorf("%s - health = %+v", serverTestPrefix, out)
	}

	up.checkErr = errors.New("dial tcp: connection refused")
	rec = get(t, h, "/health")
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), `"status":"unhealthy"`) {
		t.Errorf("%s - unhealthy response = %d %s", serverTestPrefix, rec.Code, rec.Body)
	}

	if rec := get(t, h, "/ready"); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ready") {
		t.Errorf("%s - /ready = %d %s", serverTestPrefix, rec.Code, rec.Body)
	}
}

func TestCommandsEndpoints(t *testing.T) {
	s, _ := testServer(t, permission.Read)
	h := s.Handler()

	rec := get(t, h, "/commands")
	var m struct {
		Version  string `json:"version"`
		Commands []struct {
			Name string `json:"name"`
			Tier string `json:"tier"`
		} `json:"commands"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("%s - decode: %v", serverTestPrefix, err)
	}
	if m.Version != commands.Version || len(m.Commands) != s.disp.Registry().Len() {
		t.Errorf("%s - manifest version %s with %d commands", serverTestPrefix, m.Version, len(m.Commands))
	}

	rec = get(t, h, "/commands?format=yaml")
	if !strings.Contains(rec.Body.String(), "name: library_list") {
		t.Errorf("%s - yaml manifest missing library_list:\n%s", serverTestPrefix, rec.Body)
	}

	rec = get(t, h, "/commands/playlist_delete")
	var detail map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &detail); err != nil {
		t.Fatalf("%s - decode detail: %v", serverTestPrefix, err)
	}
	if detail["tier"] != "delete" || detail["allowed"] != false || detail["input_schema"] == nil {
		t.Errorf("%s - detail = %v", serverTestPrefix, detail)
	}

	rec = get(t, h, "/commands/nope")
	if rec.Code != http.StatusNotFound || rec.Body.String() != "{\"error\":\"Unknown command: nope\"}\n" {
		t.Errorf("%s - unknown detail = %d %q", serverTestPrefix, rec.Code, rec.Body)
	}
}

func TestInvoke(t *testing.T) {
	s, _ := testServer(t, permission.Read)
	h := s.Handler()

	rec := post(t, h, "/commands/library_list", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"success":true`) || !strings.Contains(rec.Body.String(), `"Movies"`) {
		t.Errorf("%s - library_list = %d %s", serverTestPrefix, rec.Code, rec.Body)
	}

	rec = post(t, h, "/commands/playlist_delete", `{"playlist_id": 7}`)
	if got, want := rec.Body.String(), `{"error":"This operation requires 'delete' permission."}`; got != want {
		t.Errorf("%s - denied body = %s, want %s", serverTestPrefix, got, want)
	}

	rec = post(t, h, "/commands/library_list", `[1,2]`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("%s - array body status = %d", serverTestPrefix, rec.Code)
	}

	rec = post(t, h, "/commands/library_list", `{"library":"x"}`)
	if !strings.Contains(rec.Body.String(), "Unknown parameter 'library'") {
		t.Errorf("%s - unknown parameter body = %s", serverTestPrefix, rec.Body)
	}
}

func TestOpenAPI(t *testing.T) {
	s, _ := testServer(t, permission.Read)
	spec := buildOpenAPISpec(s.disp.Registry(), commands.Version)

	if spec.OpenAPI != "3.0.0" || spec.Info.Version != commands.Version {
		t.Errorf("%s - spec header = %s %+v", serverTestPrefix, spec.OpenAPI, spec.Info)
	}
	if len(spec.Paths) != s.disp.Registry().Len() {
		t.Errorf("%s - expected %d paths, got %d", serverTestPrefix, s.disp.Registry().Len(), len(spec.Paths))
	}
	op := spec.Paths["/commands/media_delete"].Post
	if op == nil || op.OperationID != "media_delete" || len(op.Tags) != 1 || op.Tags[0] != "delete" {
		t.Fatalf("%s - media_delete operation = %+v", serverTestPrefix, op)
	}
	schema := op.RequestBody.Content["application/json"].Schema
	if schema["type"] != "object" {
		t.Errorf("%s - request schema = %v", serverTestPrefix, schema)
	}

	rec := get(t, s.Handler(), "/openapi.json")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/json" {
		t.Errorf("%s - /openapi.json = %d %s", serverTestPrefix, rec.Code, rec.Header().Get("Content-Type"))
	}
}

func TestHome(t *testing.T) {
	s, _ := testServer(t, permission.Write)
	rec := get(t, s.Handler(), "/")
	body := rec.Body.String()
	if rec.Code != http.StatusOK || !strings.Contains(rec.Header().Get("Content-Type"), "text/html") {
		t.Fatalf("%s - home = %d %s", serverTestPrefix, rec.Code, rec.Header().Get("Content-Type"))
	}
	for _, want := range []string{"library_list", `<tr class="denied">`, "status-ok", "connected"} {
		if !strings.Contains(body, want) {
			t.Errorf("%s - home page missing %q", serverTestPrefix, want)
		}
	}

	if rec := get(t, s.Handler(), "/missing"); rec.Code != http.StatusNotFound {
		t.Errorf("%s - /missing = %d, want 404", serverTestPrefix, rec.Code)
	}
}

func TestLogExecuted(t *testing.T) {
	pub := events.NewCallbackPublisher(logExecuted)
	evt := &events.CommandExecutedEvent{Command: "playlist_delete", Tier: "delete", DurationMs: 12}
	if err := pub.PublishExecuted(context.Background(), evt); err != nil {
		t.Errorf("%s - logging publisher must not fail: %v", serverTestPrefix, err)
	}
}
