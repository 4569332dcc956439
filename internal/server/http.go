package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/morezero/plex-mcp-server/pkg/commands"
	"github.com/morezero/plex-mcp-server/pkg/commsutil"
	"github.com/morezero/plex-mcp-server/pkg/manifest"
	"github.com/morezero/plex-mcp-server/pkg/registry"
	"github.com/morezero/plex-mcp-server/pkg/response"
)

const httpLogPrefix = "server:http"

// maxBodyBytes bounds POST /commands/{name} bodies.
const maxBodyBytes = 1 << 20

// Handler returns the HTTP surface: MCP over SSE and streamable HTTP, health
// and readiness checks, the catalog page and the catalog as JSON/OpenAPI.
func (s *Server) Handler() http.Handler {
	getServer := func(*http.Request) *mcp.Server { return s.mcp }
	sse := mcp.NewSSEHandler(getServer, nil)

	mux := http.NewServeMux()
	mux.Handle("/sse", sse)
	mux.Handle("/messages/", sse)
	mux.Handle("/mcp", mcp.NewStreamableHTTPHandler(getServer, nil))
	mux.HandleFunc("GET /{$}", s.handleHome())
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	mux.HandleFunc("GET /commands", s.handleCommands)
	mux.HandleFunc("GET /commands/{name}", s.handleCommandDetail)
	mux.HandleFunc("POST /commands/{name}", s.handleInvoke)
	mux.HandleFunc("GET /openapi.json", s.handleOpenAPI)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error(fmt.Sprintf("%s - json encode: %v", httpLogPrefix, err))
	}
}

// HealthOutput is the /health payload.
type HealthOutput struct {
	Status      string     `json:"status"`
	Service     string     `json:"service"`
	Version     string     `json:"version"`
	Permissions string     `json:"permissions"`
	Plex        PlexHealth `json:"plex"`
	Timestamp   string     `json:"timestamp"`
}

// PlexHealth reports the upstream identity check.
type PlexHealth struct {
	Connected         bool   `json:"connected"`
	MachineIdentifier string `json:"machine_identifier,omitempty"`
	Version           string `json:"version,omitempty"`
	Error             string `json:"error,omitempty"`
}

func (s *Server) health(ctx context.Context) *HealthOutput {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.HealthCheckTimeout)
	defer cancel()

	out := &HealthOutput{
		Status:      "ok",
		Service:     s.cfg.ServiceName,
		Version:     commands.Version,
		Permissions: s.tier.String(),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	id, err := s.upstream.Check(ctx)
	if err != nil {
		out.Status = "unhealthy"
		out.Plex.Error = err.Error()
		return out
	}
	out.Plex = PlexHealth{Connected: true, MachineIdentifier: id.MachineIdentifier, Version: id.Version}
	return out
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := s.health(r.Context())
	status := http.StatusOK
	if h.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, h)
}

func (s *Server) manifest() *manifest.Manifest {
	return manifest.FromRegistry(s.disp.Registry(), commands.Version)
}

func (s *Server) handleCommands(w http.ResponseWriter, r *http.Request) {
	m := s.manifest()
	if r.URL.Query().Get("format") == "yaml" {
		data, err := m.YAML()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		w.Write(data)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// commandDetail is the GET /commands/{name} payload.
type commandDetail struct {
	registry.CommandInfo
	Allowed     bool           `json:"allowed"`
	InputSchema map[string]any `json:"input_schema"`
}

func (s *Server) handleCommandDetail(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	cmd, err := s.disp.Registry().Lookup(name)
	if err != nil {
		status := http.StatusInternalServerError
		if registry.IsCode(err, registry.CodeUnknownCommand) {
			status = http.StatusNotFound
		}
		writeJSON(w, status, response.Error(fmt.Sprintf("Unknown command: %s", name)))
		return
	}
	writeJSON(w, http.StatusOK, commandDetail{
		CommandInfo: cmd.Info(),
		Allowed:     s.tier.Allows(cmd.Tier),
		InputSchema: cmd.InputSchema(),
	})
}

// handleInvoke runs one command with the process tier. Dispatch outcomes,
// including denials, are 200 with the canonical JSON body.
func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, response.Error("Failed to read request body"))
		return
	}
	var args map[string]any
	if strings.TrimSpace(string(body)) != "" {
		if err := commsutil.DecodePayload(body, &args); err != nil {
			writeJSON(w, http.StatusBadRequest, response.Error("Invalid arguments: expected a JSON object"))
			return
		}
	}
	resp := s.disp.Dispatch(r.Context(), r.PathValue("name"), args, s.tier)
	w.Header().Set("Content-Type", "application/json")
	io.WriteString(w, resp.JSON())
}

// openAPI3 types for publishing the catalog.
type openAPI3Spec struct {
	OpenAPI string                      `json:"openapi"`
	Info    openAPI3Info                `json:"info"`
	Paths   map[string]openAPI3PathItem `json:"paths"`
}

type openAPI3Info struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version"`
}

type openAPI3PathItem struct {
	Post *openAPI3Operation `json:"post,omitempty"`
}

type openAPI3Operation struct {
	Summary     string                      `json:"summary"`
	Description string                      `json:"description,omitempty"`
	OperationID string                      `json:"operationId"`
	Tags        []string                    `json:"tags,omitempty"`
	RequestBody *openAPI3RequestBody        `json:"requestBody,omitempty"`
	Responses   map[string]openAPI3Response `json:"responses"`
}

type openAPI3RequestBody struct {
	Content map[string]openAPI3MediaType `json:"content"`
}

type openAPI3Response struct {
	Description string                       `json:"description"`
	Content     map[string]openAPI3MediaType `json:"content,omitempty"`
}

type openAPI3MediaType struct {
	Schema map[string]any `json:"schema,omitempty"`
}

// successSchema describes the Success object of a command.
func successSchema(returns []string) map[string]any {
	props := map[string]any{"success": map[string]any{"type": "boolean", "const": true}}
	for _, f := range returns {
		props[f] = map[string]any{}
	}
	required := append([]string{"success"}, returns...)
	return map[string]any{"type": "object", "properties": props, "required": required}
}

var responseSchema = map[string]any{
	"oneOf": []any{
		map[string]any{"type": "object", "required": []string{"error"}, "properties": map[string]any{"error": map[string]any{"type": "string"}}},
		map[string]any{"type": "array", "items": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title": map[string]any{"type": "string"},
				"id":    map[string]any{"type": "integer"},
				"type":  map[string]any{"type": "string"},
				"year":  map[string]any{"type": "integer"},
			},
		}},
	},
}

// buildOpenAPISpec builds an OpenAPI 3.0 spec with one POST path per command.
func buildOpenAPISpec(reg *registry.Registry, version string) *openAPI3Spec {
	paths := make(map[string]openAPI3PathItem, reg.Len())
	for _, info := range reg.ListCommands() {
		cmd, err := reg.Lookup(info.Name)
		if err != nil {
			continue
		}
		success := successSchema(cmd.Returns)
		paths["/commands/"+cmd.Name] = openAPI3PathItem{
			Post: &openAPI3Operation{
				Summary:     cmd.Name,
				Description: cmd.Description,
				OperationID: cmd.Name,
				Tags:        []string{cmd.Tier.String()},
				RequestBody: &openAPI3RequestBody{
					Content: map[string]openAPI3MediaType{"application/json": {Schema: cmd.InputSchema()}},
				},
				Responses: map[string]openAPI3Response{
					"200": {
						Description: "Success, error or ambiguous candidates",
						Content: map[string]openAPI3MediaType{
							"application/json": {Schema: map[string]any{"oneOf": append([]any{success}, responseSchema["oneOf"].([]any)...)}},
						},
					},
				},
			},
		}
	}
	return &openAPI3Spec{
		OpenAPI: "3.0.0",
		Info: openAPI3Info{
			Title:       manifest.DefaultName,
			Description: "Permission-gated Plex Media Server commands",
			Version:     version,
		},
		Paths: paths,
	}
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=60")
	writeJSON(w, http.StatusOK, buildOpenAPISpec(s.disp.Registry(), commands.Version))
}

// homePageTemplate is the HTML for the catalog page (white bg, black/blue text).
const homePageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Health.Service}}</title>
  <style>
    * { box-sizing: border-box; }
    body { background: #fff; color: #000; font-family: system-ui, sans-serif; margin: 0; padding: 2rem; line-height: 1.5; }
    a { color: #0066cc; }
    h1, h2, h3 { color: #0066cc; }
    .status-ok { color: #0066cc; font-weight: bold; }
    .status-unhealthy { color: #cc0000; font-weight: bold; }
    table { border-collapse: collapse; width: 100%; max-width: 1100px; margin-top: 0.5rem; }
    th, td { text-align: left; padding: 0.5rem 0.75rem; border: 1px solid #ccc; vertical-align: top; }
    th { background: #f0f4f8; color: #0066cc; }
    .stat { font-weight: bold; color: #0066cc; }
    .meta { color: #333; font-size: 0.9rem; margin-top: 1rem; }
    .denied { color: #999; }
    section { margin-bottom: 2rem; }
    .error { color: #cc0000; }
    code { font-size: 0.85rem; }
  </style>
</head>
<body>
  <h1>{{.Health.Service}}</h1>
  <p class="meta">Version {{.Health.Version}}. MCP over SSE at <code>/sse</code>, streamable HTTP at <code>/mcp</code>.</p>

  <section>
    <h2>Health</h2>
    <p>Status: <span class="status-{{.Health.Status}}">{{.Health.Status}}</span></p>
    <p>Plex: {{if .Health.Plex.Connected}}<span class="stat">connected</span> ({{.Health.Plex.Version}}){{else}}<span class="error">{{.Health.Plex.Error}}</span>{{end}}</p>
    <p>Permissions: <span class="stat">{{.Health.Permissions}}</span></p>
    <p>Timestamp: {{.Health.Timestamp}}</p>
  </section>

  <section>
    <h2>Commands</h2>
    <p>Total commands: <span class="stat">{{len .Commands}}</span>, available with current permissions: <span class="stat">{{.Allowed}}</span>. See <a href="/commands">/commands</a> and <a href="/openapi.json">/openapi.json</a>.</p>
    <table>
      <thead>
        <tr><th>Command</th><th>Tier</th><th>Parameters</th><th>Description</th></tr>
      </thead>
      <tbody>
        {{range .Commands}}
        <tr{{if not .Allowed}} class="denied"{{end}}>
          <td><a href="/commands/{{.Name}}">{{.Name}}</a></td>
          <td>{{.Tier}}</td>
          <td>{{range .Params}}<code>{{.Name}}{{if .Optional}}?{{end}}</code> {{end}}</td>
          <td>{{.Description}}</td>
        </tr>
        {{end}}
      </tbody>
    </table>
  </section>
</body>
</html>
`

// homeCommand is one row of the catalog table.
type homeCommand struct {
	registry.CommandInfo
	Allowed bool
}

// homeData is the data passed to the home page template.
type homeData struct {
	Health   *HealthOutput
	Commands []homeCommand
	Allowed  int
}

// handleHome returns an HTTP handler for the catalog page.
func (s *Server) handleHome() http.HandlerFunc {
	tmpl := template.Must(template.New("home").Parse(homePageTemplate))
	return func(w http.ResponseWriter, r *http.Request) {
		data := homeData{Health: s.health(r.Context())}
		for _, info := range s.disp.Registry().ListCommands() {
			allowed := s.tier.Allows(info.Tier)
			if allowed {
				data.Allowed++
			}
			data.Commands = append(data.Commands, homeCommand{CommandInfo: info, Allowed: allowed})
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.Execute(w, data); err != nil {
			slog.Error(fmt.Sprintf("%s - home template execute: %v", httpLogPrefix, err))
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}
}
