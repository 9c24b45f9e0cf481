package server

import (
	"bytes"
	"encoding/json"
	"html/template"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pondworks/command-engine/internal/config"
	"github.com/pondworks/command-engine/pkg/codec"
	"github.com/pondworks/command-engine/pkg/commands"
	"github.com/pondworks/command-engine/pkg/registry"
)

const serverTestPrefix = "server:server_test"

// testServer returns a Server with built-in commands and test config for
// HTTP handler tests. No COMMS connection and no audit database.
func testServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{
		HealthCheckTimeout: 5 * time.Second,
	}
	reg := registry.New()
	commands.RegisterBuiltins(reg)
	return &Server{cfg: cfg, reg: reg}
}

func TestHandleHealth_NoComms(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.handleHealth()(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("%s - status = %d, want %d", serverTestPrefix, rec.Code, http.StatusServiceUnavailable)
	}
	var h Health
	if err := json.Unmarshal(rec.Body.Bytes(), &h); err != nil {
		t.Fatalf("%s - decode health: %v", serverTestPrefix, err)
	}
	if h.Status != "unhealthy" {
		t.Errorf("%s - Status = %q, want unhealthy", serverTestPrefix, h.Status)
	}
	if h.Checks.Comms {
		t.Errorf("%s - Comms check should fail without a connection", serverTestPrefix)
	}
}

func TestHandleReady(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	s.handleReady()(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("%s - status = %d, want 200", serverTestPrefix, rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ready") {
		t.Errorf("%s - body = %q, want ready", serverTestPrefix, rec.Body.String())
	}
}

func TestHandleCommands(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/commands", nil)
	rec := httptest.NewRecorder()
	s.handleCommands()(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("%s - status = %d, want 200", serverTestPrefix, rec.Code)
	}
	var body struct {
		Count    int          `json:"count"`
		Commands []commandRow `json:"commands"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("%s - decode commands: %v", serverTestPrefix, err)
	}
	if body.Count != 2 || len(body.Commands) != 2 {
		t.Fatalf("%s - got %d/%d commands, want 2", serverTestPrefix, body.Count, len(body.Commands))
	}
	// Sorted by name
	if body.Commands[0].Name != "engine.echo" || body.Commands[1].Name != "engine.ping" {
		t.Errorf("%s - wrong order: %+v", serverTestPrefix, body.Commands)
	}
	if body.Commands[0].Input != "String" {
		t.Errorf("%s - echo input = %q, want String", serverTestPrefix, body.Commands[0].Input)
	}
	if body.Commands[1].Input != "Record<PingParams>" {
		t.Errorf("%s - ping input = %q, want Record<PingParams>", serverTestPrefix, body.Commands[1].Input)
	}
}

func TestHandleHome(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	s.handleHome()(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("%s - status = %d, want 200", serverTestPrefix, rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Command Engine", "engine.echo", "engine.ping", "unhealthy"} {
		if !strings.Contains(body, want) {
			t.Errorf("%s - home page missing %q", serverTestPrefix, want)
		}
	}
	// Audit section hidden when no database is configured
	if strings.Contains(body, "Recent dispatch failures") {
		t.Errorf("%s - audit section should be hidden without a database", serverTestPrefix)
	}
}

func TestHomeTemplate_FailureCounts(t *testing.T) {
	tmpl := template.Must(template.New("home").Parse(homePageTemplate))
	data := homeData{
		Health:       &Health{Status: "healthy"},
		AuditEnabled: true,
		FailureCounts: map[string]int{
			"UNKNOWN_COMMAND": 3,
			"PARSE_ERROR":     1,
		},
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		t.Fatalf("%s - template execute: %v", serverTestPrefix, err)
	}
	body := buf.String()
	for _, want := range []string{"Recent dispatch failures", "UNKNOWN_COMMAND", "PARSE_ERROR"} {
		if !strings.Contains(body, want) {
			t.Errorf("%s - home page missing %q", serverTestPrefix, want)
		}
	}
}

func TestHandleHome_NotFoundElsewhere(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	s.handleHome()(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("%s - status = %d, want 404", serverTestPrefix, rec.Code)
	}
}

func TestInputLabel(t *testing.T) {
	cases := []struct {
		tag  codec.TypeTag
		want string
	}{
		{codec.Int32, "Int32"},
		{codec.Float32, "Float32"},
		{codec.Vector3, "Vector3"},
		{codec.Color, "Color"},
		{codec.Record[commands.PingParams]("PingParams"), "Record<PingParams>"},
	}
	for _, tc := range cases {
		if got := inputLabel(tc.tag); got != tc.want {
			t.Errorf("%s - inputLabel = %q, want %q", serverTestPrefix, got, tc.want)
		}
	}
}
