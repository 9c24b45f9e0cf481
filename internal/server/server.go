// Package server orchestrates all components: COMMS client, audit DB, registry, dispatcher, HTTP health.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	comms "github.com/nats-io/nats.go"

	"github.com/pondworks/command-engine/internal/config"
	"github.com/pondworks/command-engine/pkg/codec"
	"github.com/pondworks/command-engine/pkg/commands"
	"github.com/pondworks/command-engine/pkg/commsutil"
	"github.com/pondworks/command-engine/pkg/db"
	"github.com/pondworks/command-engine/pkg/dispatcher"
	"github.com/pondworks/command-engine/pkg/events"
	"github.com/pondworks/command-engine/pkg/registry"
)

const logPrefix = "server:server"

// Server is the command-engine orchestrator.
type Server struct {
	cfg        *config.Config
	nc         *comms.Conn
	pool       *pgxpool.Pool
	httpServer *http.Server
	reg        *registry.Registry
	audit      *db.AuditLog
}

// Health is the /health response body.
type Health struct {
	Status string `json:"status"`
	Checks struct {
		Comms    bool `json:"comms"`
		Database bool `json:"database,omitempty"`
	} `json:"checks"`
	Timestamp string `json:"timestamp"`
}

// Run starts the server, blocks until shutdown signal, then cleans up.
func Run() error {
	// Setup structured logging
	var logLevel slog.Level
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("%s - failed to load config: %w", logPrefix, err)
	}
	if err := cfg.ValidateForServe(); err != nil {
		return err
	}

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info(fmt.Sprintf("%s - Starting command-engine", logPrefix))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &Server{cfg: cfg}

	// Determine command subject
	commandSubject := cfg.CommandSubject
	if commandSubject == "" {
		commandSubject = commsutil.SubjectCommands
	}
	slog.Info(fmt.Sprintf("%s - Command subject: %s", logPrefix, commandSubject))

	// Step 1: Connect to COMMS
	nc, err := commsutil.Connect(cfg.COMMSURL, cfg.COMMSName)
	if err != nil {
		return fmt.Errorf("%s - failed to connect to COMMS: %w", logPrefix, err)
	}
	s.nc = nc

	// Step 2: Connect to the audit database when configured. The engine
	// itself keeps no dispatch state; this sink only records failures.
	if cfg.AuditConfigured() {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			nc.Close()
			return fmt.Errorf("%s - failed to connect to audit database: %w", logPrefix, err)
		}
		s.pool = pool

		if cfg.RunMigrations {
			migrations, err := db.LoadMigrationFiles(cfg.MigrationPath)
			if err != nil {
				pool.Close()
				nc.Close()
				return fmt.Errorf("%s - failed to load migrations: %w", logPrefix, err)
			}
			if err := db.RunMigrations(ctx, pool, migrations); err != nil {
				pool.Close()
				nc.Close()
				return fmt.Errorf("%s - failed to run migrations: %w", logPrefix, err)
			}
		}
		s.audit = db.NewAuditLog(pool)
		slog.Info(fmt.Sprintf("%s - Dispatch failure audit enabled", logPrefix))
	} else {
		slog.Info(fmt.Sprintf("%s - Dispatch failure audit disabled", logPrefix))
	}

	// Step 3: Create registry with built-in commands
	reg := registry.New()
	commands.RegisterBuiltins(reg)
	s.reg = reg

	// Step 4: Compose the failure reporter
	reporterOpts := &events.CommsReporterOpts{}
	if cfg.ErrorEventSubject != "" {
		reporterOpts.GlobalErrorSubject = cfg.ErrorEventSubject
	}
	var reporter events.Reporter = events.NewCommsReporter(nc, reporterOpts)
	if s.audit != nil {
		reporter = events.NewMultiReporter(reporter, db.NewAuditReporter(s.audit))
	}

	// Step 5: Create dispatcher and subscribe
	disp := dispatcher.NewDispatcher(reg, reporter)

	dispatchTimeout := cfg.DispatchTimeout
	sub, err := nc.Subscribe(commandSubject, func(msg *comms.Msg) {
		reqCtx, cancel := context.WithTimeout(ctx, dispatchTimeout)
		defer cancel()
		disp.Dispatch(reqCtx, string(msg.Data))
	})
	if err != nil {
		s.closeAll()
		return fmt.Errorf("%s - failed to subscribe to %s: %w", logPrefix, commandSubject, err)
	}
	slog.Info(fmt.Sprintf("%s - Subscribed to %s", logPrefix, commandSubject))

	// Step 6: Start HTTP server
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHome())
	mux.HandleFunc("/health", s.handleHealth())
	mux.HandleFunc("/ready", s.handleReady())
	mux.HandleFunc("/commands", s.handleCommands())

	httpAddr := fmt.Sprintf(":%d", cfg.HTTPPort)
	s.httpServer = &http.Server{Addr: httpAddr, Handler: mux}
	go func() {
		slog.Info(fmt.Sprintf("%s - HTTP server listening on %s", logPrefix, httpAddr))
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error(fmt.Sprintf("%s - HTTP server error: %v", logPrefix, err))
		}
	}()

	slog.Info(fmt.Sprintf("%s - Command-engine is ready (%d commands)", logPrefix, reg.Count()))

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info(fmt.Sprintf("%s - Received signal %s, shutting down", logPrefix, sig))

	// Graceful shutdown
	sub.Unsubscribe()
	s.httpServer.Shutdown(ctx)
	nc.Drain()
	if s.pool != nil {
		s.pool.Close()
	}

	slog.Info(fmt.Sprintf("%s - Shutdown complete", logPrefix))
	return nil
}

func (s *Server) closeAll() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.nc != nil {
		s.nc.Close()
	}
}

// health runs the liveness checks within the configured timeout.
func (s *Server) health(ctx context.Context) *Health {
	h := &Health{Timestamp: time.Now().UTC().Format(time.RFC3339)}
	h.Checks.Comms = s.nc != nil && s.nc.IsConnected()
	h.Status = "healthy"
	if !h.Checks.Comms {
		h.Status = "unhealthy"
	}
	if s.audit != nil {
		h.Checks.Database = s.audit.Ping(ctx) == nil
		if !h.Checks.Database {
			h.Status = "unhealthy"
		}
	}
	return h
}

// commandRow is one registered command on the home page and /commands.
type commandRow struct {
	Name  string `json:"name"`
	Input string `json:"input"`
}

// commandRows returns the registered commands sorted by name.
func (s *Server) commandRows() []commandRow {
	names := s.reg.Names()
	sort.Strings(names)
	rows := make([]commandRow, 0, len(names))
	for _, name := range names {
		desc, ok := s.reg.Lookup(name)
		if !ok {
			continue
		}
		rows = append(rows, commandRow{Name: name, Input: inputLabel(desc.Input)})
	}
	return rows
}

// inputLabel renders a TypeTag for display.
func inputLabel(tag codec.TypeTag) string {
	if tag.Kind() == codec.KindRecord {
		return fmt.Sprintf("Record<%s>", tag.Name())
	}
	return tag.Kind().String()
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		healthCtx, cancel := context.WithTimeout(r.Context(), s.cfg.HealthCheckTimeout)
		defer cancel()
		h := s.health(healthCtx)
		w.Header().Set("Content-Type", "application/json")
		if h.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(h)
	}
}

func (s *Server) handleReady() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	}
}

// handleCommands returns JSON introspection of the registry.
func (s *Server) handleCommands() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"count":    s.reg.Count(),
			"commands": s.commandRows(),
		})
	}
}

// homePageTemplate is the HTML for the engine home page (white bg, black/blue text).
const homePageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>Command Engine</title>
  <style>
    * { box-sizing: border-box; }
    body { background: #fff; color: #000; font-family: system-ui, sans-serif; margin: 0; padding: 2rem; line-height: 1.5; }
    a { color: #0066cc; }
    h1, h2, h3 { color: #0066cc; }
    .status-healthy { color: #0066cc; font-weight: bold; }
    .status-unhealthy { color: #cc0000; font-weight: bold; }
    table { border-collapse: collapse; width: 100%; max-width: 900px; margin-top: 0.5rem; }
    th, td { text-align: left; padding: 0.5rem 0.75rem; border: 1px solid #ccc; }
    th { background: #f0f4f8; color: #0066cc; }
    .stat { font-weight: bold; color: #0066cc; }
    .meta { color: #333; font-size: 0.9rem; margin-top: 1rem; }
    section { margin-bottom: 2rem; }
    .error { color: #cc0000; }
  </style>
</head>
<body>
  <h1>Command Engine</h1>
  <p class="meta">Engine health, registered commands, and recent dispatch failures.</p>

  <section>
    <h2>Health</h2>
    <p>Status: <span class="status-{{.Health.Status}}">{{.Health.Status}}</span></p>
    <p>COMMS: {{if .Health.Checks.Comms}}<span class="stat">OK</span>{{else}}<span class="error">Disconnected</span>{{end}}</p>
    {{if .AuditEnabled}}
    <p>Audit database: {{if .Health.Checks.Database}}<span class="stat">OK</span>{{else}}<span class="error">Failed</span>{{end}}</p>
    {{end}}
    <p>Timestamp: {{.Health.Timestamp}}</p>
  </section>

  <section>
    <h2>Commands</h2>
    <p>Registered commands: <span class="stat">{{len .Commands}}</span></p>
    {{if not .Commands}}
    <p>No commands registered.</p>
    {{else}}
    <table>
      <thead>
        <tr><th>Command</th><th>Input type</th></tr>
      </thead>
      <tbody>
        {{range .Commands}}
        <tr><td>{{.Name}}</td><td>{{.Input}}</td></tr>
        {{end}}
      </tbody>
    </table>
    {{end}}
  </section>

  {{if .AuditEnabled}}
  <section>
    <h2>Recent dispatch failures</h2>
    {{if .FailureCounts}}
    <table>
      <thead>
        <tr><th>Kind</th><th>Total</th></tr>
      </thead>
      <tbody>
        {{range $kind, $count := .FailureCounts}}
        <tr><td>{{$kind}}</td><td>{{$count}}</td></tr>
        {{end}}
      </tbody>
    </table>
    {{end}}
    {{if .FailuresError}}
    <p class="error">Could not load failures: {{.FailuresError}}</p>
    {{else if not .Failures}}
    <p>No recorded failures.</p>
    {{else}}
    <table>
      <thead>
        <tr><th>Created</th><th>Command</th><th>Kind</th><th>Message</th></tr>
      </thead>
      <tbody>
        {{range .Failures}}
        <tr><td>{{.Created.Format "2006-01-02 15:04:05"}}</td><td>{{.Command}}</td><td>{{.Kind}}</td><td>{{.Message}}</td></tr>
        {{end}}
      </tbody>
    </table>
    {{end}}
  </section>
  {{end}}
</body>
</html>
`

// homeData is the data passed to the home page template.
type homeData struct {
	Health        *Health
	Commands      []commandRow
	AuditEnabled  bool
	Failures      []db.DispatchFailure
	FailureCounts map[string]int
	FailuresError string
}

// handleHome returns an HTTP handler for the engine home page.
func (s *Server) handleHome() http.HandlerFunc {
	tmpl := template.Must(template.New("home").Parse(homePageTemplate))
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.HealthCheckTimeout)
		defer cancel()

		data := homeData{
			Health:       s.health(ctx),
			Commands:     s.commandRows(),
			AuditEnabled: s.audit != nil,
		}
		if s.audit != nil {
			failures, err := s.audit.Recent(ctx, 20)
			if err != nil {
				data.FailuresError = err.Error()
			} else {
				data.Failures = failures
			}
			if counts, err := s.audit.CountByKind(ctx); err == nil {
				data.FailureCounts = counts
			}
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.Execute(w, data); err != nil {
			slog.Error(fmt.Sprintf("%s - home template execute: %v", logPrefix, err))
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}
}
