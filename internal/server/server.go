// Package server exposes the JSON HTTP surface: synthesis, safety
// controls, hot-reload, capability listing and promotion, approvals, and
// warrants. Everything mounts under /api/v1.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/hearthd/hearth/internal/approval"
	"github.com/hearthd/hearth/internal/capability"
	"github.com/hearthd/hearth/internal/forge"
	"github.com/hearthd/hearth/internal/governor"
	"github.com/hearthd/hearth/internal/hotreload"
	"github.com/hearthd/hearth/internal/store"
	"github.com/hearthd/hearth/internal/warrant"
)

// Config holds the HTTP listener parameters.
type Config struct {
	Listen          string
	ShutdownTimeout time.Duration
}

// Deps are the collaborators the handlers dispatch into.
type Deps struct {
	Forge      *forge.Forge
	Governor   *governor.Governor
	Dispatcher *capability.Dispatcher
	Registry   *capability.Registry
	Store      *store.Store
	Approvals  *approval.Store
	Warrants   *warrant.Store
	Watcher    *hotreload.Watcher
	Logger     *zap.Logger
}

// Server is the hearthd HTTP front end.
type Server struct {
	cfg  Config
	deps Deps
	srv  *http.Server
}

// New builds the server and its route table.
func New(cfg Config, deps Deps) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	s := &Server{cfg: cfg, deps: deps}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	mux.HandleFunc("POST /api/v1/forge/create", s.handleForgeCreate)
	mux.HandleFunc("GET /api/v1/forge/safety-status", s.handleSafetyStatus)
	mux.HandleFunc("POST /api/v1/forge/safety", s.handleSafetyToggle)
	mux.HandleFunc("POST /api/v1/forge/kill-switch", s.handleKillSwitch)

	mux.HandleFunc("GET /api/v1/forge/hot-reload/status", s.handleReloadStatus)
	mux.HandleFunc("GET /api/v1/forge/hot-reload/list", s.handleReloadList)
	mux.HandleFunc("POST /api/v1/forge/hot-reload/enable", s.handleReloadEnable)
	mux.HandleFunc("POST /api/v1/forge/hot-reload/disable", s.handleReloadDisable)
	mux.HandleFunc("POST /api/v1/forge/hot-reload/trigger", s.handleReloadTrigger)

	mux.HandleFunc("GET /api/v1/capabilities", s.handleCapabilityList)
	mux.HandleFunc("POST /api/v1/capabilities/promote", s.handlePromote)
	mux.HandleFunc("POST /api/v1/capabilities/{name}/invoke", s.handleInvoke)

	mux.HandleFunc("GET /api/v1/approvals", s.handleApprovalList)
	mux.HandleFunc("POST /api/v1/approvals/approve", s.handleApprove)
	mux.HandleFunc("POST /api/v1/approvals/deny", s.handleDeny)

	mux.HandleFunc("POST /api/v1/warrants", s.handleWarrantIssue)

	s.srv = &http.Server{
		Addr:    cfg.Listen,
		Handler: mux,
	}
	return s
}

// Handler exposes the route table, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start begins listening. Blocks until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	s.deps.Logger.Info("http server listening", zap.String("addr", ln.Addr().String()))

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
	}()

	err = s.srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
