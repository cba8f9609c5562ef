package diag

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/gridlight/stationd/internal/audit"
	"github.com/gridlight/stationd/internal/auth"
	"github.com/gridlight/stationd/internal/driver"
	"github.com/gridlight/stationd/internal/station"
	"github.com/gridlight/stationd/internal/telemetry"
)

// scanResultCap bounds the records returned by one scan request.
const scanResultCap = 32

// Server is the diagnostics HTTP server.
type Server struct {
	log   *zap.Logger
	mgr   *station.Manager
	hub   *telemetry.Hub
	audit *audit.Logger
	authM *auth.Middleware
	http  *http.Server
}

// NewServer wires the diagnostics surface. hub and auditLog may be nil.
func NewServer(log *zap.Logger, mgr *station.Manager, hub *telemetry.Hub, auditLog *audit.Logger, authM *auth.Middleware) *Server {
	return &Server{
		log:   log,
		mgr:   mgr,
		hub:   hub,
		audit: auditLog,
		authM: authM,
	}
}

// Router builds the chi route tree.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authM.RequireAuth)

		r.Group(func(r chi.Router) {
			r.Use(s.authM.RequireScope(auth.ScopeRead))
			r.Get("/status", s.handleStatus)
			r.Get("/ip", s.handleIPInfo)
			r.Get("/events", s.handleEvents)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.authM.RequireScope(auth.ScopeControl))
			r.Post("/scan", s.handleScan)
			r.Post("/connect", s.handleConnect)
			r.Post("/disconnect", s.handleDisconnect)
		})
	})
	return r
}

// Start serves the diagnostics API on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.log.Info("diagnostics server listening", zap.String("addr", addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("diag server: %w", err)
	}
	return nil
}

// Shutdown stops the HTTP listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, map[string]any{
		"status":  "ok",
		"started": s.mgr.IsStarted(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap, err := s.mgr.GetStatus()
	if err != nil {
		writeStationError(w, err)
		return
	}
	writeSuccess(w, map[string]any{
		"status":               snap,
		"lastDisconnectReason": s.mgr.LastDisconnectReason().String(),
		"lastConnectAttempts":  s.mgr.LastConnectAttempts(),
	})
}

func (s *Server) handleIPInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.mgr.GetIpInfo()
	if err != nil {
		writeStationError(w, err)
		return
	}
	writeSuccess(w, map[string]any{
		"addr":    info.Addr.String(),
		"gateway": info.Gateway.String(),
		"netmask": info.Netmask.String(),
	})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	buf := make([]driver.ScanResult, scanResultCap)
	count, err := s.mgr.Scan(buf)
	s.logAction("scan", "", err, time.Since(start))
	if err != nil {
		writeStationError(w, err)
		return
	}
	shown := count
	if shown > len(buf) {
		shown = len(buf)
	}
	records := make([]map[string]any, 0, shown)
	for _, res := range buf[:shown] {
		records = append(records, map[string]any{
			"ssid":    res.SSID,
			"channel": res.Channel,
			"rssi":    res.RSSI,
		})
	}
	writeSuccess(w, map[string]any{
		"count":   count,
		"records": records,
	})
}

type connectRequest struct {
	SSID      string `json:"ssid"`
	Password  string `json:"password"`
	TimeoutMs int    `json:"timeoutMs"`
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}
	if req.TimeoutMs <= 0 {
		req.TimeoutMs = 10000
	}
	start := time.Now()
	err := s.mgr.ConnectSta(req.SSID, req.Password, time.Duration(req.TimeoutMs)*time.Millisecond)
	s.logAction("connect", req.SSID, err, time.Since(start))
	if err != nil {
		writeStationError(w, err)
		return
	}
	writeSuccess(w, map[string]any{
		"connected": true,
		"attempts":  s.mgr.LastConnectAttempts(),
	})
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	err := s.mgr.DisconnectSta()
	s.logAction("disconnect", "", err, time.Since(start))
	if err != nil {
		writeStationError(w, err)
		return
	}
	writeSuccess(w, map[string]any{"disconnected": true})
}

// handleEvents streams lifecycle events as server-sent events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		writeError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "Event hub not configured")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	events, cancel := s.hub.Subscribe()
	defer cancel()

	// Replay the retained ring first so late joiners see recent history.
	for _, ev := range s.hub.Recent() {
		writeSSE(w, ev)
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev telemetry.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", ev.ID, ev.Type, data)
}

func (s *Server) logAction(action, target string, err error, latency time.Duration) {
	if s.audit == nil {
		return
	}
	s.audit.LogAction(action, target, err, latency)
}
