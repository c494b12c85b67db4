package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rzbill/surgecast/internal/registry"
	"github.com/rzbill/surgecast/internal/runtime"
	idpkg "github.com/rzbill/surgecast/pkg/id"
	logpkg "github.com/rzbill/surgecast/pkg/log"
)

type Server struct {
	rt     *runtime.Runtime
	srv    *http.Server
	lis    net.Listener
	logger logpkg.Logger
	ids    *idpkg.Generator
}

func New(rt *runtime.Runtime, logger logpkg.Logger) *Server {
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	mux := http.NewServeMux()
	s := &Server{
		rt:     rt,
		srv:    &http.Server{Handler: cors(mux)},
		logger: logger.With(logpkg.Component("http")),
		ids:    idpkg.NewGenerator(),
	}
	mux.HandleFunc("/v1/healthz", s.handleHealth)
	mux.HandleFunc("/v1/subscribe", s.handleSubscribeSSE)
	mux.HandleFunc("/v1/interests", s.handleInterests)
	mux.HandleFunc("/v1/filters", s.handleFilters)
	mux.HandleFunc("/v1/groups", s.handleGroupList)
	mux.HandleFunc("/v1/groups/", s.handleGroup)
	mux.HandleFunc("/v1/ingest", s.handleIngest)
	mux.HandleFunc("/v1/symbols", s.handleSymbols)
	mux.HandleFunc("/v1/coverage", s.handleCoverage)
	mux.HandleFunc("/v1/stats", s.handleStats)
	return s
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	s.logger.Info("http listening", logpkg.Str("addr", l.Addr().String()))
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) Close() {
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.rt.CheckHealth(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_serving"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// sseSink adapts one SSE response to the registry's sink contract. The
// registry's writer goroutine is the only writer once the handler has
// finished the handshake.
type sseSink struct {
	w http.ResponseWriter
	r *http.Request
}

func (s sseSink) Send(it registry.Item) error {
	_, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", it.Kind, it.Payload)
	return err
}

func (s sseSink) Context() context.Context { return s.r.Context() }

func (s sseSink) Flush() error {
	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

func (s *Server) handleSubscribeSSE(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := r.URL.Query().Get("subscriber")
	if id == "" {
		id = s.ids.Next().String()
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Handshake happens on the handler goroutine, before the registry's
	// writer takes over the response.
	fmt.Fprintf(w, "event: connected\ndata: {\"subscriber\":%q}\n\n", id)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	if err := s.rt.Registry().Join(registry.SubscriberID(id), sseSink{w: w, r: r}); err != nil {
		fmt.Fprintf(w, "event: error\ndata: {\"error\":%q}\n\n", err.Error())
		return
	}
	<-r.Context().Done()
	s.rt.Registry().Leave(registry.SubscriberID(id))
}

func (s *Server) handleInterests(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("subscriber")
	if id == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.rt.Interests().GetOrLoad(r.Context(), id))
	case http.MethodPut, http.MethodPost:
		var req struct {
			Category string   `json:"category"`
			Groups   []string `json:"groups"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Category == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if err := s.rt.Store().SaveInterestSelection(r.Context(), id, req.Category, req.Groups); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		// Push the confirmed write into the cache so the next cycle sees it.
		if sel, found, err := s.rt.Store().LoadInterestSelection(r.Context(), id); err == nil && found {
			s.rt.Interests().Update(id, sel)
		} else {
			s.rt.Interests().Invalidate(id)
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("subscriber")
	if id == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	switch r.Method {
	case http.MethodGet:
		crit, apply := s.rt.Filters().GetOrLoad(r.Context(), id)
		outcome := s.rt.Filters().Outcome(r.Context(), id)
		writeJSON(w, http.StatusOK, map[string]any{
			"criteria": crit,
			"applied":  apply,
			"outcome":  outcome.String(),
		})
	case http.MethodPut, http.MethodPost:
		var req struct {
			Enabled    bool   `json:"enabled"`
			MinCount   int    `json:"min_count"`
			Expression string `json:"expression"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		crit := settingsCriteria(req.Enabled, req.MinCount, req.Expression)
		if err := s.rt.Store().SaveFilterCriteria(r.Context(), id, crit); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		s.rt.Filters().Update(id, crit)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleGroupList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	groups, err := s.rt.Store().ListGroups()
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"groups": groups})
}

func (s *Server) handleGroup(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/v1/groups/")
	if name == "" || strings.Contains(name, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	switch r.Method {
	case http.MethodGet:
		symbols, found, err := s.rt.Store().GroupSymbols(name)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if !found {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"name": name, "symbols": symbols})
	case http.MethodPut, http.MethodPost:
		var req struct {
			Symbols []string `json:"symbols"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if err := s.rt.Store().SetGroupSymbols(name, req.Symbols); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req ingestReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	batch := req.batch()
	s.rt.Buffer().Append(batch)
	writeJSON(w, http.StatusAccepted, map[string]any{"queued": batch.Len()})
}

func (s *Server) handleSymbols(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"symbols": s.rt.Planner().UpstreamSymbols()})
	case http.MethodPut, http.MethodPost:
		var req struct {
			Symbols []string `json:"symbols"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		added, removed := s.rt.Planner().ApplyUpdate(req.Symbols)
		writeJSON(w, http.StatusOK, map[string]any{"added": added, "removed": removed})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleCoverage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Required []string `json:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	cov := s.rt.Planner().ValidateCoverage(req.Required)
	writeJSON(w, http.StatusOK, cov)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	out := map[string]any{
		"scheduler": s.rt.Scheduler().Stats(),
		"interests": s.rt.Interests().Stats(),
		"filters":   s.rt.Filters().Stats(),
		"buffered":  s.rt.Buffer().Len(),
		"connected": s.rt.Registry().Count(),
	}
	if snap, ok := s.rt.Activity().Latest(); ok {
		out["activity"] = snap
	}
	writeJSON(w, http.StatusOK, out)
}
