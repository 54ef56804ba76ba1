package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sophialabs/apicover/internal/domain/exchange"
	"github.com/sophialabs/apicover/internal/domain/trace"
	"github.com/sophialabs/apicover/internal/infrastructure/outbound/report"
	"github.com/sophialabs/apicover/internal/infrastructure/ports"
	"github.com/sophialabs/apicover/internal/infrastructure/services"
	"github.com/sophialabs/apicover/internal/infrastructure/usecases"
)

const (
	maxBodySize     = 1 << 20 // 1 MB
	defaultPageSize = 50
	maxPageSize     = 500
)

var errNotReady = errors.New("no coverage run available yet")

// Server exposes the latest coverage run and admin actions over HTTP.
type Server struct {
	router    *chi.Mux
	current   atomic.Pointer[usecases.Run]
	computeMu sync.Mutex
	computeUC *usecases.ComputeCoverageUseCase
	probeUC   *usecases.ProbeUseCase
	reports   *report.Registry
	traceBuf  *trace.RingBuffer
	logger    ports.Logger

	limiter   ports.RateLimiter
	rateLimit float64
	rateBurst int
}

// NewServer creates a new Server. Call Recompute or Publish before serving
// coverage data; until then data endpoints answer 503.
func NewServer(
	computeUC *usecases.ComputeCoverageUseCase,
	probeUC *usecases.ProbeUseCase,
	reports *report.Registry,
	traceBuf *trace.RingBuffer,
	logger ports.Logger,
) *Server {
	s := &Server{
		computeUC: computeUC,
		probeUC:   probeUC,
		reports:   reports,
		traceBuf:  traceBuf,
		logger:    logger,
	}
	s.router = s.buildRouter()
	return s
}

// SetRateLimit enables per-client token-bucket limiting. A zero rate disables it.
func (s *Server) SetRateLimit(limiter ports.RateLimiter, rate float64, burst int) {
	s.limiter = limiter
	s.rateLimit = rate
	s.rateBurst = burst
}

func (s *Server) buildRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(s.rateLimitMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Route("/__admin", func(r chi.Router) {
		r.Get("/summary", s.handleSummary)
		r.Get("/coverage", s.handleCoverage)
		r.Get("/trace", s.handleGetTrace)
		r.Get("/report", s.handleReport)
		r.Post("/reload", s.handleReload)
		r.Post("/probe", s.handleProbe)
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "no route for "+r.Method+" "+r.URL.Path)
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Recompute runs the coverage pipeline and publishes the result. Concurrent
// calls are serialized; a failed run keeps the previous result.
func (s *Server) Recompute(ctx context.Context) (*usecases.Run, error) {
	s.computeMu.Lock()
	defer s.computeMu.Unlock()

	run, err := s.computeUC.Execute(ctx)
	if err != nil {
		return nil, err
	}
	s.current.Store(run)
	return run, nil
}

// Publish makes run the current result.
func (s *Server) Publish(run *usecases.Run) {
	s.current.Store(run)
}

// Current returns the published run, or nil.
func (s *Server) Current() *usecases.Run {
	return s.current.Load()
}

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil || s.rateLimit <= 0 || r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}
		if !s.limiter.Allow(r.Context(), clientKey(r), s.rateLimit, s.rateBurst) {
			s.logger.Debug("rate limited", "remote", r.RemoteAddr, "path", r.URL.Path)
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"ready":  s.Current() != nil,
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	run := s.Current()
	if run == nil {
		writeError(w, http.StatusServiceUnavailable, "not_ready", errNotReady.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"run_id":      run.ID,
		"started_at":  run.StartedAt,
		"duration_ms": run.Duration.Milliseconds(),
		"exchanges":   len(run.Exchanges),
		"summary":     run.Summary,
	})
}

func (s *Server) handleCoverage(w http.ResponseWriter, r *http.Request) {
	run := s.Current()
	if run == nil {
		writeError(w, http.StatusServiceUnavailable, "not_ready", errNotReady.Error())
		return
	}
	q := r.URL.Query()
	onlyUnmatched, _ := strconv.ParseBool(q.Get("unmatched"))
	contractName := q.Get("contract")

	views := make([]report.ItemView, 0, len(run.Items))
	for _, it := range run.Items {
		if onlyUnmatched && !it.Unmatched {
			continue
		}
		v := report.NewItemView(it)
		if contractName != "" && v.Contract != contractName {
			continue
		}
		views = append(views, v)
	}
	writeJSON(w, http.StatusOK, services.Paginate(views, services.ParsePageRequest(q, defaultPageSize, maxPageSize)))
}

func (s *Server) handleGetTrace(w http.ResponseWriter, r *http.Request) {
	n := 10
	if lastParam := r.URL.Query().Get("last"); lastParam != "" {
		if parsed, err := strconv.Atoi(lastParam); err == nil && parsed > 0 {
			n = parsed
		}
	}
	entries := s.traceBuf.Last(n)
	if entries == nil {
		entries = []trace.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	run, err := s.Recompute(r.Context())
	if err != nil {
		s.logger.Error("reload failed", "error", err)
		writeError(w, http.StatusInternalServerError, "reload_failed", "coverage run failed, check server logs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"run_id":  run.ID,
		"summary": run.Summary,
	})
}

// probeRequest is the JSON shape of an ad-hoc exchange.
type probeRequest struct {
	Name              string      `json:"name"`
	Method            string      `json:"method"`
	URL               string      `json:"url"`
	Query             []pairJSON  `json:"query"`
	Body              *probeBody  `json:"body"`
	TestedStatusCodes []string    `json:"tested_status_codes"`
	Status            json.Number `json:"status"`
	SameMethod        bool        `json:"same_method"`
}

type pairJSON struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type probeBody struct {
	Mode        string     `json:"mode"`
	Raw         string     `json:"raw"`
	ContentType string     `json:"content_type"`
	Language    string     `json:"language"`
	Form        []pairJSON `json:"form"`
}

func (p probeRequest) toExchange() *exchange.Exchange {
	ex := &exchange.Exchange{
		Name:              p.Name,
		Method:            p.Method,
		RawURL:            p.URL,
		TestedStatusCodes: p.TestedStatusCodes,
	}
	if p.Status != "" {
		ex.AddTestedCode(p.Status.String())
	}
	for _, q := range p.Query {
		ex.Query = append(ex.Query, exchange.Pair{Key: q.Key, Value: q.Value})
	}
	if p.Body != nil {
		mode := exchange.BodyMode(strings.ToLower(p.Body.Mode))
		if mode == exchange.BodyNone {
			mode = exchange.BodyRaw
		}
		ex.Body = &exchange.Body{Mode: mode, Raw: p.Body.Raw, ContentType: p.Body.ContentType, Language: p.Body.Language}
		for _, f := range p.Body.Form {
			ex.Body.Form = append(ex.Body.Form, exchange.Pair{Key: f.Key, Value: f.Value})
		}
	}
	return ex
}

func (s *Server) handleProbe(w http.ResponseWriter, r *http.Request) {
	run := s.Current()
	if run == nil {
		writeError(w, http.StatusServiceUnavailable, "not_ready", errNotReady.Error())
		return
	}

	var req probeRequest
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if len(data) > maxBodySize {
		writeError(w, http.StatusRequestEntityTooLarge, "body_too_large", fmt.Sprintf("probe body exceeds %d bytes", maxBodySize))
		return
	}
	if err := json.Unmarshal(data, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "invalid_body", "url is required")
		return
	}

	results := s.probeUC.Execute(run.Index, req.toExchange(), req.SameMethod)
	matched := 0
	for _, cr := range results {
		if cr.Matched {
			matched++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"run_id":  run.ID,
		"matched": matched,
		"results": results,
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	run := s.Current()
	if run == nil {
		writeError(w, http.StatusServiceUnavailable, "not_ready", errNotReady.Error())
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "html"
	}
	rd, err := s.reports.Get(format)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown_format", err.Error())
		return
	}

	switch rd.Extension() {
	case "html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	case "md":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	default:
		w.Header().Set("Content-Type", "application/json")
	}
	doc := report.NewDocument(run.ID, run.StartedAt, run.Items)
	if err := rd.Render(w, doc); err != nil {
		s.logger.Error("report render failed", "format", format, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error":   code,
		"message": message,
	})
}
