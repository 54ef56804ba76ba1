package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sophialabs/apicover/internal/domain/contract"
	"github.com/sophialabs/apicover/internal/domain/coverage"
	"github.com/sophialabs/apicover/internal/domain/exchange"
	"github.com/sophialabs/apicover/internal/domain/match"
	"github.com/sophialabs/apicover/internal/domain/trace"
	inboundhttp "github.com/sophialabs/apicover/internal/infrastructure/inbound/http"
	"github.com/sophialabs/apicover/internal/infrastructure/outbound/report"
	"github.com/sophialabs/apicover/internal/infrastructure/services"
	"github.com/sophialabs/apicover/internal/infrastructure/usecases"
	"github.com/sophialabs/apicover/internal/testutil"
)

type fixture struct {
	srv       *inboundhttp.Server
	contracts *testutil.StubContractRepository
	exchanges *testutil.StubExchangeRepository
	traceBuf  *trace.RingBuffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := &testutil.NoopLogger{}

	ops := []contract.Operation{
		&contract.RESTOperation{Base: contract.Base{Method: "GET", PathTemplate: "/pets", OutcomeStatusCode: "200", ContractName: "pets"}},
		&contract.RESTOperation{Base: contract.Base{Method: "POST", PathTemplate: "/pets", OutcomeStatusCode: "201", ContractName: "pets"}},
		&contract.RESTOperation{Base: contract.Base{Method: "DELETE", PathTemplate: "/pets/{id}", OutcomeStatusCode: "204", ContractName: "pets"}},
	}
	f := &fixture{
		contracts: &testutil.StubContractRepository{Ops: ops},
		exchanges: &testutil.StubExchangeRepository{Exchanges: []*exchange.Exchange{
			{Name: "list", Method: "GET", RawURL: "/pets", TestedStatusCodes: []string{"200"}},
			{Name: "create", Method: "POST", RawURL: "/pets", TestedStatusCodes: []string{"201"}},
		}},
		traceBuf: trace.NewRingBuffer(10),
	}

	compiler, err := services.NewCompiler(services.CompilerConfig{}, logger)
	if err != nil {
		t.Fatal(err)
	}
	correlator := match.NewCorrelator(match.Options{Weights: match.DefaultWeights()})
	computeUC := usecases.NewComputeCoverageUseCase(
		usecases.NewLoadContractUseCase(f.contracts, nil, logger),
		usecases.NewLoadExchangesUseCase(f.exchanges, logger),
		compiler,
		coverage.NewEngine(correlator, coverage.EngineConfig{NearMisses: 3}),
		&testutil.FixedClock{T: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		logger,
		f.traceBuf,
	)
	reports, err := report.NewRegistry()
	if err != nil {
		t.Fatal(err)
	}
	f.srv = inboundhttp.NewServer(computeUC, usecases.NewProbeUseCase(correlator), reports, f.traceBuf, logger)
	return f
}

func (f *fixture) ready(t *testing.T) {
	t.Helper()
	if _, err := f.srv.Recompute(context.Background()); err != nil {
		t.Fatalf("Recompute: %v", err)
	}
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("invalid JSON %q: %v", w.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	var body map[string]any
	w := do(t, f.srv, "GET", "/healthz", "")
	decode(t, w, &body)
	if w.Code != http.StatusOK || body["ready"] != false {
		t.Errorf("before run: %d %v", w.Code, body)
	}

	f.ready(t)
	w = do(t, f.srv, "GET", "/healthz", "")
	decode(t, w, &body)
	if body["ready"] != true {
		t.Errorf("after run: %v", body)
	}
}

func TestDataEndpoints_NotReady(t *testing.T) {
	f := newFixture(t)
	for _, target := range []string{"/__admin/summary", "/__admin/coverage", "/__admin/report"} {
		if w := do(t, f.srv, "GET", target, ""); w.Code != http.StatusServiceUnavailable {
			t.Errorf("%s = %d, want 503", target, w.Code)
		}
	}
	if w := do(t, f.srv, "POST", "/__admin/probe", `{"url":"/pets"}`); w.Code != http.StatusServiceUnavailable {
		t.Errorf("probe = %d, want 503", w.Code)
	}
}

func TestSummary(t *testing.T) {
	f := newFixture(t)
	f.ready(t)

	var body struct {
		RunID   string           `json:"run_id"`
		Summary coverage.Summary `json:"summary"`
	}
	w := do(t, f.srv, "GET", "/__admin/summary", "")
	decode(t, w, &body)
	if body.RunID == "" || body.Summary.Total != 3 || body.Summary.Matched != 2 {
		t.Errorf("summary = %+v", body)
	}
}

func TestCoverage_PaginationAndFilter(t *testing.T) {
	f := newFixture(t)
	f.ready(t)

	tests := []struct {
		name      string
		target    string
		wantItems int
		wantTotal int
		wantNext  bool
	}{
		{"all", "/__admin/coverage", 3, 3, false},
		{"paged", "/__admin/coverage?page=1&size=2", 2, 3, true},
		{"unmatched", "/__admin/coverage?unmatched=true", 1, 1, false},
		{"contract", "/__admin/coverage?contract=other", 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var page services.Page[report.ItemView]
			w := do(t, f.srv, "GET", tt.target, "")
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d", w.Code)
			}
			decode(t, w, &page)
			if len(page.Data) != tt.wantItems || page.TotalItems != tt.wantTotal || page.HasNext != tt.wantNext {
				t.Errorf("page = %+v", page)
			}
		})
	}

	var page services.Page[report.ItemView]
	decode(t, do(t, f.srv, "GET", "/__admin/coverage?unmatched=true", ""), &page)
	if page.Data[0].Method != "DELETE" || page.Data[0].Path != "/pets/{id}" {
		t.Errorf("unmatched item = %+v", page.Data[0])
	}
}

func TestReloadAndTrace(t *testing.T) {
	f := newFixture(t)
	f.ready(t)

	f.exchanges.Exchanges = append(f.exchanges.Exchanges,
		&exchange.Exchange{Name: "delete", Method: "DELETE", RawURL: "/pets/1", TestedStatusCodes: []string{"204"}})

	w := do(t, f.srv, "POST", "/__admin/reload", "")
	if w.Code != http.StatusOK {
		t.Fatalf("reload = %d %s", w.Code, w.Body.String())
	}
	if got := f.srv.Current().Summary.Matched; got != 3 {
		t.Errorf("matched after reload = %d, want 3", got)
	}

	var entries []trace.Entry
	decode(t, do(t, f.srv, "GET", "/__admin/trace?last=5", ""), &entries)
	if len(entries) != 2 || entries[1].Matched != 3 {
		t.Errorf("trace = %+v", entries)
	}
}

func TestReload_FailureKeepsPreviousRun(t *testing.T) {
	f := newFixture(t)
	f.ready(t)
	previous := f.srv.Current()

	f.contracts.Err = errors.New("contract gone")
	w := do(t, f.srv, "POST", "/__admin/reload", "")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("reload = %d, want 500", w.Code)
	}
	if f.srv.Current() != previous {
		t.Error("failed reload must keep the previous run")
	}
}

func TestProbe(t *testing.T) {
	f := newFixture(t)
	f.ready(t)

	var body struct {
		Matched int                     `json:"matched"`
		Results []trace.CandidateResult `json:"results"`
	}
	w := do(t, f.srv, "POST", "/__admin/probe", `{"method":"DELETE","url":"https://api.example.com/pets/9","status":204}`)
	if w.Code != http.StatusOK {
		t.Fatalf("probe = %d %s", w.Code, w.Body.String())
	}
	decode(t, w, &body)
	if body.Matched != 1 || len(body.Results) != 3 {
		t.Fatalf("probe = %+v", body)
	}
	if !body.Results[0].Matched || !strings.HasPrefix(body.Results[0].Operation, "DELETE /pets/{id}") {
		t.Errorf("first result = %+v", body.Results[0])
	}

	w = do(t, f.srv, "POST", "/__admin/probe", `{"method":"GET","url":"/pets","same_method":true}`)
	decode(t, w, &body)
	if len(body.Results) != 1 {
		t.Errorf("same-method results = %d, want 1", len(body.Results))
	}
}

func TestProbe_BadRequests(t *testing.T) {
	f := newFixture(t)
	f.ready(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"invalid json", `{`, http.StatusBadRequest},
		{"missing url", `{"method":"GET"}`, http.StatusBadRequest},
		{"too large", `{"url":"/` + strings.Repeat("a", 1<<20) + `"}`, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := do(t, f.srv, "POST", "/__admin/probe", tt.body); w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestReport(t *testing.T) {
	f := newFixture(t)
	f.ready(t)

	tests := []struct {
		target      string
		wantStatus  int
		contentType string
		contains    string
	}{
		{"/__admin/report", http.StatusOK, "text/html", "API coverage: 66.67%"},
		{"/__admin/report?format=markdown", http.StatusOK, "text/markdown", "## Unmatched operations"},
		{"/__admin/report?format=json", http.StatusOK, "application/json", `"run_id"`},
		{"/__admin/report?format=pdf", http.StatusBadRequest, "application/json", "unknown_format"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			w := do(t, f.srv, "GET", tt.target, "")
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d", w.Code)
			}
			if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, tt.contentType) {
				t.Errorf("content type = %q", ct)
			}
			if !strings.Contains(w.Body.String(), tt.contains) {
				t.Errorf("body missing %q", tt.contains)
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t)
	f.ready(t)
	limiter := &testutil.StubRateLimiter{AllowAll: false}
	f.srv.SetRateLimit(limiter, 1, 1)

	if w := do(t, f.srv, "GET", "/__admin/summary", ""); w.Code != http.StatusTooManyRequests {
		t.Errorf("limited request = %d, want 429", w.Code)
	}
	if w := do(t, f.srv, "GET", "/healthz", ""); w.Code != http.StatusOK {
		t.Errorf("healthz must bypass the limiter, got %d", w.Code)
	}

	limiter.AllowAll = true
	if w := do(t, f.srv, "GET", "/__admin/summary", ""); w.Code != http.StatusOK {
		t.Errorf("allowed request = %d, want 200", w.Code)
	}
}

func TestNotFound(t *testing.T) {
	f := newFixture(t)
	w := do(t, f.srv, "GET", "/nope", "")
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), "not_found") {
		t.Errorf("got %d %s", w.Code, w.Body.String())
	}
}
