//go:build e2e

package e2e_test

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/sophialabs/apicover/internal/domain/coverage"
	"github.com/sophialabs/apicover/internal/domain/match"
	"github.com/sophialabs/apicover/internal/infrastructure/usecases"
)

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func itemsByDescription(items []coverage.Item) map[string]coverage.Item {
	out := make(map[string]coverage.Item, len(items))
	for _, it := range items {
		out[usecases.Describe(it.Operation)] = it
	}
	return out
}

func TestE2E_HealthCheck(t *testing.T) {
	ts, _ := setupE2EServer(t, match.Options{})

	var body map[string]any
	if code := getJSON(t, ts.URL+"/healthz", &body); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if body["status"] != "ok" || body["ready"] != true {
		t.Errorf("unexpected health body: %v", body)
	}
}

func TestE2E_DefaultModeAcrossFormats(t *testing.T) {
	_, c := setupE2EServer(t, match.Options{})
	run := c.Server().Current()

	if run.Summary.Total != 10 {
		t.Fatalf("Total = %d, want 10 (5 rest, 3 graphql, 2 rpc)", run.Summary.Total)
	}
	if run.Summary.Matched != 8 {
		t.Errorf("Matched = %d, want 8", run.Summary.Matched)
	}

	items := itemsByDescription(run.Items)
	for _, covered := range []string{
		"GET /pets -> 200",
		"POST /pets -> 201",
		"GET /pets/{petId} -> 200",
		"GET /pets/{petId} -> 404",
		"POST /graphql (query pet) -> 200",
		"POST /graphql (query pets) -> 200",
		"POST /graphql (mutation adoptPet) -> 200",
		"POST /petstore.v1.PetService/GetPet (petstore.v1.PetService.GetPet) -> 200",
	} {
		it, ok := items[covered]
		if !ok {
			t.Errorf("missing item %q", covered)
			continue
		}
		if it.Unmatched {
			t.Errorf("%q should be covered", covered)
		}
	}
	for _, uncovered := range []string{
		"POST /pets -> 400",
		"POST /petstore.v1.PetService/ListPets (petstore.v1.PetService.ListPets) -> 200",
	} {
		if it, ok := items[uncovered]; !ok || !it.Unmatched {
			t.Errorf("%q should be unmatched", uncovered)
		}
	}
}

func TestE2E_JUnitEvidenceMarksExecuted(t *testing.T) {
	_, c := setupE2EServer(t, match.Options{})
	run := c.Server().Current()

	it := itemsByDescription(run.Items)["GET /pets/{petId} -> 404"]
	if len(it.Matches) != 1 {
		t.Fatalf("matches = %+v, want the junit-backed exchange", it.Matches)
	}
	m := it.Matches[0]
	if m.Name != "Pets / Get pet" || !m.Executed {
		t.Errorf("match = %+v, want executed Pets / Get pet", m)
	}
}

func TestE2E_StrictMode(t *testing.T) {
	_, c := setupE2EServer(t, match.Options{StrictQueryParams: true, StrictRequestBody: true})
	run := c.Server().Current()

	items := itemsByDescription(run.Items)
	for _, desc := range []string{"GET /pets -> 200", "POST /pets -> 201", "POST /graphql (query pet) -> 200"} {
		if items[desc].Unmatched {
			t.Errorf("%q should survive strict validation", desc)
		}
	}
	// The document only selects pet, so the other root fields lose their match.
	for _, desc := range []string{"POST /graphql (query pets) -> 200", "POST /graphql (mutation adoptPet) -> 200"} {
		if !items[desc].Unmatched {
			t.Errorf("%q should be unmatched under strict body validation", desc)
		}
	}
}

func TestE2E_SmartMapping(t *testing.T) {
	_, c := setupE2EServer(t, match.Options{SmartMapping: true})
	run := c.Server().Current()

	items := itemsByDescription(run.Items)
	primary := items["GET /pets/{petId} -> 200"]
	if !primary.IsPrimaryMatch || primary.Assignment != coverage.AssignedPrimary {
		t.Errorf("200 outcome = %+v, want primary", primary)
	}
	if primary.MatchConfidence <= 0 || primary.MatchConfidence > 1 {
		t.Errorf("confidence = %v, want within (0, 1]", primary.MatchConfidence)
	}
	secondary := items["GET /pets/{petId} -> 404"]
	if secondary.IsPrimaryMatch {
		t.Error("404 outcome must not be primary")
	}
	if secondary.Unmatched || secondary.Assignment != coverage.AssignedByCode {
		t.Errorf("404 outcome = %+v, want attached by explicit code", secondary)
	}
}

func TestE2E_CoverageEndpoint(t *testing.T) {
	ts, _ := setupE2EServer(t, match.Options{})

	var page struct {
		Data []struct {
			Method     string `json:"method"`
			Path       string `json:"path"`
			Status     string `json:"status"`
			Unmatched  bool   `json:"unmatched"`
			NearMisses []struct {
				Name string `json:"name"`
			} `json:"near_misses"`
		} `json:"data"`
		TotalItems int `json:"total_items"`
	}
	if code := getJSON(t, ts.URL+"/__admin/coverage?unmatched=true", &page); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if page.TotalItems != 2 {
		t.Fatalf("unmatched total = %d, want 2", page.TotalItems)
	}
	for _, it := range page.Data {
		if !it.Unmatched {
			t.Errorf("%s %s %s listed but matched", it.Method, it.Path, it.Status)
		}
	}
}

func TestE2E_ProbeEndpoint(t *testing.T) {
	ts, _ := setupE2EServer(t, match.Options{})

	payload := `{"method":"DELETE","url":"https://api.example.com/pets/9","status":204,"same_method":false}`
	resp, err := http.Post(ts.URL+"/__admin/probe", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatalf("POST probe failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}

	var body struct {
		Matched int `json:"matched"`
		Results []struct {
			Operation   string  `json:"operation"`
			Similarity  float64 `json:"similarity"`
			FailedStage string  `json:"failed_stage"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Matched != 0 {
		t.Errorf("matched = %d, want 0 (no DELETE declared)", body.Matched)
	}
	if len(body.Results) != 10 {
		t.Fatalf("results = %d, want one per operation", len(body.Results))
	}
	top := body.Results[0]
	if !strings.HasPrefix(top.Operation, "GET /pets/{petId}") || top.FailedStage != "method" {
		t.Errorf("closest candidate = %+v", top)
	}
}

func TestE2E_ReloadAndTrace(t *testing.T) {
	ts, _ := setupE2EServer(t, match.Options{})

	resp, err := http.Post(ts.URL+"/__admin/reload", "application/json", nil)
	if err != nil {
		t.Fatalf("POST reload failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reload status = %d", resp.StatusCode)
	}

	var entries []struct {
		RunID      string  `json:"run_id"`
		Operations int     `json:"operations"`
		Matched    int     `json:"matched"`
		Percentage float64 `json:"percentage"`
	}
	if code := getJSON(t, ts.URL+"/__admin/trace?last=5", &entries); code != http.StatusOK {
		t.Fatalf("trace status = %d", code)
	}
	if len(entries) != 2 {
		t.Fatalf("trace entries = %d, want 2", len(entries))
	}
	if entries[0].RunID == entries[1].RunID {
		t.Error("each run should carry its own id")
	}
	if entries[1].Operations != 10 || entries[1].Matched != 8 || entries[1].Percentage != 80 {
		t.Errorf("latest entry = %+v", entries[1])
	}
}

func TestE2E_HTMLReport(t *testing.T) {
	ts, c := setupE2EServer(t, match.Options{})

	resp, err := http.Get(ts.URL + "/__admin/report")
	if err != nil {
		t.Fatalf("GET report failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
		t.Errorf("Content-Type = %q", resp.Header.Get("Content-Type"))
	}
	if !strings.Contains(string(body), c.Server().Current().ID) {
		t.Error("report should carry the run id")
	}
	if !strings.Contains(string(body), "ListPets") {
		t.Error("report should list the unmatched ListPets operation")
	}
}
