package postman_test

import (
	"context"
	"testing"

	"github.com/sophialabs/apicover/internal/infrastructure/outbound/postman"
)

const newmanReport = `{
  "collection": {"info": {"name": "Pets"}, "item": []},
  "run": {
    "stats": {},
    "executions": [
      {
        "item": {"name": "List pets"},
        "request": {
          "method": "GET",
          "url": {"protocol": "http", "host": ["localhost"], "port": "8080", "path": ["pets"], "query": [{"key": "limit", "value": "5"}]}
        },
        "response": {"code": 200, "responseTime": 31, "responseSize": 120},
        "assertions": [
          {"assertion": "Status code is 200"},
          {"assertion": "has items", "error": {"message": "expected [] to not be empty"}},
          {"assertion": "skipped one", "skipped": true}
        ]
      },
      {
        "item": {"name": "Missing pet"},
        "request": {"method": "GET", "url": {"raw": "http://localhost:8080/pets/0"}},
        "response": {"code": 404},
        "assertions": [{"assertion": "Status code is 404"}]
      }
    ]
  }
}`

func TestNewmanLoader_Detect(t *testing.T) {
	l := postman.NewmanLoader{}
	if !l.Detect("run.json", []byte(newmanReport)) {
		t.Error("expected newman report to be detected")
	}
	if l.Detect("pets.json", []byte(petCollection)) {
		t.Error("collection must not be detected as a run report")
	}
}

func TestNewmanLoader_Load(t *testing.T) {
	path := writeJSON(t, "run.json", newmanReport)

	batch, err := postman.NewmanLoader{}.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(batch.Exchanges) != 2 {
		t.Fatalf("got %d exchanges, want 2", len(batch.Exchanges))
	}

	list := batch.Exchanges[0]
	if !list.Executed || list.Name != "List pets" || list.Method != "GET" {
		t.Errorf("list = %+v", list)
	}
	if list.RawURL != "http://localhost:8080/pets" {
		t.Errorf("url = %q", list.RawURL)
	}
	if got := list.QueryValues().Get("limit"); got != "5" {
		t.Errorf("limit = %q", got)
	}
	if list.Response == nil || list.Response.StatusCode != 200 || list.Response.DurationMs != 31 {
		t.Fatalf("response = %+v", list.Response)
	}
	if len(list.Response.Assertions) != 2 || list.Response.AllPassed {
		t.Errorf("assertions = %+v", list.Response.Assertions)
	}
	if len(list.TestedStatusCodes) != 1 || list.TestedStatusCodes[0] != "200" {
		t.Errorf("tested = %v", list.TestedStatusCodes)
	}

	missing := batch.Exchanges[1]
	if !missing.TestsCode("404") || !missing.Response.AllPassed {
		t.Errorf("missing = %+v", missing)
	}
}

func TestNewmanLoader_NoExecutions(t *testing.T) {
	path := writeJSON(t, "run.json", `{"collection": {}}`)
	if _, err := (postman.NewmanLoader{}).Load(context.Background(), path); err == nil {
		t.Fatal("expected error for report without executions")
	}
}
