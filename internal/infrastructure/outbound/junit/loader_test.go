package junit_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sophialabs/apicover/internal/domain/exchange"
	"github.com/sophialabs/apicover/internal/infrastructure/outbound/junit"
)

const report = `<?xml version="1.0" encoding="UTF-8"?>
<testsuites name="Pets">
  <testsuite name="List pets" tests="2" time="0.031">
    <testcase name="Status code is 200" time="0.001"/>
    <testcase name="has items">
      <failure type="AssertionFailure" message="expected [] to not be empty"/>
    </testcase>
  </testsuite>
  <testsuite name="Delete pet" time="0.002">
    <testcase name="Status code is 204"/>
    <testcase name="ignored"><skipped/></testcase>
  </testsuite>
  <testsuite name="">
    <testcase name="Status code is 500"/>
  </testsuite>
</testsuites>`

func TestLoader_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.xml")
	if err := os.WriteFile(path, []byte(report), 0o644); err != nil {
		t.Fatal(err)
	}

	l := junit.Loader{}
	if !l.Detect(path, []byte(report)) {
		t.Fatal("expected report to be detected")
	}
	batch, err := l.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(batch.Exchanges) != 0 {
		t.Errorf("junit yields no exchanges, got %d", len(batch.Exchanges))
	}
	if len(batch.Evidence) != 2 {
		t.Fatalf("got %d evidence records, want 2 (unnamed suite skipped)", len(batch.Evidence))
	}

	list := batch.Evidence[0]
	if list.RequestName != "List pets" || list.DurationMs != 31 {
		t.Errorf("list = %+v", list)
	}
	if len(list.StatusCodes) != 1 || list.StatusCodes[0] != "200" {
		t.Errorf("codes = %v", list.StatusCodes)
	}
	if len(list.Assertions) != 2 || list.Assertions[1].Passed || list.Assertions[1].Error != "expected [] to not be empty" {
		t.Errorf("assertions = %+v", list.Assertions)
	}

	del := batch.Evidence[1]
	if len(del.Assertions) != 1 || del.StatusCodes[0] != "204" {
		t.Errorf("delete = %+v", del)
	}
}

func TestLoader_EvidenceMergesByName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.xml")
	if err := os.WriteFile(path, []byte(report), 0o644); err != nil {
		t.Fatal(err)
	}
	batch, err := junit.Loader{}.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	exs := []*exchange.Exchange{{Name: "List pets"}, {Name: "Unrelated"}}
	if n := exchange.ApplyEvidence(exs, batch.Evidence); n != 1 {
		t.Errorf("updated = %d, want 1", n)
	}
	if !exs[0].Executed || !exs[0].TestsCode("200") || exs[0].Response.AllPassed {
		t.Errorf("merged = %+v", exs[0])
	}
	if exs[1].Executed {
		t.Error("unrelated exchange must stay unexecuted")
	}
}

func TestLoader_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.xml")
	if err := os.WriteFile(path, []byte("<testsuite><testcase"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := (junit.Loader{}).Load(context.Background(), path); err == nil {
		t.Fatal("expected parse error")
	}
}
