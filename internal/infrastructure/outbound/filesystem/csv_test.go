package filesystem_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sophialabs/apicover/internal/domain/contract"
	"github.com/sophialabs/apicover/internal/infrastructure/outbound/filesystem"
)

func TestCSVContractLoader_Load(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "inventory.csv")
	writeFile(t, path, `Path, Method, Status, Required_Query, JSON_Body, Protocol, Service, RPC_Method
/pets,get,200,limit;offset,,,,
/pets,post,201,,true,,,
,,,,,,,
/pkg.Svc/Do,post,200,,,grpc,pkg.Svc,Do
`)

	ops, err := filesystem.CSVContractLoader{}.Load(context.Background(), contract.Source{Path: path})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(ops) != 3 {
		t.Fatalf("got %d operations, want 3 (blank row skipped)", len(ops))
	}

	list := ops[0].Common()
	if list.Method != "GET" || list.OutcomeStatusCode != "200" {
		t.Errorf("ops[0] = %+v", list)
	}
	if q := list.QueryParameters(); len(q) != 2 || q[1].Name != "offset" || !q[1].Required {
		t.Errorf("query params = %+v", q)
	}
	if ct := ops[1].Common().BodyContentTypes; len(ct) != 1 || ct[0] != "application/json" {
		t.Errorf("body content types = %v", ct)
	}
	if rpc, ok := ops[2].(*contract.RPCOperation); !ok || rpc.FullName() != "pkg.Svc.Do" {
		t.Errorf("ops[2] = %+v", ops[2])
	}
	if list.ContractName != "inventory" {
		t.Errorf("contract name = %q", list.ContractName)
	}
}

func TestCSVContractLoader_MissingColumn(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.csv")
	writeFile(t, path, "path,status\n/x,200\n")

	if _, err := (filesystem.CSVContractLoader{}).Load(context.Background(), contract.Source{Path: path}); err == nil {
		t.Fatal("expected error for missing method column")
	}
}

func TestCSVContractLoader_Empty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.csv")
	writeFile(t, path, "")

	ops, err := filesystem.CSVContractLoader{}.Load(context.Background(), contract.Source{Path: path})
	if err != nil || len(ops) != 0 {
		t.Fatalf("ops = %v, err = %v", ops, err)
	}
}
