package filesystem_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/sophialabs/apicover/internal/domain/contract"
	"github.com/sophialabs/apicover/internal/infrastructure/outbound/filesystem"
	"github.com/sophialabs/apicover/internal/infrastructure/ports"
	"github.com/sophialabs/apicover/internal/testutil"
)

func TestContractRepository_DetectsAndAggregates(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "users.yaml")
	writeFile(t, yamlPath, `name: users
operations:
  - method: get
    path: /users/{id}
    responses: ["200", "404"]
`)
	csvPath := filepath.Join(dir, "extra.csv")
	writeFile(t, csvPath, "method,path,status\nGET,/users/{id},500\n")

	repo := filesystem.NewContractRepository(
		[]contract.Source{{Path: yamlPath}, {Path: csvPath}},
		[]ports.ContractLoader{&filesystem.YAMLContractLoader{}, filesystem.CSVContractLoader{}},
		&testutil.NoopLogger{},
	)

	ops, err := repo.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(ops) != 3 {
		t.Fatalf("got %d operations, want 3", len(ops))
	}
	for _, op := range ops {
		got := op.Common().ExpectedStatusCodes
		if len(got) != 3 || got[0] != "200" || got[1] != "404" || got[2] != "500" {
			t.Errorf("%s expected codes = %v", op.Common().OutcomeStatusCode, got)
		}
	}
	if ops[2].Common().ContractName != "extra" {
		t.Errorf("csv contract name = %q, want file base name", ops[2].Common().ContractName)
	}
}

func TestContractRepository_FormatOverrideAndName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "inventory.txt")
	writeFile(t, path, "method,path\nPOST,/orders\n")

	repo := filesystem.NewContractRepository(
		[]contract.Source{{Path: path, Format: "CSV", Name: "orders-api"}},
		[]ports.ContractLoader{filesystem.CSVContractLoader{}},
		&testutil.NoopLogger{},
	)
	ops, err := repo.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(ops) != 1 || ops[0].Common().ContractName != "orders-api" {
		t.Fatalf("ops = %+v", ops)
	}
}

func TestContractRepository_UnknownFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "api.txt")
	writeFile(t, path, "hello")

	tests := []struct {
		name   string
		format string
	}{
		{"undetectable", ""},
		{"unknown override", "wsdl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := filesystem.NewContractRepository(
				[]contract.Source{{Path: path, Format: tt.format}},
				[]ports.ContractLoader{filesystem.CSVContractLoader{}},
				&testutil.NoopLogger{},
			)
			_, err := repo.LoadAll(context.Background())
			if !errors.Is(err, contract.ErrUnknownFormat) {
				t.Errorf("err = %v, want ErrUnknownFormat", err)
			}
		})
	}
}

func TestContractRepository_LoaderErrorAndDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.stub")
	writeFile(t, path, "")

	boom := errors.New("boom")
	repo := filesystem.NewContractRepository(
		[]contract.Source{{Path: path}},
		[]ports.ContractLoader{&testutil.StubContractLoader{Name: "stub", Ext: ".stub", Err: boom}},
		&testutil.NoopLogger{},
	)
	if _, err := repo.LoadAll(context.Background()); !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped boom", err)
	}

	op := &contract.RESTOperation{Base: contract.Base{Method: "GET", PathTemplate: "/x"}}
	repo = filesystem.NewContractRepository(
		[]contract.Source{{Path: path}},
		[]ports.ContractLoader{&testutil.StubContractLoader{Name: "stub", Ext: ".stub", Ops: []contract.Operation{op}}},
		&testutil.NoopLogger{},
	)
	ops, err := repo.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if ops[0].Common().SourceID != path {
		t.Errorf("SourceID = %q, want %q", ops[0].Common().SourceID, path)
	}
}

func TestContractRepository_CanceledContext(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.csv")
	writeFile(t, path, "method,path\nGET,/\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	repo := filesystem.NewContractRepository(
		[]contract.Source{{Path: path}},
		[]ports.ContractLoader{filesystem.CSVContractLoader{}},
		&testutil.NoopLogger{},
	)
	if _, err := repo.LoadAll(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
