package services_test

import (
	"testing"

	"github.com/sophialabs/apicover/internal/domain/contract"
	"github.com/sophialabs/apicover/internal/domain/match"
	"github.com/sophialabs/apicover/internal/infrastructure/services"
)

func TestOperationIndex(t *testing.T) {
	var ops []*match.CompiledOperation
	for _, op := range filterOps() {
		ops = append(ops, match.Compile(op, nil))
	}
	ops = append(ops, match.Compile(&contract.RESTOperation{Base: contract.Base{Method: "get", PathTemplate: "/v1/users", OutcomeStatusCode: "500"}}, nil))

	idx := services.NewOperationIndex(ops)
	if idx.Len() != 5 {
		t.Errorf("Len() = %d", idx.Len())
	}
	if got := idx.Lookup("GET"); len(got) != 2 {
		t.Errorf("Lookup(GET) = %d ops, want 2", len(got))
	}
	if got := idx.Lookup("POST"); len(got) != 2 {
		t.Errorf("Lookup(POST) = %d ops, want rpc and query-language", len(got))
	}
	if got := idx.Lookup("PATCH"); len(got) != 0 {
		t.Errorf("Lookup(PATCH) = %d ops", len(got))
	}

	groups := idx.Groups()
	want := []string{"DELETE /v1/users/{id}", "GET /v1/users", "POST "}
	if len(groups) != len(want) {
		t.Fatalf("Groups() = %v", groups)
	}
	for i := range want {
		if groups[i] != want[i] {
			t.Errorf("Groups()[%d] = %q, want %q", i, groups[i], want[i])
		}
	}
}
