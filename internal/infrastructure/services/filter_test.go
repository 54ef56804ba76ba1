package services_test

import (
	"testing"

	"github.com/sophialabs/apicover/internal/domain/contract"
	"github.com/sophialabs/apicover/internal/infrastructure/services"
)

func filterOps() []contract.Operation {
	return []contract.Operation{
		&contract.RESTOperation{Base: contract.Base{Method: "GET", PathTemplate: "/v1/users", OutcomeStatusCode: "200", ContractName: "users"}},
		&contract.RESTOperation{Base: contract.Base{Method: "DELETE", PathTemplate: "/v1/users/{id}", OutcomeStatusCode: "204", ContractName: "users"}},
		&contract.RPCOperation{Base: contract.Base{Method: "POST"}, Service: "user.v1.UserService", RPCMethod: "GetUser"},
		&contract.QueryLanguageOperation{Base: contract.Base{Method: "POST"}, Kind: contract.KindMutation, Field: "createUser"},
	}
}

func TestOperationFilter_Apply(t *testing.T) {
	tests := []struct {
		expr string
		want int
	}{
		{`method == "GET"`, 1},
		{`protocol == "rest"`, 2},
		{`path startsWith "/v1" && status != "204"`, 1},
		{`service == "user.v1.UserService" && rpcMethod == "GetUser"`, 1},
		{`kind == "mutation" && field == "createUser"`, 1},
		{`contract in ["users"]`, 2},
		{`"id" in params`, 1},
		{`len(params) == 0`, 3},
		{`true`, 4},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			f, err := services.NewOperationFilter(tt.expr)
			if err != nil {
				t.Fatalf("NewOperationFilter: %v", err)
			}
			got, err := f.Apply(filterOps())
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("kept %d operations, want %d", len(got), tt.want)
			}
		})
	}
}

func TestOperationFilter_Empty(t *testing.T) {
	f, err := services.NewOperationFilter("")
	if err != nil || f != nil {
		t.Fatalf("empty filter = %v, %v", f, err)
	}
	got, _ := f.Apply(filterOps())
	if len(got) != 4 {
		t.Errorf("nil filter should keep everything, kept %d", len(got))
	}
}

func TestOperationFilter_CompileErrors(t *testing.T) {
	for _, bad := range []string{`method ==`, `unknownField == "x"`, `method`} {
		if _, err := services.NewOperationFilter(bad); err == nil {
			t.Errorf("expected compile error for %q", bad)
		}
	}
}
