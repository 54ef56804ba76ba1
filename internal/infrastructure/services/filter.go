package services

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/sophialabs/apicover/internal/domain/contract"
	"github.com/sophialabs/apicover/internal/domain/match"
)

// filterEnv is the environment visible to filter expressions.
type filterEnv struct {
	Method    string   `expr:"method"`
	Path      string   `expr:"path"`
	Status    string   `expr:"status"`
	Protocol  string   `expr:"protocol"`
	Contract  string   `expr:"contract"`
	Source    string   `expr:"source"`
	Service   string   `expr:"service"`
	RPCMethod string   `expr:"rpcMethod"`
	Kind      string   `expr:"kind"`
	Field     string   `expr:"field"`
	Params    []string `expr:"params"`
}

func newFilterEnv(op contract.Operation) filterEnv {
	b := op.Common()
	env := filterEnv{
		Method:   b.DisplayMethod(),
		Path:     b.PathTemplate,
		Status:   b.OutcomeStatusCode,
		Protocol: string(op.Protocol()),
		Contract: b.ContractName,
		Source:   b.SourceID,
		Params:   match.CompileTemplate(b.PathTemplate).Params(),
	}
	switch o := op.(type) {
	case *contract.RPCOperation:
		env.Service = o.Service
		env.RPCMethod = o.RPCMethod
	case *contract.QueryLanguageOperation:
		env.Kind = string(o.Kind)
		env.Field = o.Field
	}
	return env
}

// OperationFilter selects operations with a boolean expression, e.g.
// `protocol == "rest" && path startsWith "/v2"`.
type OperationFilter struct {
	source  string
	program *vm.Program
}

// NewOperationFilter compiles expression. An empty expression yields a nil
// filter, which keeps every operation.
func NewOperationFilter(expression string) (*OperationFilter, error) {
	if expression == "" {
		return nil, nil
	}
	program, err := expr.Compile(expression, expr.Env(filterEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("failed to compile filter %q: %w", expression, err)
	}
	return &OperationFilter{source: expression, program: program}, nil
}

// String returns the filter expression.
func (f *OperationFilter) String() string {
	if f == nil {
		return ""
	}
	return f.source
}

// Keep reports whether op passes the filter.
func (f *OperationFilter) Keep(op contract.Operation) (bool, error) {
	if f == nil {
		return true, nil
	}
	out, err := expr.Run(f.program, newFilterEnv(op))
	if err != nil {
		return false, fmt.Errorf("filter evaluation failed: %w", err)
	}
	keep, _ := out.(bool)
	return keep, nil
}

// Apply returns the operations that pass the filter, preserving order.
func (f *OperationFilter) Apply(ops []contract.Operation) ([]contract.Operation, error) {
	if f == nil {
		return ops, nil
	}
	kept := make([]contract.Operation, 0, len(ops))
	for _, op := range ops {
		ok, err := f.Keep(op)
		if err != nil {
			return nil, err
		}
		if ok {
			kept = append(kept, op)
		}
	}
	return kept, nil
}
