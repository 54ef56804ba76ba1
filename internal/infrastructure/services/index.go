package services

import (
	"sort"

	"github.com/sophialabs/apicover/internal/domain/contract"
	"github.com/sophialabs/apicover/internal/domain/match"
)

// OperationIndex holds the compiled operations of one run, in contract order,
// with a per-method view for probing single exchanges.
type OperationIndex struct {
	all      []*match.CompiledOperation
	byMethod map[string][]*match.CompiledOperation
	groups   []string
}

// NewOperationIndex indexes ops. RPC and query-language operations are
// always reachable through POST.
func NewOperationIndex(ops []*match.CompiledOperation) *OperationIndex {
	idx := &OperationIndex{
		all:      ops,
		byMethod: make(map[string][]*match.CompiledOperation),
	}
	seen := make(map[string]bool)
	for _, op := range ops {
		if op.Operation == nil {
			continue
		}
		method := "POST"
		if op.Operation.Protocol() == contract.ProtocolREST {
			method = op.Operation.Common().DisplayMethod()
		}
		idx.byMethod[method] = append(idx.byMethod[method], op)

		key := op.Operation.Common().GroupKey()
		if !seen[key] {
			seen[key] = true
			idx.groups = append(idx.groups, key)
		}
	}
	sort.Strings(idx.groups)
	return idx
}

// Lookup returns the operations reachable with method, in contract order.
func (idx *OperationIndex) Lookup(method string) []*match.CompiledOperation {
	return idx.byMethod[method]
}

// All returns every indexed operation in contract order.
func (idx *OperationIndex) All() []*match.CompiledOperation {
	return idx.all
}

// Groups returns the distinct method+path keys, sorted.
func (idx *OperationIndex) Groups() []string {
	return idx.groups
}

// Len returns the number of indexed operations.
func (idx *OperationIndex) Len() int {
	return len(idx.all)
}
