package contract

import (
	"context"
	"errors"
)

// ErrUnknownFormat indicates a contract source whose format could not be detected.
var ErrUnknownFormat = errors.New("unknown contract format")

// ErrNoOperations indicates that the configured contracts declared nothing.
var ErrNoOperations = errors.New("contracts declare no operations")

// Source points at one contract document.
type Source struct {
	Path string
	// Format overrides detection: openapi, graphql, proto, csv, yaml.
	Format string
	// Name overrides the contract name reported in provenance tags.
	Name string
}

// Repository is the port for loading declared operations.
type Repository interface {
	// LoadAll loads and flattens operations from every configured source,
	// preserving source order and in-source declaration order.
	LoadAll(ctx context.Context) ([]Operation, error)
}

// AggregateExpected fills ExpectedStatusCodes for every operation from the
// outcomes declared under the same method+path. Declaration order is kept and
// duplicates are dropped.
func AggregateExpected(ops []Operation) {
	codes := make(map[string][]string)
	seen := make(map[string]map[string]bool)
	for _, op := range ops {
		b := op.Common()
		key := b.GroupKey()
		if seen[key] == nil {
			seen[key] = make(map[string]bool)
		}
		if b.OutcomeStatusCode == "" || seen[key][b.OutcomeStatusCode] {
			continue
		}
		seen[key][b.OutcomeStatusCode] = true
		codes[key] = append(codes[key], b.OutcomeStatusCode)
	}
	for _, op := range ops {
		b := op.Common()
		b.ExpectedStatusCodes = append([]string(nil), codes[b.GroupKey()]...)
	}
}
