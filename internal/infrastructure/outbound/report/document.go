// Package report renders coverage results for humans and machines.
package report

import (
	"time"

	"github.com/sophialabs/apicover/internal/domain/contract"
	"github.com/sophialabs/apicover/internal/domain/coverage"
)

// Document is what every renderer consumes.
type Document struct {
	RunID       string           `json:"run_id"`
	GeneratedAt time.Time        `json:"generated_at"`
	Summary     coverage.Summary `json:"summary"`
	Items       []ItemView       `json:"items"`
}

// ItemView flattens a coverage item for serialization.
type ItemView struct {
	Protocol    string                     `json:"protocol"`
	Method      string                     `json:"method"`
	Path        string                     `json:"path"`
	Status      string                     `json:"status,omitempty"`
	Expected    []string                   `json:"expected_status_codes,omitempty"`
	Operation   string                     `json:"operation,omitempty"`
	OperationID string                     `json:"operation_id,omitempty"`
	Contract    string                     `json:"contract,omitempty"`
	Unmatched   bool                       `json:"unmatched"`
	Primary     bool                       `json:"is_primary_match,omitempty"`
	Confidence  float64                    `json:"match_confidence,omitempty"`
	Assignment  string                     `json:"assignment,omitempty"`
	Matches     []coverage.MatchedExchange `json:"matches"`
	NearMisses  []coverage.NearMiss        `json:"near_misses,omitempty"`
}

// NewDocument builds a Document from engine output.
func NewDocument(runID string, at time.Time, items []coverage.Item) Document {
	doc := Document{
		RunID:       runID,
		GeneratedAt: at,
		Summary:     coverage.Summarize(items),
		Items:       make([]ItemView, 0, len(items)),
	}
	for _, it := range items {
		doc.Items = append(doc.Items, NewItemView(it))
	}
	return doc
}

// NewItemView converts one item.
func NewItemView(it coverage.Item) ItemView {
	v := ItemView{
		Unmatched:  it.Unmatched,
		Primary:    it.IsPrimaryMatch,
		Confidence: it.MatchConfidence,
		Assignment: string(it.Assignment),
		Matches:    it.Matches,
		NearMisses: it.NearMisses,
	}
	if v.Matches == nil {
		v.Matches = []coverage.MatchedExchange{}
	}
	if it.Operation == nil {
		return v
	}
	b := it.Operation.Common()
	v.Protocol = string(it.Operation.Protocol())
	v.Method = b.DisplayMethod()
	v.Path = b.PathTemplate
	v.Status = b.OutcomeStatusCode
	v.Expected = b.ExpectedStatusCodes
	v.OperationID = b.OperationID
	v.Contract = b.ContractName
	switch op := it.Operation.(type) {
	case *contract.RPCOperation:
		v.Operation = op.FullName()
	case *contract.QueryLanguageOperation:
		v.Operation = string(op.Kind) + " " + op.Field
	}
	return v
}
