package usecases

import (
	"sort"

	"github.com/sophialabs/apicover/internal/domain/contract"
	"github.com/sophialabs/apicover/internal/domain/exchange"
	"github.com/sophialabs/apicover/internal/domain/match"
	"github.com/sophialabs/apicover/internal/domain/trace"
	"github.com/sophialabs/apicover/internal/infrastructure/services"
)

// ProbeUseCase evaluates one ad-hoc exchange against loaded operations and
// reports every operation's verdict.
type ProbeUseCase struct {
	correlator *match.Correlator
}

// NewProbeUseCase creates a new use case.
func NewProbeUseCase(correlator *match.Correlator) *ProbeUseCase {
	return &ProbeUseCase{correlator: correlator}
}

// Execute returns one result per candidate operation: matches first, then
// by descending path similarity. With sameMethod only operations reachable
// through the exchange's method are considered.
func (uc *ProbeUseCase) Execute(idx *services.OperationIndex, ex *exchange.Exchange, sameMethod bool) []trace.CandidateResult {
	services.NormalizeBodies([]*exchange.Exchange{ex})
	req := match.NewRequest(ex)

	candidates := idx.All()
	if sameMethod {
		candidates = idx.Lookup(req.Method)
	}

	out := make([]trace.CandidateResult, 0, len(candidates))
	for _, op := range candidates {
		if op.Operation == nil {
			continue
		}
		res := uc.correlator.Evaluate(op, req)
		score := uc.correlator.Score(op, req)
		cr := trace.CandidateResult{
			Operation:    Describe(op.Operation),
			Contract:     op.Operation.Common().ContractName,
			Matched:      res.Matched,
			Confidence:   score.Confidence,
			FailedStage:  res.FailedStage,
			FailedReason: res.Reason,
		}
		if op.Template != nil {
			cr.Similarity = op.Template.Similarity(req.Path)
		}
		out = append(out, cr)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Matched != out[j].Matched {
			return out[i].Matched
		}
		return out[i].Similarity > out[j].Similarity
	})
	return out
}

// Describe renders an operation as "METHOD /path -> status" plus its
// protocol-specific identity.
func Describe(op contract.Operation) string {
	if op == nil {
		return "<nil>"
	}
	b := op.Common()
	s := b.DisplayMethod() + " " + b.PathTemplate
	switch o := op.(type) {
	case *contract.RPCOperation:
		s += " (" + o.FullName() + ")"
	case *contract.QueryLanguageOperation:
		s += " (" + string(o.Kind) + " " + o.Field + ")"
	}
	if b.OutcomeStatusCode != "" {
		s += " -> " + b.OutcomeStatusCode
	}
	return s
}
