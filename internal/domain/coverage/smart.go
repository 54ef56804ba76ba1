package coverage

import (
	"sort"

	"github.com/sophialabs/apicover/internal/domain/contract"
	"github.com/sophialabs/apicover/internal/domain/match"
)

type group struct {
	key     string
	members []*match.CompiledOperation
}

// groupOperations buckets operations by method+path, keeping groups in order
// of first appearance and members in input order.
func groupOperations(ops []*match.CompiledOperation) []*group {
	var groups []*group
	byKey := make(map[string]*group)
	for _, op := range ops {
		key := ""
		if op.Operation != nil {
			key = op.Operation.Common().GroupKey()
		}
		g, ok := byKey[key]
		if !ok {
			g = &group{key: key}
			byKey[key] = g
			groups = append(groups, g)
		}
		g.members = append(g.members, op)
	}
	return groups
}

// priorityRank orders outcomes: 2xx codes first, then other numeric codes,
// then absent or non-numeric codes. Ties break on the numeric code.
func priorityRank(op *match.CompiledOperation) (class, code int) {
	if op.Operation == nil {
		return 2, 0
	}
	n, ok := contract.StatusNumber(op.Operation.Common().OutcomeStatusCode)
	switch {
	case !ok:
		return 2, 0
	case n >= 200 && n < 300:
		return 0, n
	default:
		return 1, n
	}
}

func sortByPriority(members []*match.CompiledOperation) []*match.CompiledOperation {
	sorted := append([]*match.CompiledOperation(nil), members...)
	sort.SliceStable(sorted, func(i, j int) bool {
		ci, ni := priorityRank(sorted[i])
		cj, nj := priorityRank(sorted[j])
		if ci != cj {
			return ci < cj
		}
		return ni < nj
	})
	return sorted
}

func (e *Engine) resolveSmart(ops []*match.CompiledOperation, reqs []*match.Request) []Item {
	groups := groupOperations(ops)
	resolved := make([][]Item, len(groups))
	e.forEach(len(groups), func(i int) {
		resolved[i] = e.resolveGroup(groups[i], reqs)
	})

	items := make([]Item, 0, len(ops))
	for _, r := range resolved {
		items = append(items, r...)
	}
	return items
}

// resolveGroup assigns exchanges to the outcomes of one method+path group.
// The first success-coded outcome with a success-matching exchange becomes
// the primary; other outcomes only collect exchanges that explicitly tested
// their code.
func (e *Engine) resolveGroup(g *group, reqs []*match.Request) []Item {
	ordered := sortByPriority(g.members)

	var candidates []*match.Request
	for _, req := range reqs {
		for _, op := range ordered {
			if e.correlator.Structural(op, req).Matched {
				candidates = append(candidates, req)
				break
			}
		}
	}

	hasSuccess := false
	for _, op := range ordered {
		if op.Operation != nil && contract.IsSuccess(op.Operation.Common().OutcomeStatusCode) {
			hasSuccess = true
			break
		}
	}

	items := make([]Item, 0, len(ordered))
	primaryTaken := false
	for _, op := range ordered {
		item := Item{Operation: op.Operation, compiled: op}
		if op.Operation == nil {
			item.Unmatched = true
			items = append(items, item)
			continue
		}
		code := op.Operation.Common().OutcomeStatusCode

		var primary *match.Request
		if !primaryTaken && (contract.IsSuccess(code) || (code == "" && !hasSuccess)) {
			for _, req := range candidates {
				if (code == "" || isSuccessMatch(req)) && e.correlator.Score(op, req).Matched {
					primary = req
					break
				}
			}
		}

		for _, req := range candidates {
			isPrimary := req == primary
			if !isPrimary && !req.Exchange.TestsCode(code) {
				continue
			}
			score := e.correlator.Score(op, req)
			if !score.Matched {
				continue
			}
			item.Matches = append(item.Matches, newMatchedExchange(req.Exchange, score.Confidence))
			if score.Confidence > item.MatchConfidence {
				item.MatchConfidence = score.Confidence
			}
		}

		switch {
		case primary != nil:
			item.IsPrimaryMatch = true
			item.Assignment = AssignedPrimary
			primaryTaken = true
		case len(item.Matches) > 0:
			item.Assignment = AssignedByCode
		}
		item.Unmatched = len(item.Matches) == 0
		items = append(items, item)
	}
	return items
}

// isSuccessMatch reports whether an exchange can stand for the happy path:
// it tested no codes at all, or at least one 2xx code.
func isSuccessMatch(req *match.Request) bool {
	if len(req.Exchange.TestedStatusCodes) == 0 {
		return true
	}
	for _, c := range req.Exchange.TestedStatusCodes {
		if contract.IsSuccess(c) {
			return true
		}
	}
	return false
}
