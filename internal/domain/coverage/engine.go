package coverage

import (
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/sophialabs/apicover/internal/domain/match"
)

// EngineConfig tunes evaluation without affecting results.
type EngineConfig struct {
	// Workers bounds per-operation parallelism. Values below 2 evaluate serially.
	Workers int
	// NearMisses is how many near-miss exchanges to report per unmatched item.
	NearMisses int
}

// Engine produces coverage items from compiled operations and prepared requests.
type Engine struct {
	correlator *match.Correlator
	cfg        EngineConfig
}

// NewEngine creates an Engine around correlator.
func NewEngine(correlator *match.Correlator, cfg EngineConfig) *Engine {
	return &Engine{correlator: correlator, cfg: cfg}
}

// Correlator returns the engine's correlator.
func (e *Engine) Correlator() *match.Correlator {
	return e.correlator
}

// Compute returns exactly one item per operation. In default mode items
// mirror operation order; with smart mapping enabled operations are reordered
// only within their method+path group.
func (e *Engine) Compute(ops []*match.CompiledOperation, reqs []*match.Request) []Item {
	var items []Item
	if e.correlator.Options().SmartMapping {
		items = e.resolveSmart(ops, reqs)
	} else {
		items = e.computeFlat(ops, reqs)
	}
	if e.cfg.NearMisses > 0 {
		e.attachNearMisses(items, reqs)
	}
	return items
}

func (e *Engine) computeFlat(ops []*match.CompiledOperation, reqs []*match.Request) []Item {
	items := make([]Item, len(ops))
	e.forEach(len(ops), func(i int) {
		op := ops[i]
		item := Item{Operation: op.Operation, compiled: op}
		for _, req := range reqs {
			if e.correlator.Evaluate(op, req).Matched {
				item.Matches = append(item.Matches, newMatchedExchange(req.Exchange, 0))
			}
		}
		item.Unmatched = len(item.Matches) == 0
		items[i] = item
	})
	return items
}

// forEach runs fn for 0..n-1, in parallel when configured. Each index is
// written by exactly one goroutine, so output order is preserved.
func (e *Engine) forEach(n int, fn func(i int)) {
	if e.cfg.Workers < 2 || n < 2 {
		for i := range n {
			fn(i)
		}
		return
	}
	var g errgroup.Group
	g.SetLimit(e.cfg.Workers)
	for i := range n {
		g.Go(func() error {
			fn(i)
			return nil
		})
	}
	_ = g.Wait()
}

func (e *Engine) attachNearMisses(items []Item, reqs []*match.Request) {
	e.forEach(len(items), func(i int) {
		if !items[i].Unmatched || items[i].compiled == nil {
			return
		}
		items[i].NearMisses = e.nearMisses(items[i].compiled, reqs)
	})
}

func (e *Engine) nearMisses(op *match.CompiledOperation, reqs []*match.Request) []NearMiss {
	if op.Template == nil {
		return nil
	}
	var out []NearMiss
	for _, req := range reqs {
		sim := op.Template.Similarity(req.Path)
		if sim <= 0 {
			continue
		}
		res := e.correlator.Evaluate(op, req)
		out = append(out, NearMiss{
			Name:        req.Exchange.Name,
			URL:         req.Exchange.RawURL,
			Method:      req.Method,
			Similarity:  sim,
			FailedStage: res.FailedStage,
			Reason:      res.Reason,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Similarity > out[j].Similarity
	})
	if len(out) > e.cfg.NearMisses {
		out = out[:e.cfg.NearMisses]
	}
	return out
}
