package match

import (
	"math"

	"github.com/sophialabs/apicover/internal/domain/contract"
)

// DefaultQueryLanguageEndpoint is the URL marker identifying query-language traffic.
const DefaultQueryLanguageEndpoint = "/graphql"

// Weights tune the confidence score. Only their relative ordering is
// significant: exact status > same success family > no status declared.
type Weights struct {
	Structural    float64
	ExactStatus   float64
	SuccessFamily float64
	NoStatus      float64
	Strict        float64
}

// DefaultWeights returns the standard confidence weights.
func DefaultWeights() Weights {
	return Weights{
		Structural:    0.6,
		ExactStatus:   0.3,
		SuccessFamily: 0.2,
		NoStatus:      0.1,
		Strict:        0.1,
	}
}

// Options are the run-level matching switches.
type Options struct {
	StrictQueryParams     bool
	StrictRequestBody     bool
	SmartMapping          bool
	QueryLanguageEndpoint string
	Weights               Weights
}

// Strict reports whether any strict validator is enabled.
func (o Options) Strict() bool {
	return o.StrictQueryParams || o.StrictRequestBody
}

// Result is the verdict for one operation/exchange pair.
type Result struct {
	Matched       bool
	StatusMatched bool
	Confidence    float64
	FailedStage   string
	Reason        string
}

// Correlator evaluates operation/exchange pairs. It holds no mutable state
// and is safe for concurrent use.
type Correlator struct {
	opts Options
}

// NewCorrelator creates a Correlator, filling unset options with defaults.
func NewCorrelator(opts Options) *Correlator {
	if opts.QueryLanguageEndpoint == "" {
		opts.QueryLanguageEndpoint = DefaultQueryLanguageEndpoint
	}
	if opts.Weights == (Weights{}) {
		opts.Weights = DefaultWeights()
	}
	return &Correlator{opts: opts}
}

// Options returns the effective options.
func (c *Correlator) Options() Options {
	return c.opts
}

// Evaluate runs the full pipeline: the boolean match used by default mode.
func (c *Correlator) Evaluate(op *CompiledOperation, req *Request) Result {
	out := Run(Pipeline(op, c.opts), op, req, nil)
	return Result{
		Matched:       out.Passed,
		StatusMatched: out.Passed,
		FailedStage:   out.FailedStage,
		Reason:        out.Reason,
	}
}

// Structural runs structural and strict stages, ignoring status codes.
func (c *Correlator) Structural(op *CompiledOperation, req *Request) Result {
	out := Run(Pipeline(op, c.opts), op, req, Only(KindStructural, KindStrict))
	return Result{Matched: out.Passed, FailedStage: out.FailedStage, Reason: out.Reason}
}

// Score evaluates the pair in confidence mode. A structural or strict
// failure yields confidence 0; otherwise the status relation and strict
// validation add to the structural base, capped at 1.
func (c *Correlator) Score(op *CompiledOperation, req *Request) Result {
	stages := Pipeline(op, c.opts)
	structural := Run(stages, op, req, Only(KindStructural))
	if !structural.Passed {
		return Result{FailedStage: structural.FailedStage, Reason: structural.Reason}
	}
	strict := Run(stages, op, req, Only(KindStrict))
	if !strict.Passed {
		return Result{FailedStage: strict.FailedStage, Reason: strict.Reason}
	}

	w := c.opts.Weights
	res := Result{Matched: true, Confidence: w.Structural}

	base := op.Operation.Common()
	code := base.OutcomeStatusCode
	switch {
	case !base.HasOutcome():
		res.Confidence += w.NoStatus
		res.StatusMatched = true
	case req.Exchange.TestsCode(code):
		res.Confidence += w.ExactStatus
		res.StatusMatched = true
	case contract.IsSuccess(code) && testsAnySuccess(req):
		res.Confidence += w.SuccessFamily
	}

	if c.opts.Strict() {
		res.Confidence += w.Strict
	}
	res.Confidence = clamp(math.Round(res.Confidence*1e4) / 1e4)
	return res
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func testsAnySuccess(req *Request) bool {
	for _, c := range req.Exchange.TestedStatusCodes {
		if contract.IsSuccess(c) {
			return true
		}
	}
	return false
}
