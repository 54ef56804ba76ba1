package match

// Stage names reported when a pipeline stops.
const (
	StageMethod    = "method"
	StagePath      = "path"
	StageEndpoint  = "endpoint"
	StageStatus    = "status"
	StageQuery     = "query"
	StageBody      = "body"
	StageOperation = "operation"
)

// StageKind groups stages so callers can run a subset of a pipeline.
type StageKind int

const (
	// KindStructural stages establish method+path identity.
	KindStructural StageKind = iota
	// KindStatus stages correlate declared and tested status codes.
	KindStatus
	// KindStrict stages are the opt-in query and body validators.
	KindStrict
)

// Verdict is the outcome of one stage.
type Verdict struct {
	OK     bool
	Reason string
}

// Pass is the passing verdict.
var Pass = Verdict{OK: true}

// Fail returns a failing verdict carrying reason.
func Fail(reason string) Verdict {
	return Verdict{Reason: reason}
}

// Check evaluates one rule for an operation/request pair.
type Check func(op *CompiledOperation, req *Request) Verdict

// Stage binds a named check to its kind.
type Stage struct {
	Name  string
	Kind  StageKind
	Check Check
}

// Outcome is the result of running a pipeline.
type Outcome struct {
	Passed      bool
	FailedStage string
	Reason      string
	// Strict reports whether any strict stage ran.
	Strict bool
}

// Run evaluates stages in order, skipping kinds for which include returns
// false, and stops at the first failure.
func Run(stages []Stage, op *CompiledOperation, req *Request, include func(StageKind) bool) Outcome {
	out := Outcome{Passed: true}
	for _, st := range stages {
		if include != nil && !include(st.Kind) {
			continue
		}
		if st.Kind == KindStrict {
			out.Strict = true
		}
		v := st.Check(op, req)
		if !v.OK {
			return Outcome{FailedStage: st.Name, Reason: v.Reason, Strict: out.Strict}
		}
	}
	return out
}

// Only returns a kind filter admitting exactly the given kinds.
func Only(kinds ...StageKind) func(StageKind) bool {
	return func(k StageKind) bool {
		for _, want := range kinds {
			if k == want {
				return true
			}
		}
		return false
	}
}

// Never is a check that always fails with reason.
func Never(reason string) Check {
	return func(*CompiledOperation, *Request) Verdict { return Fail(reason) }
}
