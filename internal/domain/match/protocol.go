package match

import (
	"fmt"
	"strings"

	"github.com/sophialabs/apicover/internal/domain/contract"
)

// Pipeline returns the ordered stages for op under opts. The dispatch is an
// exhaustive switch over the closed operation union; anything else never matches.
func Pipeline(op *CompiledOperation, opts Options) []Stage {
	if op == nil {
		return []Stage{{Name: StageOperation, Kind: KindStructural, Check: Never("no operation")}}
	}
	switch op.Operation.(type) {
	case *contract.RESTOperation:
		return restStages(opts)
	case *contract.RPCOperation:
		return rpcStages(opts)
	case *contract.QueryLanguageOperation:
		return queryLanguageStages(opts)
	default:
		return []Stage{{Name: StageOperation, Kind: KindStructural, Check: Never("unsupported operation")}}
	}
}

func restStages(opts Options) []Stage {
	stages := []Stage{
		{Name: StageMethod, Kind: KindStructural, Check: checkMethod},
		{Name: StagePath, Kind: KindStructural, Check: checkTemplate},
		{Name: StageStatus, Kind: KindStatus, Check: checkOutcomeTested},
	}
	if opts.StrictQueryParams {
		stages = append(stages, Stage{Name: StageQuery, Kind: KindStrict, Check: checkQuery})
	}
	if opts.StrictRequestBody {
		stages = append(stages, Stage{Name: StageBody, Kind: KindStrict, Check: checkJSONBody})
	}
	return stages
}

func rpcStages(opts Options) []Stage {
	stages := []Stage{
		{Name: StageMethod, Kind: KindStructural, Check: requirePost},
		{Name: StagePath, Kind: KindStructural, Check: checkRPCForms},
	}
	if opts.StrictRequestBody {
		stages = append(stages, Stage{Name: StageBody, Kind: KindStrict, Check: checkRPCBody})
	}
	return stages
}

func queryLanguageStages(opts Options) []Stage {
	endpoint := opts.QueryLanguageEndpoint
	stages := []Stage{
		{Name: StageMethod, Kind: KindStructural, Check: requirePost},
		{Name: StageEndpoint, Kind: KindStructural, Check: func(_ *CompiledOperation, req *Request) Verdict {
			if strings.Contains(req.URLNoQuery, endpoint) {
				return Pass
			}
			return Fail(fmt.Sprintf("url does not contain %q", endpoint))
		}},
	}
	if opts.StrictRequestBody {
		stages = append(stages, Stage{Name: StageBody, Kind: KindStrict, Check: checkQueryDocument})
	}
	return stages
}

func checkMethod(op *CompiledOperation, req *Request) Verdict {
	want := op.Operation.Common().DisplayMethod()
	if req.Method == want {
		return Pass
	}
	return Fail(fmt.Sprintf("method %s, want %s", req.Method, want))
}

func requirePost(_ *CompiledOperation, req *Request) Verdict {
	if req.Method == "POST" {
		return Pass
	}
	return Fail(fmt.Sprintf("method %s, want POST", req.Method))
}

func checkTemplate(op *CompiledOperation, req *Request) Verdict {
	if op.Template == nil || op.Operation.Common().PathTemplate == "" {
		return Fail("operation declares no path")
	}
	if op.Template.matchSegments(splitSegments(req.Path)) {
		return Pass
	}
	return Fail(fmt.Sprintf("path %s does not match %s", req.Path, op.Template.Raw()))
}

func checkOutcomeTested(op *CompiledOperation, req *Request) Verdict {
	base := op.Operation.Common()
	if !base.HasOutcome() || req.Exchange.TestsCode(base.OutcomeStatusCode) {
		return Pass
	}
	return Fail(fmt.Sprintf("status %s not among tested codes %v", base.OutcomeStatusCode, req.Exchange.TestedStatusCodes))
}

func checkQuery(op *CompiledOperation, req *Request) Verdict {
	return CheckQuery(op.QueryRules, req.Query)
}

func checkJSONBody(op *CompiledOperation, req *Request) Verdict {
	return CheckJSONBody(op.Operation.Common().BodyContentTypes, req.Exchange.Body)
}

func checkRPCForms(op *CompiledOperation, req *Request) Verdict {
	parts := splitSegments(req.Path)
	for _, form := range op.RPCForms {
		if form.matchSegments(parts) {
			return Pass
		}
	}
	return Fail(fmt.Sprintf("path %s matches no service/method form", req.Path))
}

// checkRPCBody accepts binary and JSON payloads alike; only a present but
// empty body is rejected.
func checkRPCBody(_ *CompiledOperation, req *Request) Verdict {
	b := req.Exchange.Body
	if b.Present() && b.Empty() {
		return Fail("rpc body is present but empty")
	}
	return Pass
}

func checkQueryDocument(op *CompiledOperation, req *Request) Verdict {
	ql, ok := op.Operation.(*contract.QueryLanguageOperation)
	if !ok {
		return Fail("not a query-language operation")
	}
	b := req.Exchange.Body
	if !b.Present() || b.Empty() {
		return Fail("query document missing")
	}
	extract := op.QueryText
	if extract == nil {
		extract = DefaultQueryText
	}
	text, found := extract(b.Raw)
	if !found || strings.TrimSpace(text) == "" {
		return Fail("body has no query text")
	}

	kind := ql.Kind
	if kind == "" {
		kind = contract.KindQuery
	}
	if !strings.Contains(strings.ToLower(text), string(kind)) {
		return Fail(fmt.Sprintf("query text lacks %q keyword", kind))
	}
	if ql.Field != "" {
		selected, parsed := selectsRootField(text, kind, ql.Field)
		if !parsed {
			re := op.FieldCall
			if re == nil {
				re = FieldCallPattern(ql.Field)
			}
			selected = re.MatchString(text)
		}
		if !selected {
			return Fail(fmt.Sprintf("query text does not select field %q", ql.Field))
		}
	}
	return Pass
}
