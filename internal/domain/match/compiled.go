package match

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/sophialabs/apicover/internal/domain/contract"
)

// ValueCheck validates one raw query value against a declared schema.
type ValueCheck func(raw string) error

// QueryRule is a declared query parameter ready for strict checking.
type QueryRule struct {
	Name     string
	Required bool
	// Check is nil when the parameter declares no value schema.
	Check ValueCheck
}

// TextExtractor pulls the query-language document out of a request body.
type TextExtractor func(body string) (string, bool)

// CompiledOperation holds an operation together with everything precomputed
// for matching it.
type CompiledOperation struct {
	Operation contract.Operation
	Template  *PathTemplate

	// RPCForms are the candidate path forms tried in order for RPC operations.
	RPCForms []*PathTemplate

	QueryRules []QueryRule

	// QueryText extracts the document text for query-language operations.
	QueryText TextExtractor

	// FieldCall matches the declared field name followed by ( or {. It is
	// used when the query text does not parse as a document.
	FieldCall *regexp.Regexp
}

// TemplateSource returns a compiled template for a raw path.
type TemplateSource func(raw string) *PathTemplate

// Compile precompiles op. templates may be nil, in which case every template
// is compiled fresh. Query rules are created without value checks; callers
// that support value schemas fill QueryRules[i].Check afterwards.
func Compile(op contract.Operation, templates TemplateSource) *CompiledOperation {
	if templates == nil {
		templates = CompileTemplate
	}
	co := &CompiledOperation{Operation: op}
	if op == nil {
		return co
	}

	base := op.Common()
	co.Template = templates(base.PathTemplate)
	for _, p := range base.QueryParameters() {
		co.QueryRules = append(co.QueryRules, QueryRule{Name: p.Name, Required: p.Required})
	}

	switch o := op.(type) {
	case *contract.RPCOperation:
		co.RPCForms = rpcForms(o, templates)
	case *contract.QueryLanguageOperation:
		co.QueryText = DefaultQueryText
		if o.Field != "" {
			co.FieldCall = FieldCallPattern(o.Field)
		}
	}
	return co
}

func rpcForms(o *contract.RPCOperation, templates TemplateSource) []*PathTemplate {
	var forms []*PathTemplate
	if o.Service != "" && o.RPCMethod != "" {
		forms = append(forms, templates("/"+o.Service+"/"+o.RPCMethod))
	}
	if fq := o.FullName(); fq != "" {
		forms = append(forms, templates("/"+fq))
	}
	if o.RPCMethod != "" {
		forms = append(forms, templates("/"+o.RPCMethod))
	}
	if o.PathTemplate != "" {
		forms = append(forms, templates(o.PathTemplate))
	}
	return forms
}

// FieldCallPattern matches field as a whole identifier immediately followed
// (after optional whitespace) by an argument list or selection set.
func FieldCallPattern(field string) *regexp.Regexp {
	return regexp.MustCompile(`(?:^|[^A-Za-z0-9_])` + regexp.QuoteMeta(field) + `\s*[({]`)
}

// DefaultQueryText reads the "query" member of a JSON body.
func DefaultQueryText(body string) (string, bool) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(body)), &doc); err != nil {
		return "", false
	}
	text, ok := doc["query"].(string)
	return text, ok
}
