package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/PaesslerAG/jsonpath"
	"github.com/golang/groupcache/lru"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/sophialabs/apicover/internal/domain/contract"
	"github.com/sophialabs/apicover/internal/domain/match"
	"github.com/sophialabs/apicover/internal/infrastructure/ports"
)

// DefaultQueryTextPath locates the query document in a query-language body.
const DefaultQueryTextPath = "$.query"

const defaultTemplateCacheSize = 1024

// CompilerConfig configures operation compilation.
type CompilerConfig struct {
	// QueryTextPath is a JSONPath into query-language request bodies.
	QueryTextPath string
	// TemplateCacheSize bounds the compiled path-template cache.
	TemplateCacheSize int
}

// Compiler turns declared operations into match.CompiledOperations. Path
// templates are cached across compilations so reloads reuse them.
type Compiler struct {
	mu        sync.Mutex
	templates *lru.Cache
	queryText match.TextExtractor
	logger    ports.Logger
}

// NewCompiler creates a Compiler. It fails only when QueryTextPath is not a
// valid JSONPath expression.
func NewCompiler(cfg CompilerConfig, logger ports.Logger) (*Compiler, error) {
	size := cfg.TemplateCacheSize
	if size <= 0 {
		size = defaultTemplateCacheSize
	}
	path := cfg.QueryTextPath
	if path == "" {
		path = DefaultQueryTextPath
	}
	extract, err := queryTextExtractor(path)
	if err != nil {
		return nil, err
	}
	return &Compiler{
		templates: lru.New(size),
		queryText: extract,
		logger:    logger,
	}, nil
}

// CompileAll compiles ops in order.
func (c *Compiler) CompileAll(ops []contract.Operation) []*match.CompiledOperation {
	out := make([]*match.CompiledOperation, 0, len(ops))
	for _, op := range ops {
		out = append(out, c.Compile(op))
	}
	return out
}

// Compile precompiles one operation. Invalid parameter schemas never fail
// compilation: the affected rule rejects every value and a warning is logged.
func (c *Compiler) Compile(op contract.Operation) *match.CompiledOperation {
	co := match.Compile(op, c.template)
	if op == nil {
		return co
	}
	if co.QueryText != nil {
		co.QueryText = c.queryText
	}

	base := op.Common()
	schemas := make(map[string]*contract.ValueSchema)
	for _, p := range base.QueryParameters() {
		schemas[p.Name] = p.Schema
	}
	for i := range co.QueryRules {
		rule := &co.QueryRules[i]
		schema := schemas[rule.Name]
		if schema.IsZero() {
			continue
		}
		check, err := valueCheck(schema)
		if err != nil {
			c.logger.Warn("invalid parameter schema, rule will reject all values",
				"operation", base.GroupKey(), "status", base.OutcomeStatusCode, "param", rule.Name, "error", err)
			check = rejectAll(err)
		}
		rule.Check = check
	}
	return co
}

// template returns the compiled template for raw, compiling it on a miss.
func (c *Compiler) template(raw string) *match.PathTemplate {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.templates.Get(raw); ok {
		return v.(*match.PathTemplate)
	}
	t := match.CompileTemplate(raw)
	c.templates.Add(raw, t)
	return t
}

// CachedTemplates reports how many templates are cached.
func (c *Compiler) CachedTemplates() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.templates.Len()
}

func rejectAll(cause error) match.ValueCheck {
	return func(string) error {
		return fmt.Errorf("parameter schema unusable: %w", cause)
	}
}

// valueCheck compiles s into a check over raw query values. Values are
// coerced to the declared type before validation; pattern applies to the raw
// text regardless of type.
func valueCheck(s *contract.ValueSchema) (match.ValueCheck, error) {
	doc := map[string]any{}
	if s.Type != "" {
		doc["type"] = s.Type
	}
	if s.Format != "" {
		doc["format"] = s.Format
	}
	if len(s.Enum) > 0 {
		doc["enum"] = s.Enum
	}
	if s.Minimum != nil {
		doc["minimum"] = *s.Minimum
	}
	if s.Maximum != nil {
		doc["maximum"] = *s.Maximum
	}
	if s.MinLength != nil {
		doc["minLength"] = *s.MinLength
	}
	if s.MaxLength != nil {
		doc["maxLength"] = *s.MaxLength
	}

	var pattern *regexp.Regexp
	if s.Pattern != "" {
		re, err := regexp.Compile(s.Pattern)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", s.Pattern, err)
		}
		pattern = re
	}

	schema, err := compileSchema(doc)
	if err != nil {
		return nil, err
	}

	return func(raw string) error {
		if pattern != nil && !pattern.MatchString(raw) {
			return fmt.Errorf("does not match pattern %q", pattern.String())
		}
		v, err := coerce(raw, s.Type)
		if err != nil {
			return err
		}
		if err := schema.Validate(v); err != nil {
			return fmt.Errorf("schema violation: %s", flattenValidation(err))
		}
		return nil
	}, nil
}

func compileSchema(doc map[string]any) (*jsonschema.Schema, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	compiler.AssertFormat = true
	if err := compiler.AddResource("param.json", bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	schema, err := compiler.Compile("param.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return schema, nil
}

func coerce(raw, typ string) (any, error) {
	switch typ {
	case "integer", "number":
		if _, err := strconv.ParseFloat(raw, 64); err != nil {
			return nil, fmt.Errorf("%q is not a %s", raw, typ)
		}
		return json.Number(raw), nil
	case "boolean":
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%q is not a boolean", raw)
		}
		return b, nil
	default:
		return raw, nil
	}
}

func flattenValidation(err error) string {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err.Error()
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return ve.Message
}

// queryTextExtractor compiles a JSONPath into a body extractor returning the
// string found at path.
func queryTextExtractor(path string) (match.TextExtractor, error) {
	eval, err := jsonpath.New(path)
	if err != nil {
		return nil, fmt.Errorf("invalid query_text_path %q: %w", path, err)
	}
	return func(body string) (string, bool) {
		var data any
		if err := decodeJSON(strings.NewReader(body), &data); err != nil {
			return "", false
		}
		v, err := eval(context.Background(), data)
		if err != nil {
			return "", false
		}
		text, ok := v.(string)
		return text, ok
	}, nil
}
