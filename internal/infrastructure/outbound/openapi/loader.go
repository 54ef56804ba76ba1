// Package openapi loads OpenAPI 3 documents into declared operations.
package openapi

import (
	"bytes"
	"context"
	"fmt"
	"iter"
	"os"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/sophialabs/apicover/internal/domain/contract"
	"github.com/sophialabs/apicover/internal/infrastructure/outbound/filesystem"
	"github.com/sophialabs/apicover/internal/infrastructure/ports"
)

var _ ports.ContractLoader = (*Loader)(nil)

var methodOrder = []string{"GET", "PUT", "POST", "DELETE", "OPTIONS", "HEAD", "PATCH", "TRACE"}

// Loader reads OpenAPI 3.x documents in YAML or JSON. External $refs are
// resolved relative to the document.
type Loader struct{}

func (Loader) Format() string { return "openapi" }

func (Loader) Detect(path string, head []byte) bool {
	if !filesystem.HasExt(path, ".yaml", ".yml", ".json") {
		return false
	}
	return bytes.Contains(head, []byte("openapi:")) || bytes.Contains(head, []byte(`"openapi"`))
}

// Load produces one operation per (method, path, response code), in document
// order. Operations without responses yield a single record with no outcome.
func (Loader) Load(ctx context.Context, src contract.Source) ([]contract.Operation, error) {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true
	loader.Context = ctx

	doc, err := loader.LoadFromFile(src.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OpenAPI document: %w", err)
	}
	if doc.Paths == nil {
		return nil, nil
	}

	order, err := declarationOrder(src.Path)
	if err != nil {
		return nil, err
	}

	name := src.Name
	if name == "" && doc.Info != nil {
		name = doc.Info.Title
	}

	var ops []contract.Operation
	for _, path := range order.paths(doc.Paths.Map()) {
		item := doc.Paths.Value(path)
		if item == nil {
			continue
		}
		byMethod := item.Operations()
		for _, method := range order.methods(path, byMethod) {
			op := byMethod[method]
			base := contract.Base{
				Method:           method,
				PathTemplate:     path,
				Parameters:       mergeParameters(item.Parameters, op.Parameters),
				BodyContentTypes: bodyContentTypes(op),
				OperationID:      op.OperationID,
				Summary:          op.Summary,
				ContractName:     name,
				SourceID:         src.Path,
			}

			codes := order.responses(path, method, op)
			if len(codes) == 0 {
				ops = append(ops, &contract.RESTOperation{Base: base})
				continue
			}
			for _, code := range codes {
				rec := base
				rec.OutcomeStatusCode = code
				ops = append(ops, &contract.RESTOperation{Base: rec})
			}
		}
	}
	return ops, nil
}

func mergeParameters(pathLevel, opLevel openapi3.Parameters) []contract.Parameter {
	type key struct{ name, in string }
	var (
		out   []contract.Parameter
		index = make(map[key]int)
	)
	add := func(refs openapi3.Parameters) {
		for _, ref := range refs {
			if ref == nil || ref.Value == nil {
				continue
			}
			p := toParameter(ref.Value)
			k := key{p.Name, string(p.In)}
			if i, ok := index[k]; ok {
				out[i] = p
				continue
			}
			index[k] = len(out)
			out = append(out, p)
		}
	}
	add(pathLevel)
	add(opLevel)
	return out
}

func toParameter(p *openapi3.Parameter) contract.Parameter {
	param := contract.Parameter{
		Name:     p.Name,
		In:       contract.ParamLocation(strings.ToLower(p.In)),
		Required: p.Required,
	}
	if p.Schema != nil && p.Schema.Value != nil {
		param.Schema = toValueSchema(p.Schema.Value)
	}
	return param
}

func toValueSchema(s *openapi3.Schema) *contract.ValueSchema {
	vs := &contract.ValueSchema{
		Format:  s.Format,
		Enum:    s.Enum,
		Pattern: s.Pattern,
		Minimum: s.Min,
		Maximum: s.Max,
	}
	if s.Type != nil && len(*s.Type) > 0 {
		vs.Type = (*s.Type)[0]
	}
	if s.MinLength > 0 {
		n := int(s.MinLength)
		vs.MinLength = &n
	}
	if s.MaxLength != nil {
		n := int(*s.MaxLength)
		vs.MaxLength = &n
	}
	if vs.IsZero() {
		return nil
	}
	return vs
}

func bodyContentTypes(op *openapi3.Operation) []string {
	if op.RequestBody == nil || op.RequestBody.Value == nil {
		return nil
	}
	types := make([]string, 0, len(op.RequestBody.Value.Content))
	for ct := range op.RequestBody.Value.Content {
		types = append(types, ct)
	}
	sort.Strings(types)
	return types
}

// docOrder records key order as written in the source document, which the
// parsed model does not keep.
type docOrder struct {
	pathKeys   []string
	methodKeys map[string][]string
	codeKeys   map[string][]string
}

func declarationOrder(path string) (*docOrder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	order := &docOrder{methodKeys: map[string][]string{}, codeKeys: map[string][]string{}}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil || len(root.Content) == 0 {
		return order, nil
	}
	paths := mappingValue(root.Content[0], "paths")
	for pathKey, pathNode := range pairs(paths) {
		order.pathKeys = append(order.pathKeys, pathKey)
		for methodKey, opNode := range pairs(pathNode) {
			method := strings.ToUpper(methodKey)
			order.methodKeys[pathKey] = append(order.methodKeys[pathKey], method)
			for code := range pairs(mappingValue(opNode, "responses")) {
				k := method + " " + pathKey
				order.codeKeys[k] = append(order.codeKeys[k], code)
			}
		}
	}
	return order, nil
}

func (o *docOrder) paths(m map[string]*openapi3.PathItem) []string {
	return ordered(o.pathKeys, keys(m))
}

func (o *docOrder) methods(path string, m map[string]*openapi3.Operation) []string {
	fallback := make([]string, 0, len(m))
	for _, method := range methodOrder {
		if _, ok := m[method]; ok {
			fallback = append(fallback, method)
		}
	}
	return ordered(o.methodKeys[path], fallback)
}

func (o *docOrder) responses(path, method string, op *openapi3.Operation) []string {
	if op.Responses == nil {
		return nil
	}
	return ordered(o.codeKeys[method+" "+path], keys(op.Responses.Map()))
}

// ordered returns the members of known in the order given by preferred,
// followed by any remaining members sorted.
func ordered(preferred, known []string) []string {
	set := make(map[string]bool, len(known))
	for _, k := range known {
		set[k] = true
	}
	out := make([]string, 0, len(known))
	for _, k := range preferred {
		if set[k] {
			out = append(out, k)
			delete(set, k)
		}
	}
	var rest []string
	for _, k := range known {
		if set[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// pairs yields the key/value pairs of a mapping node in order.
func pairs(node *yaml.Node) iter.Seq2[string, *yaml.Node] {
	return func(yield func(string, *yaml.Node) bool) {
		if node == nil || node.Kind != yaml.MappingNode {
			return
		}
		for i := 0; i+1 < len(node.Content); i += 2 {
			if !yield(node.Content[i].Value, node.Content[i+1]) {
				return
			}
		}
	}
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}
