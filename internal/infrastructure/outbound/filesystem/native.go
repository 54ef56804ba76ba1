package filesystem

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sophialabs/apicover/internal/domain/contract"
	"github.com/sophialabs/apicover/internal/domain/exchange"
	"github.com/sophialabs/apicover/internal/infrastructure/ports"
)

var (
	_ ports.ContractLoader = (*YAMLContractLoader)(nil)
	_ ports.ExchangeLoader = (*YAMLExchangeLoader)(nil)
)

// YAMLContractLoader reads the native contract format: a named list of
// operations, with !include support.
type YAMLContractLoader struct {
	// RootDir confines !include references. Empty means the directory of
	// each loaded file.
	RootDir string
}

func (l *YAMLContractLoader) Format() string { return "yaml" }

func (l *YAMLContractLoader) Detect(path string, head []byte) bool {
	return HasExt(path, ".yaml", ".yml") && hasTopLevelKey(head, "operations")
}

func (l *YAMLContractLoader) Load(_ context.Context, src contract.Source) ([]contract.Operation, error) {
	var doc yamlContract
	if err := decodeYAMLFile(src.Path, l.RootDir, &doc); err != nil {
		return nil, err
	}

	name := doc.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(src.Path), filepath.Ext(src.Path))
	}

	var ops []contract.Operation
	for i, yo := range doc.Operations {
		if yo.Path == "" && yo.Field == "" && yo.RPCMethod == "" {
			return nil, fmt.Errorf("operation %d: path, field or rpc_method is required", i)
		}
		codes := yo.Responses
		if len(codes) == 0 {
			codes = []string{yo.Status}
		}
		for _, code := range codes {
			base := contract.Base{
				Method:            strings.ToUpper(yo.Method),
				PathTemplate:      yo.Path,
				OutcomeStatusCode: strings.TrimSpace(code),
				Parameters:        toParameters(yo.Parameters),
				BodyContentTypes:  yo.BodyContentTypes,
				OperationID:       yo.OperationID,
				Summary:           yo.Summary,
				ContractName:      name,
				SourceID:          src.Path,
			}
			ops = append(ops, toOperation(base, yo))
		}
	}
	return ops, nil
}

func toOperation(base contract.Base, yo yamlOperation) contract.Operation {
	switch contract.ParseProtocol(yo.Protocol) {
	case contract.ProtocolRPC:
		if base.Method == "" {
			base.Method = "POST"
		}
		return &contract.RPCOperation{Base: base, Service: yo.Service, RPCMethod: yo.RPCMethod}
	case contract.ProtocolQueryLanguage:
		if base.Method == "" {
			base.Method = "POST"
		}
		kind := contract.OperationKind(strings.ToLower(yo.Kind))
		if kind == "" {
			kind = contract.KindQuery
		}
		return &contract.QueryLanguageOperation{Base: base, Kind: kind, Field: yo.Field}
	default:
		return &contract.RESTOperation{Base: base}
	}
}

func toParameters(in []yamlParameter) []contract.Parameter {
	if len(in) == 0 {
		return nil
	}
	out := make([]contract.Parameter, 0, len(in))
	for _, p := range in {
		param := contract.Parameter{
			Name:     p.Name,
			In:       contract.ParamLocation(strings.ToLower(p.In)),
			Required: p.Required,
		}
		if param.In == "" {
			param.In = contract.InQuery
		}
		if p.Schema != nil {
			param.Schema = &contract.ValueSchema{
				Type:      p.Schema.Type,
				Format:    p.Schema.Format,
				Enum:      p.Schema.Enum,
				Pattern:   p.Schema.Pattern,
				Minimum:   p.Schema.Minimum,
				Maximum:   p.Schema.Maximum,
				MinLength: p.Schema.MinLength,
				MaxLength: p.Schema.MaxLength,
			}
		}
		out = append(out, param)
	}
	return out
}

// YAMLExchangeLoader reads the native exchange format.
type YAMLExchangeLoader struct {
	RootDir string
}

func (l *YAMLExchangeLoader) Format() string { return "yaml" }

func (l *YAMLExchangeLoader) Detect(path string, head []byte) bool {
	return HasExt(path, ".yaml", ".yml") && hasTopLevelKey(head, "exchanges")
}

func (l *YAMLExchangeLoader) Load(_ context.Context, path string) (*exchange.Batch, error) {
	var doc yamlExchangeFile
	if err := decodeYAMLFile(path, l.RootDir, &doc); err != nil {
		return nil, err
	}

	batch := &exchange.Batch{Exchanges: make([]*exchange.Exchange, 0, len(doc.Exchanges))}
	for _, ye := range doc.Exchanges {
		ex := &exchange.Exchange{
			Name:              ye.Name,
			Method:            ye.Method,
			RawURL:            ye.URL,
			Query:             toPairs(ye.Query),
			TestedStatusCodes: ye.TestedStatusCodes,
			Script:            ye.Script,
			Executed:          ye.Executed,
			SourceID:          path,
		}
		if ye.Body != nil {
			ex.Body = &exchange.Body{
				Mode:        exchange.BodyMode(strings.ToLower(ye.Body.Mode)),
				Raw:         ye.Body.Raw,
				ContentType: ye.Body.ContentType,
				Language:    ye.Body.Language,
				Form:        toPairs(ye.Body.Form),
			}
		}
		if ye.Response != nil {
			resp := &exchange.Response{
				StatusCode: ye.Response.StatusCode,
				DurationMs: ye.Response.DurationMs,
				AllPassed:  true,
			}
			for _, a := range ye.Response.Assertions {
				resp.Assertions = append(resp.Assertions, exchange.Assertion{Name: a.Name, Passed: a.Passed, Error: a.Error})
				resp.AllPassed = resp.AllPassed && a.Passed
			}
			ex.Response = resp
			ex.Executed = true
			if resp.StatusCode > 0 {
				ex.AddTestedCode(fmt.Sprintf("%d", resp.StatusCode))
			}
		}
		batch.Exchanges = append(batch.Exchanges, ex)
	}
	return batch, nil
}

func toPairs(in []yamlPair) []exchange.Pair {
	if len(in) == 0 {
		return nil
	}
	out := make([]exchange.Pair, len(in))
	for i, p := range in {
		out[i] = exchange.Pair{Key: p.Key, Value: p.Value}
	}
	return out
}

// decodeYAMLFile parses path into a node tree, expands includes, then decodes
// into out.
func decodeYAMLFile(path, rootDir string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	if rootDir == "" {
		rootDir = filepath.Dir(path)
	}
	if err := NewIncludeResolver(rootDir).ResolveIncludes(&node, filepath.Dir(path)); err != nil {
		return err
	}
	if err := node.Decode(out); err != nil {
		return fmt.Errorf("failed to decode YAML: %w", err)
	}
	return nil
}

// hasTopLevelKey reports whether head contains key at column zero.
func hasTopLevelKey(head []byte, key string) bool {
	for _, line := range bytes.Split(head, []byte("\n")) {
		if bytes.HasPrefix(line, []byte(key+":")) {
			return true
		}
	}
	return false
}
