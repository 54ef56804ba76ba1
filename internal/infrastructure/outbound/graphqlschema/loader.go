// Package graphqlschema loads GraphQL SDL documents into query-language
// operations.
package graphqlschema

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/sophialabs/apicover/internal/domain/contract"
	"github.com/sophialabs/apicover/internal/infrastructure/outbound/filesystem"
	"github.com/sophialabs/apicover/internal/infrastructure/ports"
)

// DefaultEndpoint is where query-language documents are posted.
const DefaultEndpoint = "/graphql"

var _ ports.ContractLoader = (*Loader)(nil)

// Loader produces one operation per root field of the Query, Mutation and
// Subscription types.
type Loader struct {
	Endpoint string
}

func (l *Loader) Format() string { return "graphql" }

func (l *Loader) Detect(path string, head []byte) bool {
	if filesystem.HasExt(path, ".graphql", ".gql", ".graphqls") {
		return true
	}
	return filesystem.HasExt(path, ".sdl") && bytes.Contains(head, []byte("type "))
}

func (l *Loader) Load(_ context.Context, src contract.Source) ([]contract.Operation, error) {
	data, err := os.ReadFile(src.Path)
	if err != nil {
		return nil, err
	}
	schema, err := gqlparser.LoadSchema(&ast.Source{Name: src.Path, Input: string(data)})
	if err != nil {
		return nil, fmt.Errorf("failed to parse GraphQL schema: %w", err)
	}

	endpoint := l.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	var ops []contract.Operation
	roots := []struct {
		def  *ast.Definition
		kind contract.OperationKind
	}{
		{schema.Query, contract.KindQuery},
		{schema.Mutation, contract.KindMutation},
		{schema.Subscription, contract.KindSubscription},
	}
	for _, root := range roots {
		if root.def == nil {
			continue
		}
		for _, field := range root.def.Fields {
			if strings.HasPrefix(field.Name, "__") {
				continue
			}
			ops = append(ops, &contract.QueryLanguageOperation{
				Base: contract.Base{
					Method:            "POST",
					PathTemplate:      endpoint,
					OutcomeStatusCode: "200",
					BodyContentTypes:  []string{"application/json"},
					OperationID:       string(root.kind) + "." + field.Name,
					Summary:           strings.TrimSpace(field.Description),
					ContractName:      src.Name,
					SourceID:          src.Path,
				},
				Kind:  root.kind,
				Field: field.Name,
			})
		}
	}
	return ops, nil
}
