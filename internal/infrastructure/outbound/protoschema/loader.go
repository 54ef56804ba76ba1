// Package protoschema loads protobuf service definitions into RPC operations.
package protoschema

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/bufbuild/protocompile"

	"github.com/sophialabs/apicover/internal/domain/contract"
	"github.com/sophialabs/apicover/internal/infrastructure/outbound/filesystem"
	"github.com/sophialabs/apicover/internal/infrastructure/ports"
)

var _ ports.ContractLoader = (*Loader)(nil)

// Loader compiles .proto files and produces one operation per service method.
type Loader struct {
	// ImportPaths are searched after the file's own directory.
	ImportPaths []string
}

func (l *Loader) Format() string { return "proto" }

func (l *Loader) Detect(path string, _ []byte) bool {
	return filesystem.HasExt(path, ".proto")
}

func (l *Loader) Load(ctx context.Context, src contract.Source) ([]contract.Operation, error) {
	dir, name := filepath.Split(src.Path)
	if dir == "" {
		dir = "."
	}
	compiler := protocompile.Compiler{
		Resolver: protocompile.WithStandardImports(&protocompile.SourceResolver{
			ImportPaths: append([]string{dir}, l.ImportPaths...),
		}),
	}

	files, err := compiler.Compile(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to compile proto: %w", err)
	}

	var ops []contract.Operation
	for _, file := range files {
		services := file.Services()
		for i := 0; i < services.Len(); i++ {
			svc := services.Get(i)
			service := string(svc.FullName())
			methods := svc.Methods()
			for j := 0; j < methods.Len(); j++ {
				m := methods.Get(j)
				ops = append(ops, &contract.RPCOperation{
					Base: contract.Base{
						Method:            "POST",
						PathTemplate:      "/" + service + "/" + string(m.Name()),
						OutcomeStatusCode: "200",
						OperationID:       string(m.FullName()),
						ContractName:      src.Name,
						SourceID:          src.Path,
					},
					Service:   service,
					RPCMethod: string(m.Name()),
				})
			}
		}
	}
	return ops, nil
}
