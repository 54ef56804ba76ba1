package filesystem

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sophialabs/apicover/internal/domain/contract"
	"github.com/sophialabs/apicover/internal/infrastructure/ports"
)

var _ contract.Repository = (*ContractRepository)(nil)

// ContractRepository loads operations from configured sources, dispatching
// each file to the first loader that claims it.
type ContractRepository struct {
	sources []contract.Source
	loaders []ports.ContractLoader
	logger  ports.Logger
}

// NewContractRepository creates a repository. Loaders are consulted in order
// during detection.
func NewContractRepository(sources []contract.Source, loaders []ports.ContractLoader, logger ports.Logger) *ContractRepository {
	return &ContractRepository{sources: sources, loaders: loaders, logger: logger}
}

// LoadAll loads every source in order and aggregates expected status codes
// per method+path across the whole contract set.
func (r *ContractRepository) LoadAll(ctx context.Context) ([]contract.Operation, error) {
	var all []contract.Operation
	for _, src := range r.sources {
		paths, err := ExpandPattern(src.Path)
		if err != nil {
			return nil, err
		}
		for _, path := range paths {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			loader, err := r.pick(src.Format, path)
			if err != nil {
				return nil, err
			}

			file := src
			file.Path = path
			ops, err := loader.Load(ctx, file)
			if err != nil {
				return nil, fmt.Errorf("failed to load %s contract %s: %w", loader.Format(), path, err)
			}
			for _, op := range ops {
				b := op.Common()
				if b.SourceID == "" {
					b.SourceID = path
				}
				if src.Name != "" {
					b.ContractName = src.Name
				}
			}
			r.logger.Info("contract loaded", "path", path, "format", loader.Format(), "operations", len(ops))
			all = append(all, ops...)
		}
	}
	contract.AggregateExpected(all)
	return all, nil
}

// Paths returns the files currently matched by the configured sources.
func (r *ContractRepository) Paths() []string {
	var out []string
	for _, src := range r.sources {
		paths, err := ExpandPattern(src.Path)
		if err != nil {
			continue
		}
		out = append(out, paths...)
	}
	return out
}

func (r *ContractRepository) pick(format, path string) (ports.ContractLoader, error) {
	if format != "" {
		for _, l := range r.loaders {
			if strings.EqualFold(l.Format(), format) {
				return l, nil
			}
		}
		return nil, fmt.Errorf("%w: %q for %s", contract.ErrUnknownFormat, format, path)
	}
	head, err := sniff(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	for _, l := range r.loaders {
		if l.Detect(path, head) {
			return l, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", contract.ErrUnknownFormat, filepath.Base(path))
}
