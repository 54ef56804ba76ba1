package filesystem

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sophialabs/apicover/internal/domain/exchange"
	"github.com/sophialabs/apicover/internal/infrastructure/ports"
)

var _ exchange.Repository = (*ExchangeRepository)(nil)

// ExchangeRepository loads exchanges from configured collections and run
// reports. Evidence-only sources (JUnit) are merged after every source has
// been read, so their position in the list does not matter.
type ExchangeRepository struct {
	sources []exchange.Source
	loaders []ports.ExchangeLoader
	logger  ports.Logger
}

// NewExchangeRepository creates a repository.
func NewExchangeRepository(sources []exchange.Source, loaders []ports.ExchangeLoader, logger ports.Logger) *ExchangeRepository {
	return &ExchangeRepository{sources: sources, loaders: loaders, logger: logger}
}

// LoadAll returns exchanges in source order.
func (r *ExchangeRepository) LoadAll(ctx context.Context) ([]*exchange.Exchange, error) {
	var (
		all      []*exchange.Exchange
		evidence []exchange.Evidence
	)
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
			batch, err := loader.Load(ctx, path)
			if err != nil {
				return nil, fmt.Errorf("failed to load %s exchanges %s: %w", loader.Format(), path, err)
			}
			for _, ex := range batch.Exchanges {
				if ex.SourceID == "" {
					ex.SourceID = path
				}
			}
			r.logger.Info("exchanges loaded", "path", path, "format", loader.Format(),
				"exchanges", len(batch.Exchanges), "evidence", len(batch.Evidence))
			all = append(all, batch.Exchanges...)
			evidence = append(evidence, batch.Evidence...)
		}
	}

	if len(evidence) > 0 {
		updated := exchange.ApplyEvidence(all, evidence)
		r.logger.Info("run evidence merged", "records", len(evidence), "exchanges_updated", updated)
	}
	return all, nil
}

// Paths returns the files currently matched by the configured sources.
func (r *ExchangeRepository) Paths() []string {
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

func (r *ExchangeRepository) pick(format, path string) (ports.ExchangeLoader, error) {
	if format != "" {
		for _, l := range r.loaders {
			if strings.EqualFold(l.Format(), format) {
				return l, nil
			}
		}
		return nil, fmt.Errorf("%w: %q for %s", exchange.ErrUnknownFormat, format, path)
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
	return nil, fmt.Errorf("%w: %s", exchange.ErrUnknownFormat, filepath.Base(path))
}
