package usecases

import (
	"context"
	"fmt"

	"github.com/sophialabs/apicover/internal/domain/exchange"
	"github.com/sophialabs/apicover/internal/infrastructure/ports"
	"github.com/sophialabs/apicover/internal/infrastructure/services"
)

// LoadExchangesUseCase loads observed exchanges and fills in body content
// types that the sources left implicit.
type LoadExchangesUseCase struct {
	repo   exchange.Repository
	logger ports.Logger
}

// NewLoadExchangesUseCase creates a new use case.
func NewLoadExchangesUseCase(repo exchange.Repository, logger ports.Logger) *LoadExchangesUseCase {
	return &LoadExchangesUseCase{repo: repo, logger: logger}
}

// Execute returns exchanges in source order.
func (uc *LoadExchangesUseCase) Execute(ctx context.Context) ([]*exchange.Exchange, error) {
	exs, err := uc.repo.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load exchanges: %w", err)
	}

	executed := 0
	for _, ex := range exs {
		if ex.Executed {
			executed++
		}
	}
	inferred := services.NormalizeBodies(exs)
	uc.logger.Info("loaded exchanges", "count", len(exs), "executed", executed, "content_types_inferred", inferred)
	return exs, nil
}
