package usecases

import (
	"context"
	"fmt"

	"github.com/sophialabs/apicover/internal/domain/contract"
	"github.com/sophialabs/apicover/internal/infrastructure/ports"
	"github.com/sophialabs/apicover/internal/infrastructure/services"
)

// LoadContractUseCase loads declared operations and applies the operation filter.
type LoadContractUseCase struct {
	repo              contract.Repository
	filter            *services.OperationFilter
	requireOperations bool
	logger            ports.Logger
}

// NewLoadContractUseCase creates a new use case. filter may be nil.
func NewLoadContractUseCase(repo contract.Repository, filter *services.OperationFilter, logger ports.Logger) *LoadContractUseCase {
	return &LoadContractUseCase{repo: repo, filter: filter, logger: logger}
}

// RequireOperations makes an empty contract set an error.
func (uc *LoadContractUseCase) RequireOperations(v bool) {
	uc.requireOperations = v
}

// Execute returns the operations to evaluate, in contract order.
func (uc *LoadContractUseCase) Execute(ctx context.Context) ([]contract.Operation, error) {
	ops, err := uc.repo.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load contracts: %w", err)
	}
	uc.logger.Info("loaded operations from contracts", "count", len(ops))

	if uc.filter != nil {
		before := len(ops)
		ops, err = uc.filter.Apply(ops)
		if err != nil {
			return nil, err
		}
		uc.logger.Info("operation filter applied", "filter", uc.filter.String(), "kept", len(ops), "dropped", before-len(ops))
	}

	if len(ops) == 0 {
		if uc.requireOperations {
			return nil, contract.ErrNoOperations
		}
		uc.logger.Warn("no operations to evaluate")
	}
	return ops, nil
}
