package usecases

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sophialabs/apicover/internal/domain/coverage"
	"github.com/sophialabs/apicover/internal/domain/exchange"
	"github.com/sophialabs/apicover/internal/domain/match"
	"github.com/sophialabs/apicover/internal/domain/trace"
	"github.com/sophialabs/apicover/internal/infrastructure/ports"
	"github.com/sophialabs/apicover/internal/infrastructure/services"
)

// maxTracedUnmatched bounds the unmatched list kept per trace entry.
const maxTracedUnmatched = 20

// Run is the result of one coverage computation.
type Run struct {
	ID         string
	StartedAt  time.Time
	Duration   time.Duration
	Items      []coverage.Item
	Summary    coverage.Summary
	Index      *services.OperationIndex
	Exchanges  []*exchange.Exchange
	TraceEntry trace.Entry
}

// ComputeCoverageUseCase runs the whole pipeline: load, compile, correlate.
type ComputeCoverageUseCase struct {
	contracts *LoadContractUseCase
	exchanges *LoadExchangesUseCase
	compiler  *services.Compiler
	engine    *coverage.Engine
	clock     ports.Clock
	logger    ports.Logger
	traceBuf  *trace.RingBuffer
}

// NewComputeCoverageUseCase creates a new use case. traceBuf may be nil.
func NewComputeCoverageUseCase(
	contracts *LoadContractUseCase,
	exchanges *LoadExchangesUseCase,
	compiler *services.Compiler,
	engine *coverage.Engine,
	clock ports.Clock,
	logger ports.Logger,
	traceBuf *trace.RingBuffer,
) *ComputeCoverageUseCase {
	return &ComputeCoverageUseCase{
		contracts: contracts,
		exchanges: exchanges,
		compiler:  compiler,
		engine:    engine,
		clock:     clock,
		logger:    logger,
		traceBuf:  traceBuf,
	}
}

// Execute computes coverage over freshly loaded inputs.
func (uc *ComputeCoverageUseCase) Execute(ctx context.Context) (*Run, error) {
	run := &Run{ID: uuid.NewString(), StartedAt: uc.clock.Now()}

	ops, err := uc.contracts.Execute(ctx)
	if err != nil {
		return nil, err
	}
	exs, err := uc.exchanges.Execute(ctx)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	compiled := uc.compiler.CompileAll(ops)
	run.Index = services.NewOperationIndex(compiled)
	run.Exchanges = exs
	run.Items = uc.engine.Compute(compiled, match.NewRequests(exs))
	run.Summary = coverage.Summarize(run.Items)
	run.Duration = uc.clock.Now().Sub(run.StartedAt)
	run.TraceEntry = uc.traceEntry(run)

	if uc.traceBuf != nil {
		uc.traceBuf.Add(run.TraceEntry)
	}
	uc.logger.Info("coverage computed",
		"run_id", run.ID,
		"operations", run.Summary.Total,
		"matched", run.Summary.Matched,
		"percentage", run.Summary.Percentage,
		"exchanges", len(exs),
		"cached_templates", uc.compiler.CachedTemplates(),
		"duration", run.Duration,
	)
	return run, nil
}

func (uc *ComputeCoverageUseCase) traceEntry(run *Run) trace.Entry {
	entry := trace.Entry{
		Timestamp:    run.StartedAt,
		RunID:        run.ID,
		Operations:   run.Summary.Total,
		Groups:       len(run.Index.Groups()),
		Exchanges:    len(run.Exchanges),
		Matched:      run.Summary.Matched,
		Percentage:   run.Summary.Percentage,
		SmartMapping: uc.engine.Correlator().Options().SmartMapping,
		DurationMs:   run.Duration.Milliseconds(),
	}
	for _, it := range coverage.Unmatched(run.Items) {
		if len(entry.Unmatched) == maxTracedUnmatched {
			break
		}
		entry.Unmatched = append(entry.Unmatched, Describe(it.Operation))
	}
	return entry
}
