package wiring

import (
	"fmt"
	"sync"
	"time"

	"github.com/sophialabs/apicover/internal/domain/contract"
	"github.com/sophialabs/apicover/internal/domain/coverage"
	"github.com/sophialabs/apicover/internal/domain/exchange"
	"github.com/sophialabs/apicover/internal/domain/match"
	"github.com/sophialabs/apicover/internal/domain/trace"
	inboundhttp "github.com/sophialabs/apicover/internal/infrastructure/inbound/http"
	"github.com/sophialabs/apicover/internal/infrastructure/outbound/clock"
	"github.com/sophialabs/apicover/internal/infrastructure/outbound/filesystem"
	"github.com/sophialabs/apicover/internal/infrastructure/outbound/graphqlschema"
	"github.com/sophialabs/apicover/internal/infrastructure/outbound/junit"
	"github.com/sophialabs/apicover/internal/infrastructure/outbound/openapi"
	"github.com/sophialabs/apicover/internal/infrastructure/outbound/postman"
	"github.com/sophialabs/apicover/internal/infrastructure/outbound/protoschema"
	"github.com/sophialabs/apicover/internal/infrastructure/outbound/ratelimit"
	"github.com/sophialabs/apicover/internal/infrastructure/outbound/report"
	"github.com/sophialabs/apicover/internal/infrastructure/ports"
	"github.com/sophialabs/apicover/internal/infrastructure/services"
	"github.com/sophialabs/apicover/internal/infrastructure/usecases"
)

// Params holds the subset of configuration needed to construct infrastructure components.
type Params struct {
	Contracts []contract.Source
	Exchanges []exchange.Source

	Match             match.Options
	QueryTextPath     string
	Filter            string
	RequireOperations bool
	Workers           int
	NearMisses        int

	// IncludeRoot confines !include references in native YAML inputs.
	IncludeRoot      string
	ProtoImportPaths []string

	TraceSize      int
	RateLimit      float64
	RateBurst      int
	RateLimiterTTL time.Duration
	Logger         ports.Logger
}

// Container owns the construction and lifecycle of all infrastructure components.
type Container struct {
	logger           ports.Logger
	server           *inboundhttp.Server
	computeUC        *usecases.ComputeCoverageUseCase
	probeUC          *usecases.ProbeUseCase
	reports          *report.Registry
	contractRepo     *filesystem.ContractRepository
	exchangeRepo     *filesystem.ExchangeRepository
	rateLimiterStore *ratelimit.TokenBucketStore
	traceBuf         *trace.RingBuffer
	closeOnce        sync.Once
}

// New constructs all infrastructure components. Fallible operations (filter,
// compiler, report templates) run before goroutine-starting operations (rate
// limiter store) to avoid goroutine leaks on early failure.
func New(p Params) (*Container, error) {
	if len(p.Contracts) == 0 {
		return nil, fmt.Errorf("no contract sources configured")
	}

	filter, err := services.NewOperationFilter(p.Filter)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation filter: %w", err)
	}

	compiler, err := services.NewCompiler(services.CompilerConfig{
		QueryTextPath: p.QueryTextPath,
	}, p.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create compiler: %w", err)
	}

	reports, err := report.NewRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to create report registry: %w", err)
	}

	contractRepo := filesystem.NewContractRepository(p.Contracts, ContractLoaders(p), p.Logger)
	exchangeRepo := filesystem.NewExchangeRepository(p.Exchanges, ExchangeLoaders(p), p.Logger)

	// Start background goroutine only after all fallible ops succeed.
	clk := clock.New()
	rateLimiterStore := ratelimit.NewTokenBucketStore(p.RateLimiterTTL, clk)

	traceBuf := trace.NewRingBuffer(p.TraceSize)
	correlator := match.NewCorrelator(p.Match)
	engine := coverage.NewEngine(correlator, coverage.EngineConfig{
		Workers:    p.Workers,
		NearMisses: p.NearMisses,
	})

	loadContractUC := usecases.NewLoadContractUseCase(contractRepo, filter, p.Logger)
	loadContractUC.RequireOperations(p.RequireOperations)
	loadExchangesUC := usecases.NewLoadExchangesUseCase(exchangeRepo, p.Logger)
	computeUC := usecases.NewComputeCoverageUseCase(loadContractUC, loadExchangesUC, compiler, engine, clk, p.Logger, traceBuf)
	probeUC := usecases.NewProbeUseCase(correlator)

	server := inboundhttp.NewServer(computeUC, probeUC, reports, traceBuf, p.Logger)
	server.SetRateLimit(rateLimiterStore, p.RateLimit, p.RateBurst)

	return &Container{
		logger:           p.Logger,
		server:           server,
		computeUC:        computeUC,
		probeUC:          probeUC,
		reports:          reports,
		contractRepo:     contractRepo,
		exchangeRepo:     exchangeRepo,
		rateLimiterStore: rateLimiterStore,
		traceBuf:         traceBuf,
	}, nil
}

// ContractLoaders returns the contract loaders in detection order. OpenAPI
// precedes the native YAML loader since both accept .yaml files.
func ContractLoaders(p Params) []ports.ContractLoader {
	return []ports.ContractLoader{
		openapi.Loader{},
		&filesystem.YAMLContractLoader{RootDir: p.IncludeRoot},
		&graphqlschema.Loader{Endpoint: p.Match.QueryLanguageEndpoint},
		&protoschema.Loader{ImportPaths: p.ProtoImportPaths},
		filesystem.CSVContractLoader{},
	}
}

// ExchangeLoaders returns the exchange loaders in detection order. Newman
// reports embed a collection, so they are tried before plain collections.
func ExchangeLoaders(p Params) []ports.ExchangeLoader {
	return []ports.ExchangeLoader{
		postman.NewmanLoader{},
		postman.CollectionLoader{},
		junit.Loader{},
		&filesystem.YAMLExchangeLoader{RootDir: p.IncludeRoot},
	}
}

// Close releases resources held by the container. It is idempotent.
func (c *Container) Close() {
	c.closeOnce.Do(func() {
		c.rateLimiterStore.Stop()
	})
}

// Logger returns the logger passed at construction time.
func (c *Container) Logger() ports.Logger {
	return c.logger
}

// Server returns the HTTP admin server.
func (c *Container) Server() *inboundhttp.Server {
	return c.server
}

// ComputeCoverageUseCase returns the use case running the full pipeline.
func (c *Container) ComputeCoverageUseCase() *usecases.ComputeCoverageUseCase {
	return c.computeUC
}

// ProbeUseCase returns the use case evaluating ad-hoc exchanges.
func (c *Container) ProbeUseCase() *usecases.ProbeUseCase {
	return c.probeUC
}

// Reports returns the report renderer registry.
func (c *Container) Reports() *report.Registry {
	return c.reports
}

// RateLimiterStore returns the token bucket store for rate limiting.
func (c *Container) RateLimiterStore() *ratelimit.TokenBucketStore {
	return c.rateLimiterStore
}

// TraceBuf returns the run history ring buffer.
func (c *Container) TraceBuf() *trace.RingBuffer {
	return c.traceBuf
}

// InputPaths lists every file currently matched by the configured sources.
func (c *Container) InputPaths() []string {
	return append(c.contractRepo.Paths(), c.exchangeRepo.Paths()...)
}
