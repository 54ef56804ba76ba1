package ports

import (
	"context"
	"time"

	"github.com/sophialabs/apicover/internal/domain/contract"
	"github.com/sophialabs/apicover/internal/domain/exchange"
)

// Clock provides the current time (for testing).
type Clock interface {
	Now() time.Time
}

// Logger provides structured logging.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Debug(msg string, args ...any)
}

// RateLimiter checks whether a request is allowed under rate limits.
type RateLimiter interface {
	// Allow checks if a request identified by key is within the rate limit.
	// rate is tokens per second, burst is the max burst size.
	Allow(ctx context.Context, key string, rate float64, burst int) bool
}

// ContractLoader parses one contract format into declared operations.
type ContractLoader interface {
	// Format is the name used in config to force this loader.
	Format() string
	// Detect reports whether the file looks like this format, given its path
	// and the first bytes of its content.
	Detect(path string, head []byte) bool
	Load(ctx context.Context, src contract.Source) ([]contract.Operation, error)
}

// ExchangeLoader parses one collection or run-report format.
type ExchangeLoader interface {
	Format() string
	Detect(path string, head []byte) bool
	Load(ctx context.Context, path string) (*exchange.Batch, error)
}
