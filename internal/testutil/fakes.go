package testutil

import (
	"context"
	"path/filepath"
	"time"

	"github.com/sophialabs/apicover/internal/domain/contract"
	"github.com/sophialabs/apicover/internal/domain/exchange"
	"github.com/sophialabs/apicover/internal/infrastructure/ports"
)

var _ ports.Logger = (*NoopLogger)(nil)

// NoopLogger discards all log output.
type NoopLogger struct{}

func (l *NoopLogger) Info(string, ...any)  {}
func (l *NoopLogger) Warn(string, ...any)  {}
func (l *NoopLogger) Error(string, ...any) {}
func (l *NoopLogger) Debug(string, ...any) {}

var _ ports.Clock = (*FixedClock)(nil)

// FixedClock returns T. Tests advance it by assigning T.
type FixedClock struct {
	T time.Time
}

func (c *FixedClock) Now() time.Time { return c.T }

var _ ports.RateLimiter = (*StubRateLimiter)(nil)

// StubRateLimiter returns a configurable Allow result.
type StubRateLimiter struct {
	AllowAll bool
}

func (r *StubRateLimiter) Allow(context.Context, string, float64, int) bool {
	return r.AllowAll
}

var _ ports.ContractLoader = (*StubContractLoader)(nil)

// StubContractLoader claims files with extension Ext and returns Ops.
type StubContractLoader struct {
	Name string
	Ext  string
	Ops  []contract.Operation
	Err  error
}

func (l *StubContractLoader) Format() string { return l.Name }

func (l *StubContractLoader) Detect(path string, _ []byte) bool {
	return filepath.Ext(path) == l.Ext
}

func (l *StubContractLoader) Load(context.Context, contract.Source) ([]contract.Operation, error) {
	return l.Ops, l.Err
}

var _ ports.ExchangeLoader = (*StubExchangeLoader)(nil)

// StubExchangeLoader claims files with extension Ext and returns Batch.
type StubExchangeLoader struct {
	Name  string
	Ext   string
	Batch exchange.Batch
	Err   error
}

func (l *StubExchangeLoader) Format() string { return l.Name }

func (l *StubExchangeLoader) Detect(path string, _ []byte) bool {
	return filepath.Ext(path) == l.Ext
}

func (l *StubExchangeLoader) Load(context.Context, string) (*exchange.Batch, error) {
	if l.Err != nil {
		return nil, l.Err
	}
	b := l.Batch
	return &b, nil
}

var _ contract.Repository = (*StubContractRepository)(nil)

// StubContractRepository returns Ops from LoadAll.
type StubContractRepository struct {
	Ops []contract.Operation
	Err error
}

func (r *StubContractRepository) LoadAll(context.Context) ([]contract.Operation, error) {
	return r.Ops, r.Err
}

var _ exchange.Repository = (*StubExchangeRepository)(nil)

// StubExchangeRepository returns Exchanges from LoadAll.
type StubExchangeRepository struct {
	Exchanges []*exchange.Exchange
	Err       error
}

func (r *StubExchangeRepository) LoadAll(context.Context) ([]*exchange.Exchange, error) {
	return r.Exchanges, r.Err
}
