package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sophialabs/apicover/internal/domain/contract"
	"github.com/sophialabs/apicover/internal/domain/exchange"
	"github.com/sophialabs/apicover/internal/domain/match"
	"github.com/sophialabs/apicover/internal/infrastructure/services"
)

// ContractInput names one contract file or glob.
type ContractInput struct {
	Path   string `yaml:"path"`
	Format string `yaml:"format"`
	Name   string `yaml:"name"`
}

// ExchangeInput names one exchange collection or run report file or glob.
type ExchangeInput struct {
	Path   string `yaml:"path"`
	Format string `yaml:"format"`
}

// ConfidenceConfig holds the confidence weights. Only their relative order matters.
type ConfidenceConfig struct {
	Structural    float64 `yaml:"structural"`
	ExactStatus   float64 `yaml:"exact_status"`
	SuccessFamily float64 `yaml:"success_family"`
	NoStatus      float64 `yaml:"no_status"`
	Strict        float64 `yaml:"strict"`
}

// OutputConfig controls report files written by one-shot runs.
type OutputConfig struct {
	Dir     string   `yaml:"dir"`
	Formats []string `yaml:"formats"`
}

// ServerConfig controls serve mode.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	RateLimit      float64       `yaml:"rate_limit"`
	RateBurst      int           `yaml:"rate_burst"`
	RateLimiterTTL time.Duration `yaml:"rate_limiter_ttl"`
	TraceSize      int           `yaml:"trace_size"`

	Watch         bool          `yaml:"watch"`
	WatchDebounce time.Duration `yaml:"watch_debounce"`
}

// Config holds all configurable parameters for the application.
type Config struct {
	Contracts []ContractInput `yaml:"contracts"`
	Exchanges []ExchangeInput `yaml:"exchanges"`

	StrictQueryParams     bool   `yaml:"strict_query_params"`
	StrictRequestBody     bool   `yaml:"strict_request_body"`
	SmartMapping          bool   `yaml:"smart_mapping"`
	QueryLanguageEndpoint string `yaml:"query_language_endpoint"`
	QueryTextPath         string `yaml:"query_text_path"`

	Workers           int              `yaml:"workers"`
	Filter            string           `yaml:"filter"`
	RequireOperations bool             `yaml:"require_operations"`
	Confidence        ConfidenceConfig `yaml:"confidence"`
	NearMisses        int              `yaml:"near_misses"`
	IncludeRoot       string           `yaml:"include_root"`
	ProtoImportPaths  []string         `yaml:"proto_import_paths"`

	Output    OutputConfig `yaml:"output"`
	FailUnder float64      `yaml:"fail_under"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	Server ServerConfig `yaml:"server"`
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	w := match.DefaultWeights()
	return Config{
		QueryLanguageEndpoint: match.DefaultQueryLanguageEndpoint,
		QueryTextPath:         services.DefaultQueryTextPath,
		Workers:               1,
		NearMisses:            3,
		Confidence: ConfidenceConfig{
			Structural:    w.Structural,
			ExactStatus:   w.ExactStatus,
			SuccessFamily: w.SuccessFamily,
			NoStatus:      w.NoStatus,
			Strict:        w.Strict,
		},
		Output: OutputConfig{
			Dir:     "./coverage",
			Formats: []string{"json", "html"},
		},
		LogLevel:  "info",
		LogFormat: "text",

		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,

			RateLimit:      50,
			RateBurst:      100,
			RateLimiterTTL: 10 * time.Minute,
			TraceSize:      200,

			WatchDebounce: 500 * time.Millisecond,
		},
	}
}

// LoadFile overlays the YAML file at path onto cfg. Unknown keys are rejected.
func LoadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		// An empty file decodes to io.EOF and leaves the defaults alone.
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

// Validate reports configuration that cannot produce a run.
func (c Config) Validate() error {
	var errs []error
	if len(c.Contracts) == 0 {
		errs = append(errs, errors.New("at least one contract source is required"))
	}
	for i, in := range c.Contracts {
		if in.Path == "" {
			errs = append(errs, fmt.Errorf("contracts[%d]: path is required", i))
		}
	}
	for i, in := range c.Exchanges {
		if in.Path == "" {
			errs = append(errs, fmt.Errorf("exchanges[%d]: path is required", i))
		}
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	if c.NearMisses < 0 {
		errs = append(errs, fmt.Errorf("near_misses must not be negative, got %d", c.NearMisses))
	}
	if c.FailUnder < 0 || c.FailUnder > 100 {
		errs = append(errs, fmt.Errorf("fail_under must be within 0..100, got %v", c.FailUnder))
	}
	w := c.Confidence
	if w.ExactStatus < w.SuccessFamily || w.SuccessFamily < w.NoStatus {
		errs = append(errs, errors.New("confidence weights must satisfy exact_status >= success_family >= no_status"))
	}
	return errors.Join(errs...)
}

// MatchOptions converts the matching switches into domain options.
func (c Config) MatchOptions() match.Options {
	return match.Options{
		StrictQueryParams:     c.StrictQueryParams,
		StrictRequestBody:     c.StrictRequestBody,
		SmartMapping:          c.SmartMapping,
		QueryLanguageEndpoint: c.QueryLanguageEndpoint,
		Weights: match.Weights{
			Structural:    c.Confidence.Structural,
			ExactStatus:   c.Confidence.ExactStatus,
			SuccessFamily: c.Confidence.SuccessFamily,
			NoStatus:      c.Confidence.NoStatus,
			Strict:        c.Confidence.Strict,
		},
	}
}

// ContractSources converts the configured contract inputs.
func (c Config) ContractSources() []contract.Source {
	out := make([]contract.Source, 0, len(c.Contracts))
	for _, in := range c.Contracts {
		out = append(out, contract.Source{Path: in.Path, Format: in.Format, Name: in.Name})
	}
	return out
}

// ExchangeSources converts the configured exchange inputs.
func (c Config) ExchangeSources() []exchange.Source {
	out := make([]exchange.Source, 0, len(c.Exchanges))
	for _, in := range c.Exchanges {
		out = append(out, exchange.Source{Path: in.Path, Format: in.Format})
	}
	return out
}
