package main

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sophialabs/apicover/internal/app"
)

var (
	contractFormats = []string{"openapi", "graphql", "proto", "csv", "yaml"}
	exchangeFormats = []string{"postman", "newman", "junit", "yaml"}
)

// globalFlags are shared by every command that computes coverage.
type globalFlags struct {
	configPath        string
	contracts         []string
	exchanges         []string
	smartMapping      bool
	strictQueryParams bool
	strictRequestBody bool
	graphqlEndpoint   string
	workers           int
	filter            string
	logLevel          string
	logFormat         string
}

func newRootCmd(out io.Writer) *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "apicover",
		Short: "apicover measures how much of an API contract a test collection exercises",
		Long: `apicover correlates declared API operations (OpenAPI, GraphQL SDL, protobuf,
CSV or native YAML) with observed exchanges (Postman collections, Newman and
JUnit run reports, native YAML) and reports which operations are covered.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	pf := root.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", "", "YAML configuration file")
	pf.StringArrayVar(&g.contracts, "contract", nil, "contract file or glob, optionally prefixed with format= (repeatable)")
	pf.StringArrayVar(&g.exchanges, "exchange", nil, "exchange file or glob, optionally prefixed with format= (repeatable)")
	pf.BoolVar(&g.smartMapping, "smart-mapping", false, "attach each exchange to the best outcome of its operation")
	pf.BoolVar(&g.strictQueryParams, "strict-query-params", false, "validate required query parameters and their schemas")
	pf.BoolVar(&g.strictRequestBody, "strict-request-body", false, "validate request body presence and content type")
	pf.StringVar(&g.graphqlEndpoint, "graphql-endpoint", "", "URL marker identifying query-language traffic")
	pf.IntVar(&g.workers, "workers", 0, "parallel workers for correlation")
	pf.StringVar(&g.filter, "filter", "", `operation filter expression, e.g. 'protocol == "rest"'`)
	pf.StringVar(&g.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&g.logFormat, "log-format", "", "log format (text, json)")

	root.AddCommand(
		newRunCmd(g),
		newServeCmd(g),
		newProbeCmd(g),
		newVersionCmd(),
	)
	return root
}

// loadConfig builds the effective configuration: defaults, then the config
// file, then every flag set explicitly on the command line.
func (g *globalFlags) loadConfig(cmd *cobra.Command) (app.Config, error) {
	cfg := app.DefaultConfig()
	if g.configPath != "" {
		if err := app.LoadFile(g.configPath, &cfg); err != nil {
			return cfg, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("contract") {
		cfg.Contracts = cfg.Contracts[:0]
		for _, arg := range g.contracts {
			format, path, err := splitInput(arg, contractFormats)
			if err != nil {
				return cfg, err
			}
			cfg.Contracts = append(cfg.Contracts, app.ContractInput{Path: path, Format: format})
		}
	}
	if flags.Changed("exchange") {
		cfg.Exchanges = cfg.Exchanges[:0]
		for _, arg := range g.exchanges {
			format, path, err := splitInput(arg, exchangeFormats)
			if err != nil {
				return cfg, err
			}
			cfg.Exchanges = append(cfg.Exchanges, app.ExchangeInput{Path: path, Format: format})
		}
	}
	if flags.Changed("smart-mapping") {
		cfg.SmartMapping = g.smartMapping
	}
	if flags.Changed("strict-query-params") {
		cfg.StrictQueryParams = g.strictQueryParams
	}
	if flags.Changed("strict-request-body") {
		cfg.StrictRequestBody = g.strictRequestBody
	}
	if flags.Changed("graphql-endpoint") {
		cfg.QueryLanguageEndpoint = g.graphqlEndpoint
	}
	if flags.Changed("workers") {
		cfg.Workers = g.workers
	}
	if flags.Changed("filter") {
		cfg.Filter = g.filter
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = g.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = g.logFormat
	}
	return cfg, nil
}

// splitInput separates an optional "format=" prefix from a path. A prefix
// that is not a known format is treated as part of the path.
func splitInput(arg string, formats []string) (format, path string, err error) {
	prefix, rest, ok := strings.Cut(arg, "=")
	if !ok || !slices.Contains(formats, strings.ToLower(prefix)) {
		path = arg
	} else {
		format, path = strings.ToLower(prefix), rest
	}
	if path == "" {
		return "", "", fmt.Errorf("empty input path in %q", arg)
	}
	return format, path, nil
}
