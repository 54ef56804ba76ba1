package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sophialabs/apicover/internal/app"
	"github.com/sophialabs/apicover/internal/domain/exchange"
)

func newRunCmd(g *globalFlags) *cobra.Command {
	var (
		outputDir  string
		formats    []string
		failUnder  float64
		nearMisses int
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Compute coverage once, print a summary and write reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig(cmd)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("output-dir") {
				cfg.Output.Dir = outputDir
			}
			if flags.Changed("format") {
				cfg.Output.Formats = formats
			}
			if flags.Changed("fail-under") {
				cfg.FailUnder = failUnder
			}
			if flags.Changed("near-misses") {
				cfg.NearMisses = nearMisses
			}

			a, err := app.New(cfg, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			_, err = a.RunOnce(cmd.Context())
			return err
		},
	}
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "directory for report files")
	cmd.Flags().StringSliceVarP(&formats, "format", "f", nil, "report formats (json, html, markdown)")
	cmd.Flags().Float64Var(&failUnder, "fail-under", 0, "exit with status 2 when coverage percentage is below this value")
	cmd.Flags().IntVar(&nearMisses, "near-misses", 0, "near-miss exchanges reported per unmatched operation")
	return cmd
}

func newServeCmd(g *globalFlags) *cobra.Command {
	var (
		port      int
		watch     bool
		traceSize int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve coverage over HTTP and re-run when inputs change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig(cmd)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("port") {
				cfg.Server.Port = port
			}
			if flags.Changed("watch") {
				cfg.Server.Watch = watch
			}
			if flags.Changed("trace-size") {
				cfg.Server.TraceSize = traceSize
			}

			a, err := app.New(cfg, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return a.Serve(cmd.Context())
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP server port")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "re-run coverage when input files change")
	cmd.Flags().IntVar(&traceSize, "trace-size", 0, "number of runs kept in history")
	return cmd
}

func newProbeCmd(g *globalFlags) *cobra.Command {
	var (
		method      string
		url         string
		statuses    []string
		body        string
		contentType string
		sameMethod  bool
		asJSON      bool
	)
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Evaluate one ad-hoc exchange against every declared operation",
		Example: `  apicover probe --contract api.yaml --method GET --url /users/42 --status 200
  apicover probe -c apicover.yaml --method POST --url /graphql --body '{"query":"{ me { id } }"}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig(cmd)
			if err != nil {
				return err
			}
			if url == "" {
				return fmt.Errorf("--url is required")
			}
			for _, s := range statuses {
				if _, err := strconv.Atoi(s); err != nil {
					return fmt.Errorf("invalid --status %q", s)
				}
			}

			ex := &exchange.Exchange{
				Name:              "probe",
				Method:            method,
				RawURL:            url,
				TestedStatusCodes: statuses,
			}
			if body != "" {
				ex.Body = &exchange.Body{Mode: exchange.BodyRaw, Raw: body, ContentType: contentType}
			}

			out := cmd.OutOrStdout()
			printer := out
			if asJSON {
				printer = io.Discard
			}
			a, err := app.New(cfg, printer)
			if err != nil {
				return err
			}
			results, err := a.Probe(cmd.Context(), ex, sameMethod)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				enc.SetEscapeHTML(false)
				return enc.Encode(results)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&method, "method", "X", "GET", "request method")
	cmd.Flags().StringVar(&url, "url", "", "request URL, absolute or path-only")
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "status codes the exchange asserts")
	cmd.Flags().StringVarP(&body, "body", "d", "", "raw request body")
	cmd.Flags().StringVar(&contentType, "content-type", "", "request body content type")
	cmd.Flags().BoolVar(&sameMethod, "same-method", false, "only evaluate operations with the request method")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "apicover %s (commit %s, built %s)\n", Version, Commit, BuildDate)
		},
	}
}
