package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/kjstillabower/codex-platform-contract/internal/client"
	"github.com/kjstillabower/codex-platform-contract/internal/config"
	"github.com/kjstillabower/codex-platform-contract/internal/contract"
	httpapi "github.com/kjstillabower/codex-platform-contract/internal/http"
	"github.com/kjstillabower/codex-platform-contract/internal/observability"
)

// Exit codes.
const (
	exitPass   = 0
	exitFail   = 1
	exitConfig = 2
)

// options are the command line overrides applied on top of the loaded config.
type options struct {
	configDir  string
	baseURL    string
	scenarios  []string
	lookupName string
	lookupID   string
	noCleanup  bool
	timeout    time.Duration
	list       bool
}

func (o *options) AddFlags(f *pflag.FlagSet) {
	f.StringVar(&o.configDir, "config-dir", ".", "Directory holding .env and config/{ENV_NAME}.yaml")
	f.StringVar(&o.baseURL, "base-url", "", "Platform API prefix, e.g. http://127.0.0.1:3000/api/")
	f.StringSliceVar(&o.scenarios, "scenario", nil, "Scenario to run; repeat or comma-separate (default all)")
	f.StringVar(&o.lookupName, "lookup-name", "", "Name of an existing platform used by lookup scenarios")
	f.StringVar(&o.lookupID, "lookup-id", "", "ID of an existing platform used by lookup scenarios")
	f.BoolVar(&o.noCleanup, "no-cleanup", false, "Leave records created by failed scenarios in place")
	f.DurationVar(&o.timeout, "timeout", 0, "Per-request timeout, 0 for none (default from config)")
	f.BoolVar(&o.list, "list", false, "Print scenario names and exit")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run parses args, runs the selected scenarios and writes the report to stdout.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var opts options
	flags := pflag.NewFlagSet("contract", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	opts.AddFlags(flags)
	if err := flags.Parse(args); err != nil {
		return exitConfig
	}

	if opts.list {
		fmt.Fprintln(stdout, strings.Join(contract.Names(contract.Scenarios()), "\n"))
		return exitPass
	}

	logger, err := observability.NewLogger("contract")
	if err != nil {
		fmt.Fprintf(stderr, "logger: %v\n", err)
		return exitConfig
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.LoadFrom(opts.configDir)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return exitConfig
	}
	applyFlags(flags, &opts, cfg)

	selected, err := contract.Select(contract.Scenarios(), cfg.Scenarios)
	if err != nil {
		fmt.Fprintf(stderr, "%v (known: %s)\n", err, strings.Join(contract.Names(contract.Scenarios()), ", "))
		return exitConfig
	}

	headers := make(map[string]string, len(cfg.ClientHeaders)+1)
	for k, v := range cfg.ClientHeaders {
		headers[k] = v
	}
	if cfg.APIKey != "" {
		headers[httpapi.APIKeyHeader] = cfg.APIKey
	}
	c, err := client.New(client.Config{
		BaseURL: cfg.BaseURL,
		Timeout: cfg.ClientTimeout,
		Headers: headers,
	}, logger)
	if err != nil {
		fmt.Fprintf(stderr, "client: %v\n", err)
		return exitConfig
	}

	logger.Info("running contract scenarios",
		zap.String("base_url", c.BaseURL()),
		zap.Strings("scenarios", contract.Names(selected)),
		zap.Bool("cleanup", cfg.Cleanup))

	runner := contract.NewRunner(c, logger, contract.Options{
		Fixtures:        fixturesFrom(cfg),
		ScenarioTimeout: cfg.ScenarioTimeout,
	})
	report := runner.Run(ctx, selected)
	if err := report.WriteText(stdout); err != nil {
		logger.Error("write report", zap.Error(err))
	}

	if !report.Passed() {
		return exitFail
	}
	return exitPass
}

// applyFlags copies explicitly set flags over cfg.
func applyFlags(flags *pflag.FlagSet, opts *options, cfg *config.Config) {
	if flags.Changed("base-url") {
		cfg.BaseURL = opts.baseURL
	}
	if flags.Changed("scenario") {
		cfg.Scenarios = opts.scenarios
	}
	if flags.Changed("lookup-name") {
		cfg.LookupName = opts.lookupName
	}
	if flags.Changed("lookup-id") {
		cfg.LookupID = opts.lookupID
	}
	if opts.noCleanup {
		cfg.Cleanup = false
	}
	if flags.Changed("timeout") {
		cfg.ClientTimeout = opts.timeout
	}
}

func fixturesFrom(cfg *config.Config) contract.Fixtures {
	f := contract.DefaultFixtures()
	f.LookupName = cfg.LookupName
	f.LookupID = cfg.LookupID
	f.Cleanup = cfg.Cleanup
	return f
}
