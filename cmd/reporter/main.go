// Package main provides the entry point for the git-ai-reporter CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/paudley/git-ai-reporter/internal/reporter/cache"
	"github.com/paudley/git-ai-reporter/internal/reporter/config"
	"github.com/paudley/git-ai-reporter/internal/reporter/gitexec"
	"github.com/paudley/git-ai-reporter/internal/reporter/llm"
	"github.com/paudley/git-ai-reporter/internal/reporter/llmclient"
	"github.com/paudley/git-ai-reporter/internal/reporter/model"
	"github.com/paudley/git-ai-reporter/internal/reporter/observability"
	"github.com/paudley/git-ai-reporter/internal/reporter/orchestrator"
	"github.com/paudley/git-ai-reporter/internal/reporter/promptfit"
	"github.com/paudley/git-ai-reporter/internal/reporter/repolens"
	"github.com/paudley/git-ai-reporter/internal/reporter/tier1"
	"github.com/paudley/git-ai-reporter/internal/reporter/tier2"
	"github.com/paudley/git-ai-reporter/internal/reporter/tier3"
)

const (
	exitSuccess      = 0
	exitInvalidInput = 2
	exitLLMFailure   = 3
	exitCanceled     = 4
)

type generateOptions struct {
	repoPath     string
	since        string
	until        string
	configFile   string
	apiBase      string
	apiKey       string
	narrativeOut string
	changelogOut string
	dailyOut     string
	preVersion   string
	preDate      string
	verbose      bool
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var opts generateOptions

	root := &cobra.Command{
		Use:           "git-ai-reporter",
		Short:         "Three-tier LLM-driven commit history reporter",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Extract, analyze, and merge a date range's commits into the narrative/changelog/daily artifacts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd.Context(), &opts)
		},
	}

	generateCmd.Flags().StringVarP(&opts.repoPath, "path", "p", ".", "Repository path")
	generateCmd.Flags().StringVar(&opts.since, "since", "", "Start of the date range (RFC3339)")
	generateCmd.Flags().StringVar(&opts.until, "until", "", "End of the date range (RFC3339)")
	generateCmd.Flags().StringVar(&opts.configFile, "config", "", "Configuration file path")
	generateCmd.Flags().StringVar(&opts.apiBase, "llm-base-url", os.Getenv("REPORTER_LLM_BASE_URL"), "OpenAI-compatible API base URL")
	generateCmd.Flags().StringVar(&opts.apiKey, "llm-api-key", os.Getenv("REPORTER_LLM_API_KEY"), "API key for the LLM endpoint")
	generateCmd.Flags().StringVar(&opts.narrativeOut, "narrative-out", "NARRATIVE.md", "Weekly narrative output file")
	generateCmd.Flags().StringVar(&opts.changelogOut, "changelog-out", "CHANGELOG.md", "Changelog output file")
	generateCmd.Flags().StringVar(&opts.dailyOut, "daily-out", "DAILY.md", "Daily summary output file")
	generateCmd.Flags().StringVar(&opts.preVersion, "release-version", "", "Stamp this run as a pre-release of this version")
	generateCmd.Flags().StringVar(&opts.preDate, "release-date", "", "Pre-release date (YYYY-MM-DD), required with --release-version")
	generateCmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose (debug-level) logging")

	root.AddCommand(generateCmd)
	root.SetArgs(args)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		return exitCodeFor(err)
	}

	return exitSuccess
}

// runError pairs a terminal orchestrator.Result with the exit code its
// State maps to, so the cobra error path can recover the right code
// without parsing error text.
type runError struct {
	state orchestrator.State
	msg   string
}

func (e *runError) Error() string { return e.msg }

func exitCodeFor(err error) int {
	var re *runError
	if !errors.As(err, &re) {
		return exitInvalidInput
	}

	switch re.state {
	case orchestrator.StateCanceled:
		return exitCanceled
	case orchestrator.StateTier1, orchestrator.StateTier2, orchestrator.StateTier3:
		return exitLLMFailure
	default:
		return exitInvalidInput
	}
}

func runGenerate(ctx context.Context, opts *generateOptions) error {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}

	logger := observability.NewLogger(os.Stderr, true, level, "git-ai-reporter")
	tracer, shutdownTracer := observability.InitTracing("git-ai-reporter")

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	_ = metrics // registered for scraping only; no pipeline component records into these instruments

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx, span := tracer.Start(ctx, "reporter.generate")
	defer span.End()

	defer func() {
		if shutdownErr := shutdownTracer(context.Background()); shutdownErr != nil {
			logger.Warn("tracer shutdown failed", "error", shutdownErr)
		}
	}()

	start, end, err := parseRange(opts.since, opts.until)
	if err != nil {
		return err
	}

	reader := gitexec.New(opts.repoPath)

	lens, err := repolens.New(reader, repolens.Options{
		TrivialPrefixes:     cfg.TrivialPrefixes,
		TrivialPathPatterns: cfg.TrivialPathPatterns,
	})
	if err != nil {
		return fmt.Errorf("build repository lens: %w", err)
	}

	artifactCache, err := cache.New(cfg.CacheDir, 0, 0)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}

	client := llmclient.New(opts.apiBase, opts.apiKey, nil)
	gateway := llm.NewGateway(client, cfg.GatewayConfig())

	orch := &orchestrator.Orchestrator{
		Lens: lens,
		Tier1: &tier1.Analyzer{
			Gateway: gateway,
			Cache:   artifactCache,
			Counter: promptfit.NewRatioCounter(),
			Budget:  cfg.MaxTokens.Fast,
		},
		Tier2: &tier2.Synthesizer{Gateway: gateway, Cache: artifactCache},
		Tier3: &tier3.Narrator{Gateway: gateway, Cache: artifactCache},
		Config: orchestrator.Config{
			Tier1Concurrency: cfg.Concurrency.T1,
			Tier2Concurrency: cfg.Concurrency.T2,
			Tier3Concurrency: cfg.Concurrency.T3,
		},
		Logger: logger,
	}

	existing := loadExisting(opts)

	if opts.preVersion != "" && opts.preDate == "" {
		return errors.New("--release-date is required with --release-version")
	}

	var pre *orchestrator.Prerelease
	if opts.preVersion != "" {
		pre = &orchestrator.Prerelease{Version: opts.preVersion, Date: opts.preDate}
	}

	runStart := time.Now()
	result := orch.Run(ctx, start, end, existing, pre)

	return reportResult(opts, logger, result, runStart)
}

func loadExisting(opts *generateOptions) orchestrator.ExistingArtifacts {
	return orchestrator.ExistingArtifacts{
		Narrative: readIfExists(opts.narrativeOut),
		Changelog: readIfExists(opts.changelogOut),
		Daily:     readIfExists(opts.dailyOut),
	}
}

func readIfExists(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}

	return string(data)
}

func reportResult(opts *generateOptions, logger *slog.Logger, result orchestrator.Result, runStart time.Time) error {
	for _, artifact := range result.Artifacts {
		var path string

		switch artifact.Kind {
		case string(model.ArtifactNarrative):
			path = opts.narrativeOut
		case string(model.ArtifactChangelog):
			path = opts.changelogOut
		case string(model.ArtifactDaily):
			path = opts.dailyOut
		}

		if path == "" {
			continue
		}

		if err := os.WriteFile(path, []byte(artifact.Text), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}

	switch result.State {
	case orchestrator.StateDone:
		elapsed := time.Since(runStart)
		color.Green("done in %s", humanize.RelTime(runStart, time.Now(), "", ""))
		logger.Info("generate complete", "elapsed", elapsed.String(), "artifacts", len(result.Artifacts))

		return nil
	case orchestrator.StateCanceled:
		return &runError{state: result.State, msg: fmt.Sprintf("run canceled: %s", result.Reason)}
	default:
		return &runError{state: result.FailedAt, msg: fmt.Sprintf("run failed at %s: %s", result.FailedAt, result.Reason)}
	}
}

func parseRange(since, until string) (time.Time, time.Time, error) {
	end := time.Now().UTC()
	if until != "" {
		parsed, err := time.Parse(time.RFC3339, until)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse --until: %w", err)
		}

		end = parsed
	}

	start := end.AddDate(0, 0, -7)
	if since != "" {
		parsed, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse --since: %w", err)
		}

		start = parsed
	}

	return start, end, nil
}
