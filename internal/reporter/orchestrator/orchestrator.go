package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/paudley/git-ai-reporter/internal/reporter/errs"
	"github.com/paudley/git-ai-reporter/internal/reporter/merge"
	"github.com/paudley/git-ai-reporter/internal/reporter/model"
	"github.com/paudley/git-ai-reporter/internal/reporter/repolens"
	"github.com/paudley/git-ai-reporter/internal/reporter/tier1"
	"github.com/paudley/git-ai-reporter/internal/reporter/tier2"
	"github.com/paudley/git-ai-reporter/internal/reporter/tier3"
)

// Config bounds the orchestrator's three fan-out points (§4.10, §5).
type Config struct {
	Tier1Concurrency int // C1, default min(8, CPUs*2)
	Tier2Concurrency int // C2, default 4
	Tier3Concurrency int // C3, default 1 (serial)
}

// ExistingArtifacts carries the pre-existing artifact text the merger folds
// new output into (§4.9); empty strings are treated as "no prior content".
type ExistingArtifacts struct {
	Narrative string
	Changelog string
	Daily     string
}

// Prerelease, when non-nil, triggers the §4.9 pre-release flow after the
// run's changes are merged into [Unreleased].
type Prerelease struct {
	Version string
	Date    string // YYYY-MM-DD
}

// Orchestrator drives RepositoryLens -> Tier1 -> Tier2 -> Tier3 -> merge
// with bounded concurrency at each fan-out point.
type Orchestrator struct {
	Lens   *repolens.Lens
	Tier1  *tier1.Analyzer
	Tier2  *tier2.Synthesizer
	Tier3  *tier3.Narrator
	Config Config
	Logger *slog.Logger
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}

	return slog.Default()
}

// Run drives the pipeline over [start, end) and merges its output into
// existing, returning the state the run terminated in and any rendered
// artifacts produced along the way (§4.10).
func (o *Orchestrator) Run(ctx context.Context, start, end time.Time, existing ExistingArtifacts, pre *Prerelease) Result {
	extract, err := o.Lens.Extract(ctx, start, end)
	if err != nil {
		return failure(StateExtract, err)
	}

	o.logger().Info("extracted commits", "count", len(extract.Commits), "days", len(extract.Days), "weeks", len(extract.Weeks))

	analyses, err := o.runTier1(ctx, extract)
	if err != nil {
		if isCanceled(ctx, err) {
			return Result{State: StateCanceled, Reason: err.Error()}
		}

		return failure(StateTier1, err)
	}

	summaries, err := o.runTier2(ctx, extract, analyses)
	if err != nil {
		if isCanceled(ctx, err) {
			return Result{State: StateCanceled, Reason: err.Error()}
		}

		return failure(StateTier2, err)
	}

	narratives, err := o.runTier3(ctx, extract, summaries)
	if err != nil {
		if isCanceled(ctx, err) {
			return Result{State: StateCanceled, Reason: err.Error()}
		}

		return failure(StateTier3, err)
	}

	artifacts := o.mergeAll(extract, analyses, summaries, narratives, existing, pre)

	return Result{State: StateDone, Artifacts: artifacts}
}

func failure(at State, err error) Result {
	return Result{State: StateFailed, FailedAt: at, Reason: err.Error()}
}

func isCanceled(ctx context.Context, err error) bool {
	return errors.Is(ctx.Err(), context.Canceled) || errors.Is(err, errs.ErrCanceled)
}

func (o *Orchestrator) tier1Bound() int64 {
	if o.Config.Tier1Concurrency > 0 {
		return int64(o.Config.Tier1Concurrency)
	}

	return int64(min(8, runtime.NumCPU()*2))
}

func (o *Orchestrator) tier2Bound() int64 {
	if o.Config.Tier2Concurrency > 0 {
		return int64(o.Config.Tier2Concurrency)
	}

	return 4
}

func (o *Orchestrator) tier3Bound() int64 {
	if o.Config.Tier3Concurrency > 0 {
		return int64(o.Config.Tier3Concurrency)
	}

	return 1
}

// runTier1 fans out Tier-1 analysis over non-prefiltered commits, bound by
// C1, and returns every commit's analysis keyed by fingerprint (prefiltered
// commits included verbatim).
func (o *Orchestrator) runTier1(ctx context.Context, extract repolens.ExtractResult) (map[string]model.CommitAnalysis, error) {
	result := make(map[string]model.CommitAnalysis, len(extract.Commits))

	for fp, analysis := range extract.Prefiltered {
		result[fp] = analysis
	}

	sem := semaphore.NewWeighted(o.tier1Bound())
	group, groupCtx := errgroup.WithContext(ctx)

	var mu sync.Mutex

	for _, commit := range extract.Commits {
		if _, prefiltered := extract.Prefiltered[commit.Fingerprint]; prefiltered {
			continue
		}

		commit := commit

		if err := sem.Acquire(groupCtx, 1); err != nil {
			return nil, fmt.Errorf("tier1: %w", err)
		}

		group.Go(func() error {
			defer sem.Release(1)

			analysis, analyzeErr := o.Tier1.Analyze(groupCtx, commit)
			if analyzeErr != nil {
				return fmt.Errorf("tier1: commit %s: %w", commit.Fingerprint, analyzeErr)
			}

			mu.Lock()
			result[commit.Fingerprint] = analysis
			mu.Unlock()

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return result, nil
}

// runTier2 fans out Tier-2 synthesis over days, bound by C2; each day's
// Tier-1 inputs are assembled in the day's stored commit order before the
// call (§5 ordering guarantee).
func (o *Orchestrator) runTier2(ctx context.Context, extract repolens.ExtractResult, analyses map[string]model.CommitAnalysis) (map[string]model.DailySummary, error) {
	result := make(map[string]model.DailySummary, len(extract.Days))

	sem := semaphore.NewWeighted(o.tier2Bound())
	group, groupCtx := errgroup.WithContext(ctx)

	var mu sync.Mutex

	for _, day := range extract.Days {
		day := day

		ordered := make([]model.CommitAnalysis, 0, len(day.Fingerprints))
		for _, fp := range day.Fingerprints {
			ordered = append(ordered, analyses[fp])
		}

		if err := sem.Acquire(groupCtx, 1); err != nil {
			return nil, fmt.Errorf("tier2: %w", err)
		}

		group.Go(func() error {
			defer sem.Release(1)

			summary, synthErr := o.Tier2.Synthesize(groupCtx, day, ordered)
			if synthErr != nil {
				return fmt.Errorf("tier2: day %s: %w", day.Date, synthErr)
			}

			mu.Lock()
			result[day.Date] = summary
			mu.Unlock()

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return result, nil
}

// runTier3 processes weeks with bound C3 (serial by default, C3=1),
// producing narratives in ascending week order (§5).
func (o *Orchestrator) runTier3(ctx context.Context, extract repolens.ExtractResult, summaries map[string]model.DailySummary) (map[string]model.WeeklyNarrative, error) {
	result := make(map[string]model.WeeklyNarrative, len(extract.Weeks))

	sem := semaphore.NewWeighted(o.tier3Bound())
	group, groupCtx := errgroup.WithContext(ctx)

	var mu sync.Mutex

	weeks := orderedWeeks(extract.Weeks)

	for _, week := range weeks {
		week := week

		ordered := make([]model.DailySummary, 0, len(week.Days))
		for _, date := range week.Days {
			ordered = append(ordered, summaries[date])
		}

		if err := sem.Acquire(groupCtx, 1); err != nil {
			return nil, fmt.Errorf("tier3: %w", err)
		}

		group.Go(func() error {
			defer sem.Release(1)

			narrative, narrateErr := o.Tier3.Narrate(groupCtx, week, ordered)
			if narrateErr != nil {
				return fmt.Errorf("tier3: week %s: %w", week.ID(), narrateErr)
			}

			mu.Lock()
			result[week.ID()] = narrative
			mu.Unlock()

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return result, nil
}

func orderedWeeks(weeks []model.WeekGroup) []model.WeekGroup {
	out := make([]model.WeekGroup, len(weeks))
	copy(out, weeks)
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })

	return out
}

func (o *Orchestrator) mergeAll(
	extract repolens.ExtractResult,
	analyses map[string]model.CommitAnalysis,
	summaries map[string]model.DailySummary,
	narratives map[string]model.WeeklyNarrative,
	existing ExistingArtifacts,
	pre *Prerelease,
) []ArtifactOutput {
	dailyText := existing.Daily
	for _, day := range extract.Days {
		dailyText = merge.MergeDaily(dailyText, summaries[day.Date])
	}

	changelog := merge.ParseChangelog(existing.Changelog)

	for _, day := range extract.Days {
		for _, fp := range day.Fingerprints {
			changelog.AddChanges(analyses[fp].Changes)
		}
	}

	weeks := orderedWeeks(extract.Weeks)

	narrativeText := existing.Narrative
	for _, week := range weeks {
		narrativeText = merge.MergeNarrative(narrativeText, week, narratives[week.ID()])
	}

	if pre != nil {
		changelog.Prerelease(pre.Version, pre.Date)

		if len(weeks) > 0 {
			last := weeks[len(weeks)-1]
			released := narratives[last.ID()]
			released.ReleasedVersion = pre.Version
			narrativeText = merge.MergeNarrative(narrativeText, last, released)
		}
	}

	return []ArtifactOutput{
		{Kind: string(model.ArtifactNarrative), Text: narrativeText},
		{Kind: string(model.ArtifactChangelog), Text: changelog.Render()},
		{Kind: string(model.ArtifactDaily), Text: dailyText},
	}
}
