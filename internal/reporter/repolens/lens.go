// Package repolens extracts commits from a RepositoryReader and projects
// them into day and ISO-week lenses, applying the triviality pre-filter
// (§4.1) before any commit reaches Tier 1.
package repolens

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/paudley/git-ai-reporter/internal/reporter/errs"
	"github.com/paudley/git-ai-reporter/internal/reporter/model"
)

// defaultTrivialPrefixes is the default conventional-commit prefix set that
// makes a commit candidate-trivial regardless of its diff content.
var defaultTrivialPrefixes = []string{"style", "chore"}

// Options configures a Lens.
type Options struct {
	// TrivialPrefixes overrides defaultTrivialPrefixes when non-nil.
	TrivialPrefixes []string
	// TrivialPathPatterns: a commit whose every file matches one of these
	// patterns is candidate-trivial.
	TrivialPathPatterns []string
	// Location overrides RepositoryReader.HeadTimezone when non-nil.
	Location *time.Location
}

// Lens extracts and groups commits from a RepositoryReader.
type Lens struct {
	reader      RepositoryReader
	prefixes    []string
	pathRegexes []*regexp.Regexp
	location    *time.Location
}

// New constructs a Lens over reader with the given options.
func New(reader RepositoryReader, opts Options) (*Lens, error) {
	prefixes := opts.TrivialPrefixes
	if prefixes == nil {
		prefixes = defaultTrivialPrefixes
	}

	regexes := make([]*regexp.Regexp, 0, len(opts.TrivialPathPatterns))

	for _, pat := range opts.TrivialPathPatterns {
		re, compileErr := regexp.Compile(pat)
		if compileErr != nil {
			return nil, fmt.Errorf("%w: trivial_path_patterns %q: %v", errs.ErrInput, pat, compileErr)
		}

		regexes = append(regexes, re)
	}

	return &Lens{
		reader:      reader,
		prefixes:    prefixes,
		pathRegexes: regexes,
		location:    opts.Location,
	}, nil
}

// ExtractResult is the full output of one Extract call.
type ExtractResult struct {
	Commits      []model.Commit
	Prefiltered  map[string]model.CommitAnalysis // fingerprint -> synthesized trivial analysis
	Days         []model.DailyGroup
	Weeks        []model.WeekGroup
}

// Extract lists commits in [start, end), hydrates their diffs, applies the
// triviality pre-filter, and groups the result into days and ISO weeks.
func (l *Lens) Extract(ctx context.Context, start, end time.Time) (ExtractResult, error) {
	refs, listErr := l.reader.ListCommits(ctx, start, end)
	if listErr != nil {
		return ExtractResult{}, fmt.Errorf("%w: list commits: %w", errs.ErrReader, listErr)
	}

	loc, locErr := l.resolveLocation(ctx)
	if locErr != nil {
		return ExtractResult{}, locErr
	}

	sortRefs(refs)

	commits := make([]model.Commit, 0, len(refs))
	prefiltered := make(map[string]model.CommitAnalysis)

	for _, ref := range refs {
		files, diffErr := l.reader.DiffOf(ctx, ref)
		if diffErr != nil {
			// A whole-commit diff failure still yields the commit; it is
			// marked unanalyzable via a synthesized trivial analysis (§7).
			commits = append(commits, model.Commit{
				Fingerprint: ref.Fingerprint,
				AuthorTime:  ref.AuthorTime.UTC(),
				Message:     ref.Message,
				Insertions:  ref.Insertions,
				Deletions:   ref.Deletions,
			})
			prefiltered[ref.Fingerprint] = model.CommitAnalysis{
				Fingerprint: ref.Fingerprint,
				Trivial:     true,
				Note:        fmt.Sprintf("unanalyzable: %v", diffErr),
			}

			continue
		}

		commit := model.Commit{
			Fingerprint: ref.Fingerprint,
			AuthorTime:  ref.AuthorTime.UTC(),
			Message:     ref.Message,
			Files:       files,
			Insertions:  ref.Insertions,
			Deletions:   ref.Deletions,
		}
		commits = append(commits, commit)

		if l.isCandidateTrivial(commit) {
			prefiltered[commit.Fingerprint] = model.CommitAnalysis{
				Fingerprint: commit.Fingerprint,
				Trivial:     true,
			}
		}
	}

	days := l.groupByDay(commits, loc)
	weeks := groupByWeek(days)

	return ExtractResult{
		Commits:     commits,
		Prefiltered: prefiltered,
		Days:        days,
		Weeks:       weeks,
	}, nil
}

func (l *Lens) resolveLocation(ctx context.Context) (*time.Location, error) {
	if l.location != nil {
		return l.location, nil
	}

	loc, err := l.reader.HeadTimezone(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: head timezone: %w", errs.ErrReader, err)
	}

	if loc == nil {
		return time.UTC, nil
	}

	return loc, nil
}

func sortRefs(refs []CommitRef) {
	sort.SliceStable(refs, func(i, j int) bool {
		if !refs[i].AuthorTime.Equal(refs[j].AuthorTime) {
			return refs[i].AuthorTime.Before(refs[j].AuthorTime)
		}

		return refs[i].Fingerprint < refs[j].Fingerprint
	})
}

// isCandidateTrivial implements the §4.1 pre-filter: prefix match on the
// message OR every file matching a trivial path pattern.
func (l *Lens) isCandidateTrivial(commit model.Commit) bool {
	for _, prefix := range l.prefixes {
		if strings.HasPrefix(commit.Message, prefix+":") || strings.HasPrefix(commit.Message, prefix+"(") {
			return true
		}
	}

	if len(commit.Files) == 0 || len(l.pathRegexes) == 0 {
		return false
	}

	for _, f := range commit.Files {
		matched := false

		for _, re := range l.pathRegexes {
			if re.MatchString(f.Path) {
				matched = true

				break
			}
		}

		if !matched {
			return false
		}
	}

	return true
}

// groupByDay buckets commits by calendar date in loc, producing a
// deduplicated union diff per day (§4.1).
func (l *Lens) groupByDay(commits []model.Commit, loc *time.Location) []model.DailyGroup {
	order := make([]string, 0)
	byDate := make(map[string][]model.Commit)

	for _, c := range commits {
		date := c.AuthorTime.In(loc).Format("2006-01-02")
		if _, ok := byDate[date]; !ok {
			order = append(order, date)
		}

		byDate[date] = append(byDate[date], c)
	}

	sort.Strings(order)

	days := make([]model.DailyGroup, 0, len(order))

	for _, date := range order {
		dayCommits := byDate[date]

		fps := make([]string, 0, len(dayCommits))
		for _, c := range dayCommits {
			fps = append(fps, c.Fingerprint)
		}

		days = append(days, model.DailyGroup{
			Date:         date,
			Fingerprints: fps,
			UnionDiff:    unionDiff(dayCommits),
		})
	}

	return days
}

// unionDiff concatenates per-file unified diffs across commits, keeping the
// earliest occurrence of any hunk that repeats verbatim for the same file
// within the day.
func unionDiff(commits []model.Commit) string {
	seenHunks := make(map[string]map[string]bool) // path -> hunk text -> seen

	var out strings.Builder

	for _, c := range commits {
		for _, f := range c.Files {
			if f.IsBinary || f.Diff == "" {
				continue
			}

			seen, ok := seenHunks[f.Path]
			if !ok {
				seen = make(map[string]bool)
				seenHunks[f.Path] = seen
			}

			for _, hunk := range splitHunks(f.Diff) {
				if seen[hunk] {
					continue
				}

				seen[hunk] = true
				out.WriteString(hunk)
				out.WriteString("\n")
			}
		}
	}

	return strings.TrimRight(out.String(), "\n")
}

// splitHunks splits a unified diff body into "@@ ... @@"-delimited hunks,
// preserving the leading file-header lines as part of the first hunk.
func splitHunks(diff string) []string {
	lines := strings.Split(diff, "\n")
	hunks := make([]string, 0)

	var current strings.Builder

	started := false

	for _, line := range lines {
		if strings.HasPrefix(line, "@@") && started {
			hunks = append(hunks, strings.TrimRight(current.String(), "\n"))
			current.Reset()
		}

		if strings.HasPrefix(line, "@@") {
			started = true
		}

		current.WriteString(line)
		current.WriteString("\n")
	}

	if current.Len() > 0 {
		hunks = append(hunks, strings.TrimRight(current.String(), "\n"))
	}

	return hunks
}

// groupByWeek buckets days into ISO weeks (Monday-start), preserving
// chronological day order within each week.
func groupByWeek(days []model.DailyGroup) []model.WeekGroup {
	order := make([]string, 0)
	byWeek := make(map[string]*model.WeekGroup)

	for _, day := range days {
		t, parseErr := time.ParseInLocation("2006-01-02", day.Date, time.UTC)
		if parseErr != nil {
			continue
		}

		year, week := t.ISOWeek()
		id := fmt.Sprintf("%04d-W%02d", year, week)

		wg, ok := byWeek[id]
		if !ok {
			monday := mondayOf(t)
			wg = &model.WeekGroup{
				Year:   year,
				Week:   week,
				Monday: monday.Format("2006-01-02"),
				Sunday: monday.AddDate(0, 0, 6).Format("2006-01-02"),
			}
			byWeek[id] = wg
			order = append(order, id)
		}

		wg.Days = append(wg.Days, day.Date)
	}

	sort.Strings(order)

	weeks := make([]model.WeekGroup, 0, len(order))
	for _, id := range order {
		weeks = append(weeks, *byWeek[id])
	}

	return weeks
}

func mondayOf(t time.Time) time.Time {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7 // ISO: Sunday is day 7
	}

	return t.AddDate(0, 0, -(weekday - 1))
}
