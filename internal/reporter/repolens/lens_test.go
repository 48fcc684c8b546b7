package repolens

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paudley/git-ai-reporter/internal/reporter/model"
)

type fakeReader struct {
	refs []CommitRef
	diffs map[string][]model.FileChange
	tz    *time.Location
}

func (f *fakeReader) ListCommits(_ context.Context, _, _ time.Time) ([]CommitRef, error) {
	return f.refs, nil
}

func (f *fakeReader) DiffOf(_ context.Context, ref CommitRef) ([]model.FileChange, error) {
	return f.diffs[ref.Fingerprint], nil
}

func (f *fakeReader) HeadTimezone(_ context.Context) (*time.Location, error) {
	return f.tz, nil
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()

	parsed, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)

	return parsed
}

func TestLens_Extract_TrivialPrefixBypassesTier1(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{
		refs: []CommitRef{
			{Fingerprint: "aaaa", AuthorTime: mustTime(t, "2025-01-20T10:00:00Z"), Message: "chore: bump dependency"},
		},
		diffs: map[string][]model.FileChange{
			"aaaa": {{Path: "package.json", Diff: "@@ -1,3 +1,3 @@\n-1\n+2\n"}},
		},
		tz: time.UTC,
	}

	lens, err := New(reader, Options{})
	require.NoError(t, err)

	result, err := lens.Extract(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)

	analysis, ok := result.Prefiltered["aaaa"]
	require.True(t, ok, "commit should be prefiltered as candidate-trivial")
	assert.True(t, analysis.Trivial)
	require.Len(t, result.Days, 1)
	assert.Equal(t, "2025-01-20", result.Days[0].Date)
}

func TestLens_Extract_NonTrivialCommitNotPrefiltered(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{
		refs: []CommitRef{
			{Fingerprint: "bbbb", AuthorTime: mustTime(t, "2025-01-20T10:00:00Z"), Message: "feat: add login"},
		},
		diffs: map[string][]model.FileChange{
			"bbbb": {{Path: "login.go", Diff: "@@ -1,1 +1,2 @@\n+x\n"}},
		},
		tz: time.UTC,
	}

	lens, err := New(reader, Options{})
	require.NoError(t, err)

	result, err := lens.Extract(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)

	_, ok := result.Prefiltered["bbbb"]
	assert.False(t, ok)
}

func TestLens_Extract_GroupsIntoISOWeek(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{
		refs: []CommitRef{
			{Fingerprint: "c1", AuthorTime: mustTime(t, "2025-01-20T10:00:00Z"), Message: "feat: a"},
			{Fingerprint: "c2", AuthorTime: mustTime(t, "2025-01-21T10:00:00Z"), Message: "feat: b"},
		},
		diffs: map[string][]model.FileChange{},
		tz:    time.UTC,
	}

	lens, err := New(reader, Options{})
	require.NoError(t, err)

	result, err := lens.Extract(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)

	require.Len(t, result.Weeks, 1)
	assert.Equal(t, "2025-01-20", result.Weeks[0].Monday)
	assert.Equal(t, []string{"2025-01-20", "2025-01-21"}, result.Weeks[0].Days)
}

func TestUnionDiff_DeduplicatesRepeatedHunks(t *testing.T) {
	t.Parallel()

	commits := []model.Commit{
		{
			Fingerprint: "x1",
			Files: []model.FileChange{
				{Path: "a.go", Diff: "@@ -1,1 +1,1 @@\n-a\n+b\n"},
			},
		},
		{
			Fingerprint: "x2",
			Files: []model.FileChange{
				{Path: "a.go", Diff: "@@ -1,1 +1,1 @@\n-a\n+b\n"},
				{Path: "a.go", Diff: "@@ -5,1 +5,1 @@\n-c\n+d\n"},
			},
		},
	}

	union := unionDiff(commits)

	assert.Equal(t, 1, countOccurrences(union, "-1,1 +1,1"), "repeated hunk kept once")
	assert.Equal(t, 1, countOccurrences(union, "-5,1 +5,1"), "new hunk present")
}

func countOccurrences(haystack, needle string) int {
	count := 0
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			count++
		}
	}

	return count
}
