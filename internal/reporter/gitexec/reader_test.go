package gitexec

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSumNumstat_AccumulatesAcrossFiles(t *testing.T) {
	t.Parallel()

	ins, del := sumNumstat("3\t1\tmain.go\n10\t0\tREADME.md\n")
	assert.Equal(t, 13, ins)
	assert.Equal(t, 1, del)
}

func TestSumNumstat_SkipsBinaryMarkerLines(t *testing.T) {
	t.Parallel()

	ins, del := sumNumstat("-\t-\tassets/logo.png\n2\t1\tmain.go\n")
	assert.Equal(t, 2, ins)
	assert.Equal(t, 1, del)
}

func TestKindOf_MapsGitStatusLetters(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "added", string(kindOf("A")))
	assert.Equal(t, "deleted", string(kindOf("D")))
	assert.Equal(t, "renamed", string(kindOf("R100")))
	assert.Equal(t, "modified", string(kindOf("M")))
}

func TestParseLog_SplitsMultipleMultilineRecords(t *testing.T) {
	t.Parallel()

	out := recordMarker + "abc123" + logFieldSep + "2024-01-02T03:04:05Z" + logFieldSep +
		"fix: thing" + logFieldSep + "fix: thing\n\nlonger body\nwith lines" + logRecordSep +
		"3\t1\tmain.go\n" +
		recordMarker + "def456" + logFieldSep + "2024-01-03T00:00:00Z" + logFieldSep +
		"feat: other" + logFieldSep + "feat: other" + logRecordSep +
		"1\t0\tother.go\n"

	refs, err := parseLog([]byte(out))
	require.NoError(t, err)
	require.Len(t, refs, 2)

	assert.Equal(t, "abc123", refs[0].Fingerprint)
	assert.Equal(t, 3, refs[0].Insertions)
	assert.Equal(t, 1, refs[0].Deletions)
	assert.Equal(t, "def456", refs[1].Fingerprint)
}

func requireGit(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available on PATH")
	}
}

func initRepo(t *testing.T) string {
	t.Helper()
	requireGit(t)

	dir := t.TempDir()
	ctx := context.Background()

	runGit(t, ctx, dir, "init", "-q")
	runGit(t, ctx, dir, "config", "user.email", "test@example.com")
	runGit(t, ctx, dir, "config", "user.name", "Test")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello\n"), 0o644))
	runGit(t, ctx, dir, "add", "a.txt")
	runGit(t, ctx, dir, "commit", "-q", "-m", "feat: add a.txt")

	return dir
}

func runGit(t *testing.T, ctx context.Context, dir string, args ...string) {
	t.Helper()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
}

func TestReader_ListCommits_ReturnsCommittedHistory(t *testing.T) {
	t.Parallel()

	dir := initRepo(t)
	reader := New(dir)

	start := time.Now().Add(-time.Hour)
	end := time.Now().Add(time.Hour)

	refs, err := reader.ListCommits(context.Background(), start, end)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Contains(t, refs[0].Message, "add a.txt")
	assert.Equal(t, 1, refs[0].Insertions)
}

func TestReader_DiffOf_ReturnsFileChange(t *testing.T) {
	t.Parallel()

	dir := initRepo(t)
	reader := New(dir)

	refs, err := reader.ListCommits(context.Background(), time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, refs, 1)

	changes, err := reader.DiffOf(context.Background(), refs[0])
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "a.txt", changes[0].Path)
	assert.False(t, changes[0].Unreadable)
}

func TestReader_HeadTimezone_ResolvesFromCommitterOffset(t *testing.T) {
	t.Parallel()

	dir := initRepo(t)
	reader := New(dir)

	loc, err := reader.HeadTimezone(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, loc)
}
