package repolens

import (
	"context"
	"time"

	"github.com/paudley/git-ai-reporter/internal/reporter/model"
)

// CommitRef is the minimal commit identity RepositoryReader enumerates;
// RepositoryLens hydrates it into a full model.Commit via DiffOf.
type CommitRef struct {
	Fingerprint string
	AuthorTime  time.Time
	Message     string
	Insertions  int
	Deletions   int
}

// RepositoryReader is the consumed external collaborator (§6). The
// reporter never invokes VCS commands directly; it only ever talks to an
// implementation of this interface.
type RepositoryReader interface {
	// ListCommits returns commits with AuthorTime in [start, end), ascending
	// by time and tie-broken by fingerprint.
	ListCommits(ctx context.Context, start, end time.Time) ([]CommitRef, error)

	// DiffOf returns the per-file changes for one commit. A per-file
	// failure is reported by marking that FileChange.Unreadable rather
	// than failing the whole call.
	DiffOf(ctx context.Context, ref CommitRef) ([]model.FileChange, error)

	// HeadTimezone returns the repository's configured local timezone,
	// used as the default grouping timezone (§9 Open Question (b)).
	HeadTimezone(ctx context.Context) (*time.Location, error)
}
