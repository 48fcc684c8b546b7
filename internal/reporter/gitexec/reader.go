// Package gitexec implements repolens.RepositoryReader by shelling out to
// the system git binary. It is a boundary adapter: the pipeline itself
// never invokes VCS commands directly, only this package does, on its
// behalf (§6).
package gitexec

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/paudley/git-ai-reporter/internal/reporter/model"
	"github.com/paudley/git-ai-reporter/internal/reporter/repolens"
)

const logFieldSep = "\x1f"
const logRecordSep = "\x1e"

// Reader reads commit history from a local git working tree at Dir via the
// git CLI.
type Reader struct {
	Dir string
}

// New constructs a Reader rooted at dir.
func New(dir string) *Reader {
	return &Reader{Dir: dir}
}

func (r *Reader) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, stderr.String())
	}

	return stdout.Bytes(), nil
}

// ListCommits implements repolens.RepositoryReader.
func (r *Reader) ListCommits(ctx context.Context, start, end time.Time) ([]repolens.CommitRef, error) {
	format := strings.Join([]string{"%H", "%aI", "%s", "%B"}, logFieldSep) + logRecordSep

	out, err := r.run(ctx, "log",
		"--since="+start.Format(time.RFC3339),
		"--until="+end.Format(time.RFC3339),
		"--date=iso-strict",
		"--numstat",
		"--pretty=format:"+recordMarker+format,
	)
	if err != nil {
		return nil, err
	}

	return parseLog(out)
}

const recordMarker = "\x01"

func parseLog(out []byte) ([]repolens.CommitRef, error) {
	var refs []repolens.CommitRef

	records := strings.Split(string(out), recordMarker)

	for _, record := range records {
		record = strings.TrimSpace(record)
		if record == "" {
			continue
		}

		headerEnd := strings.Index(record, logRecordSep)
		if headerEnd < 0 {
			continue
		}

		header := record[:headerEnd]
		body := record[headerEnd+len(logRecordSep):]

		fields := strings.SplitN(header, logFieldSep, 4)
		if len(fields) < 4 {
			continue
		}

		authorTime, parseErr := time.Parse(time.RFC3339, fields[1])
		if parseErr != nil {
			return nil, fmt.Errorf("gitexec: parse author time %q: %w", fields[1], parseErr)
		}

		ins, del := sumNumstat(body)

		refs = append(refs, repolens.CommitRef{
			Fingerprint: fields[0],
			AuthorTime:  authorTime,
			Message:     fields[3],
			Insertions:  ins,
			Deletions:   del,
		})
	}

	return refs, nil
}

func sumNumstat(body string) (insertions, deletions int) {
	for _, line := range strings.Split(body, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}

		ins, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}

		del, err := strconv.Atoi(fields[1])
		if err != nil {
			continue
		}

		insertions += ins
		deletions += del
	}

	return insertions, deletions
}

// DiffOf implements repolens.RepositoryReader.
func (r *Reader) DiffOf(ctx context.Context, ref repolens.CommitRef) ([]model.FileChange, error) {
	nameStatus, err := r.run(ctx, "diff-tree", "--no-commit-id", "--name-status", "-r", ref.Fingerprint)
	if err != nil {
		return nil, fmt.Errorf("gitexec: diff-tree: %w", err)
	}

	var changes []model.FileChange

	for _, line := range strings.Split(strings.TrimSpace(string(nameStatus)), "\n") {
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		path := fields[len(fields)-1]

		diff, diffErr := r.run(ctx, "show", "--format=", ref.Fingerprint, "--", path)
		if diffErr != nil {
			changes = append(changes, model.FileChange{Path: path, Kind: kindOf(fields[0]), Unreadable: true})

			continue
		}

		changes = append(changes, model.FileChange{
			Path: path,
			Kind: kindOf(fields[0]),
			Diff: string(diff),
		})
	}

	return changes, nil
}

func kindOf(status string) model.ChangeKind {
	switch status[0] {
	case 'A':
		return model.ChangeAdded
	case 'D':
		return model.ChangeDeleted
	case 'R':
		return model.ChangeRenamed
	default:
		return model.ChangeModified
	}
}

// HeadTimezone implements repolens.RepositoryReader by reading the
// committer offset of HEAD.
func (r *Reader) HeadTimezone(ctx context.Context) (*time.Location, error) {
	out, err := r.run(ctx, "log", "-1", "--format=%cI")
	if err != nil {
		return nil, fmt.Errorf("gitexec: head timezone: %w", err)
	}

	t, parseErr := time.Parse(time.RFC3339, strings.TrimSpace(string(out)))
	if parseErr != nil {
		return nil, fmt.Errorf("gitexec: parse head commit time: %w", parseErr)
	}

	return t.Location(), nil
}
