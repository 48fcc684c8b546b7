package repolens

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// RenderUnifiedDiff builds a minimal unified-diff body from two blob
// contents. It exists for RepositoryReader implementations that only have
// raw before/after blobs rather than a pre-rendered patch; the reporter
// core otherwise treats FileChange.Diff as opaque.
func RenderUnifiedDiff(path, before, after string) string {
	dmp := diffmatchpatch.New()

	beforeChars, afterChars, lineArray := dmp.DiffLinesToChars(before, after)

	diffs := dmp.DiffCharsToLines(dmp.DiffMain(beforeChars, afterChars, false), lineArray)

	var body strings.Builder

	fmt.Fprintf(&body, "--- a/%s\n+++ b/%s\n", path, path)
	fmt.Fprintf(&body, "@@ -1,%d +1,%d @@\n", len(strings.Split(before, "\n")), len(strings.Split(after, "\n")))

	for _, d := range diffs {
		for _, line := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			switch d.Type {
			case diffmatchpatch.DiffInsert:
				body.WriteString("+" + line + "\n")
			case diffmatchpatch.DiffDelete:
				body.WriteString("-" + line + "\n")
			case diffmatchpatch.DiffEqual:
				body.WriteString(" " + line + "\n")
			}
		}
	}

	return strings.TrimRight(body.String(), "\n")
}
