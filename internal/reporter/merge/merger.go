// Package merge implements the ArtifactMerger (§4.9): idempotent,
// hash-compare-based merging of new pipeline output into pre-existing
// artifact text.
package merge

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/paudley/git-ai-reporter/internal/reporter/model"
)

var weekHeaderRe = regexp.MustCompile(`(?m)^## Week of (\d{4}-\d{2}-\d{2})(.*)$`)

// MergeNarrative upserts narrative into existing narrative text, keyed by
// ISO-week Monday date. Sections are ordered reverse-chronologically;
// unchanged sections are left byte-identical (hash-compared) so repeated
// runs are idempotent (property 6).
func MergeNarrative(existing string, week model.WeekGroup, narrative model.WeeklyNarrative) string {
	sections := parseWeekSections(existing)

	body := renderWeekSection(week, narrative)

	if prior, ok := sections[week.Monday]; !ok || !Unchanged(prior, body) {
		sections[week.Monday] = body
	}

	mondays := make([]string, 0, len(sections))
	for m := range sections {
		mondays = append(mondays, m)
	}

	sort.Sort(sort.Reverse(sort.StringSlice(mondays)))

	var out strings.Builder

	for i, m := range mondays {
		if i > 0 {
			out.WriteString("\n")
		}

		out.WriteString(sections[m])
	}

	return out.String()
}

func parseWeekSections(existing string) map[string]string {
	sections := make(map[string]string)

	matches := weekHeaderRe.FindAllStringIndex(existing, -1)
	if len(matches) == 0 {
		return sections
	}

	for i, m := range matches {
		end := len(existing)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}

		section := strings.TrimRight(existing[m[0]:end], "\n")
		monday := weekHeaderRe.FindStringSubmatch(section)[1]
		sections[monday] = section
	}

	return sections
}

func renderWeekSection(week model.WeekGroup, narrative model.WeeklyNarrative) string {
	suffix := ""
	if narrative.ReleasedVersion != "" {
		suffix = fmt.Sprintf(" — Released v%s 🚀", narrative.ReleasedVersion)
	}

	var b strings.Builder

	fmt.Fprintf(&b, "## Week of %s%s\n\n", week.Monday, suffix)

	if narrative.Title != "" {
		fmt.Fprintf(&b, "### %s\n\n", narrative.Title)
	}

	b.WriteString(narrative.Body)
	b.WriteString("\n")

	if len(narrative.NotableChanges) > 0 {
		b.WriteString("\nNotable Changes:\n")

		for _, c := range narrative.NotableChanges {
			fmt.Fprintf(&b, "- %s\n", c)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

// sectionHash allows callers to detect whether a section actually changed
// before writing, avoiding spurious rewrites (§4.9).
func sectionHash(section string) string {
	sum := sha256.Sum256([]byte(section))

	return fmt.Sprintf("%x", sum)
}

// Unchanged reports whether updating a section with newBody would be a
// no-op given its existing content.
func Unchanged(existingSection, newBody string) bool {
	return sectionHash(strings.TrimRight(existingSection, "\n")) == sectionHash(strings.TrimRight(newBody, "\n"))
}
