package merge

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/paudley/git-ai-reporter/internal/reporter/model"
)

var dayHeaderRe = regexp.MustCompile(`(?m)^## (\d{4}-\d{2}-\d{2})\s*$`)

// MergeDaily upserts summary into existing daily-file text, keyed by date,
// and re-renders the document in descending date order.
func MergeDaily(existing string, summary model.DailySummary) string {
	sections := parseDaySections(existing)
	sections[summary.Date] = renderDaySection(summary)

	dates := make([]string, 0, len(sections))
	for d := range sections {
		dates = append(dates, d)
	}

	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	var out strings.Builder

	for i, d := range dates {
		if i > 0 {
			out.WriteString("\n")
		}

		out.WriteString(sections[d])
	}

	return out.String()
}

func parseDaySections(existing string) map[string]string {
	sections := make(map[string]string)

	matches := dayHeaderRe.FindAllStringIndex(existing, -1)
	if len(matches) == 0 {
		return sections
	}

	for i, m := range matches {
		end := len(existing)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}

		section := strings.TrimRight(existing[m[0]:end], "\n")
		date := dayHeaderRe.FindStringSubmatch(section)[1]
		sections[date] = section
	}

	return sections
}

func renderDaySection(summary model.DailySummary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## %s\n\n", summary.Date)
	b.WriteString(summary.Paragraph)
	b.WriteString("\n")

	if len(summary.Achievements) > 0 {
		b.WriteString("\n")

		for _, a := range summary.Achievements {
			fmt.Fprintf(&b, "- %s\n", a)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
