package merge

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/paudley/git-ai-reporter/internal/reporter/model"
)

// categoryEmoji maps a Category onto the bullet-prefix emoji and the
// "Keep a Changelog" subsection it belongs under (§6).
var categoryEmoji = map[model.Category]struct {
	Emoji      string
	Subsection string
}{
	model.CategoryNewFeature:  {"✨", "Added"},
	model.CategoryBugFix:      {"🐛", "Fixed"},
	model.CategorySecurity:    {"🔒", "Security"},
	model.CategoryPerformance: {"⚡", "Performance"},
	model.CategoryRefactor:    {"♻️", "Changed"},
	model.CategoryBuild:       {"🔧", "Changed"},
	model.CategoryOther:       {"📦", "Changed"},
}

// subsectionOrder is the fixed rendering order for "Keep a Changelog"
// subsections (§6); subsections absent from a section are omitted.
var subsectionOrder = []string{"Added", "Changed", "Fixed", "Removed", "Security", "Performance"}

var (
	unreleasedHeaderRe = regexp.MustCompile(`(?m)^## \[Unreleased\]\s*$`)
	versionHeaderRe    = regexp.MustCompile(`(?m)^## \[v([0-9][^\]]*)\] - (\d{4}-\d{2}-\d{2})\s*$`)
	subsectionRe       = regexp.MustCompile(`(?m)^### (\w+)\s*$`)
)

// Changelog is a parsed "Keep a Changelog" document: an ordered set of
// bullets in [Unreleased], plus the verbatim text of every prior version
// section (preserved byte-for-byte, §4.9).
type Changelog struct {
	Unreleased    []bullet
	VersionBlocks []string // verbatim "## [vX.Y.Z] - date" ... text, most recent first
}

type bullet struct {
	Category model.Category
	Text     string // description only; the category emoji is added by Render
}

// ParseChangelog extracts the [Unreleased] bullets and preserves every
// other version section verbatim.
func ParseChangelog(existing string) Changelog {
	if strings.TrimSpace(existing) == "" {
		return Changelog{}
	}

	unreleasedLoc := unreleasedHeaderRe.FindStringIndex(existing)
	if unreleasedLoc == nil {
		return Changelog{VersionBlocks: splitVersionBlocks(existing)}
	}

	nextVersion := versionHeaderRe.FindStringIndex(existing[unreleasedLoc[1]:])

	unreleasedEnd := len(existing)
	if nextVersion != nil {
		unreleasedEnd = unreleasedLoc[1] + nextVersion[0]
	}

	unreleasedBody := existing[unreleasedLoc[1]:unreleasedEnd]

	return Changelog{
		Unreleased:    parseBullets(unreleasedBody),
		VersionBlocks: splitVersionBlocks(existing[unreleasedEnd:]),
	}
}

func splitVersionBlocks(text string) []string {
	matches := versionHeaderRe.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}

	blocks := make([]string, 0, len(matches))

	for i, m := range matches {
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}

		blocks = append(blocks, strings.TrimRight(text[m[0]:end], "\n"))
	}

	return blocks
}

func parseBullets(body string) []bullet {
	var out []bullet

	currentSub := ""

	for _, line := range strings.Split(body, "\n") {
		if m := subsectionRe.FindStringSubmatch(line); m != nil {
			currentSub = m[1]

			continue
		}

		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "- ") {
			continue
		}

		text := strings.TrimPrefix(trimmed, "- ")
		cat := categoryForSubsection(currentSub)

		for c, v := range categoryEmoji {
			if v.Subsection == currentSub && strings.HasPrefix(text, v.Emoji+" ") {
				cat, text = c, strings.TrimPrefix(text, v.Emoji+" ")

				break
			}
		}

		out = append(out, bullet{Category: cat, Text: text})
	}

	return out
}

func categoryForSubsection(sub string) model.Category {
	for cat, v := range categoryEmoji {
		if v.Subsection == sub {
			return cat
		}
	}

	return model.CategoryOther
}

// AddChanges appends each new Change under [Unreleased], deduplicating by
// (category, description) and preserving prior version sections verbatim.
func (c *Changelog) AddChanges(changes []model.Change) {
	seen := make(map[string]bool)

	for _, b := range c.Unreleased {
		seen[dedupeKey(b.Category, b.Text)] = true
	}

	for _, ch := range changes {
		text := ch.Description

		key := dedupeKey(ch.Category, text)
		if seen[key] {
			continue
		}

		seen[key] = true
		c.Unreleased = append(c.Unreleased, bullet{Category: ch.Category, Text: text})
	}
}

func dedupeKey(cat model.Category, description string) string {
	return fmt.Sprintf("%s\x1f%s", cat, description)
}

// Render produces the full changelog document text.
func (c Changelog) Render() string {
	var b strings.Builder

	b.WriteString("## [Unreleased]\n\n")
	b.WriteString(renderSubsections(c.Unreleased))

	for _, block := range c.VersionBlocks {
		b.WriteString("\n\n")
		b.WriteString(block)
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func renderSubsections(bullets []bullet) string {
	grouped := make(map[string][]bullet)

	for _, bl := range bullets {
		sub := categoryEmoji[bl.Category].Subsection
		if sub == "" {
			sub = "Changed"
		}

		grouped[sub] = append(grouped[sub], bl)
	}

	var b strings.Builder

	for _, sub := range subsectionOrder {
		items := grouped[sub]
		if len(items) == 0 {
			continue
		}

		fmt.Fprintf(&b, "### %s\n\n", sub)

		for _, it := range items {
			emoji := categoryEmoji[it.Category].Emoji
			if emoji == "" {
				emoji = "📦"
			}

			fmt.Fprintf(&b, "- %s %s\n", emoji, it.Text)
		}

		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

// Prerelease moves every [Unreleased] bullet into a new "## [vVersion] -
// date" section, leaving a fresh empty [Unreleased] (§4.9).
func (c *Changelog) Prerelease(version, date string) {
	if len(c.Unreleased) == 0 {
		return
	}

	header := fmt.Sprintf("## [v%s] - %s", version, date)
	block := header + "\n\n" + renderSubsections(c.Unreleased)

	c.VersionBlocks = append([]string{strings.TrimRight(block, "\n")}, c.VersionBlocks...)
	c.Unreleased = nil
}
