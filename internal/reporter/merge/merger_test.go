package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paudley/git-ai-reporter/internal/reporter/model"
)

func TestMergeNarrative_InsertsReverseChronologically(t *testing.T) {
	t.Parallel()

	weekOlder := model.WeekGroup{Year: 2025, Week: 3, Monday: "2025-01-13"}
	weekNewer := model.WeekGroup{Year: 2025, Week: 5, Monday: "2025-01-27"}

	out := MergeNarrative("", weekOlder, model.WeeklyNarrative{Body: "older week"})
	out = MergeNarrative(out, weekNewer, model.WeeklyNarrative{Body: "newer week"})

	newerIdx := indexOf(out, "newer week")
	olderIdx := indexOf(out, "older week")

	require.GreaterOrEqual(t, newerIdx, 0)
	require.GreaterOrEqual(t, olderIdx, 0)
	assert.Less(t, newerIdx, olderIdx, "newer week must render before older week")
}

func TestMergeNarrative_IsIdempotent(t *testing.T) {
	t.Parallel()

	week := model.WeekGroup{Year: 2025, Week: 5, Monday: "2025-01-27"}
	narrative := model.WeeklyNarrative{Title: "Week five", Body: "steady progress", NotableChanges: []string{"shipped login"}}

	once := MergeNarrative("", week, narrative)
	twice := MergeNarrative(once, week, narrative)

	assert.Equal(t, once, twice)
}

func TestChangelog_ParseAddRenderRoundTrip(t *testing.T) {
	t.Parallel()

	cl := ParseChangelog("")
	cl.AddChanges([]model.Change{
		{Category: model.CategoryNewFeature, Description: "add login"},
		{Category: model.CategoryBugFix, Description: "fix null pointer"},
	})

	rendered := cl.Render()

	assert.Contains(t, rendered, "### Added")
	assert.Contains(t, rendered, "### Fixed")
	assert.Contains(t, rendered, "add login")
	assert.Contains(t, rendered, "fix null pointer")

	reparsed := ParseChangelog(rendered)
	require.Len(t, reparsed.Unreleased, 2)
}

func TestChangelog_AddChanges_DeduplicatesByCategoryAndDescription(t *testing.T) {
	t.Parallel()

	cl := ParseChangelog("")
	cl.AddChanges([]model.Change{{Category: model.CategoryNewFeature, Description: "add login"}})
	cl.AddChanges([]model.Change{{Category: model.CategoryNewFeature, Description: "add login"}})

	assert.Len(t, cl.Unreleased, 1)
}

func TestChangelog_Prerelease_MovesUnreleasedIntoVersionSection(t *testing.T) {
	t.Parallel()

	cl := ParseChangelog("")
	cl.AddChanges([]model.Change{
		{Category: model.CategoryNewFeature, Description: "bullet one"},
		{Category: model.CategoryBugFix, Description: "bullet two"},
	})

	cl.Prerelease("1.2.3", "2025-01-20")

	assert.Empty(t, cl.Unreleased)
	require.Len(t, cl.VersionBlocks, 1)
	assert.Contains(t, cl.VersionBlocks[0], "## [v1.2.3] - 2025-01-20")
	assert.Contains(t, cl.VersionBlocks[0], "bullet one")
	assert.Contains(t, cl.VersionBlocks[0], "bullet two")

	rendered := cl.Render()
	assert.Contains(t, rendered, "## [Unreleased]")
	assert.Contains(t, rendered, "## [v1.2.3] - 2025-01-20")
}

func TestMergeDaily_UpsertsByDateDescending(t *testing.T) {
	t.Parallel()

	out := MergeDaily("", model.DailySummary{Date: "2025-01-20", Paragraph: "day one", Achievements: []string{"a"}})
	out = MergeDaily(out, model.DailySummary{Date: "2025-01-21", Paragraph: "day two", Achievements: []string{"b"}})

	assert.Less(t, indexOf(out, "day two"), indexOf(out, "day one"))

	out = MergeDaily(out, model.DailySummary{Date: "2025-01-20", Paragraph: "day one revised"})
	assert.Contains(t, out, "day one revised")
	assert.NotContains(t, out, "day one\n")
}

func TestUnchanged_DetectsIdenticalSections(t *testing.T) {
	t.Parallel()

	section := "## 2025-01-20\n\nsome text\n"
	assert.True(t, Unchanged(section, "## 2025-01-20\n\nsome text"))
	assert.False(t, Unchanged(section, "## 2025-01-20\n\ndifferent text"))
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}

	return -1
}
