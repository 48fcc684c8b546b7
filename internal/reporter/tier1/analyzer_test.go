package tier1

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paudley/git-ai-reporter/internal/reporter/cache"
	"github.com/paudley/git-ai-reporter/internal/reporter/llm"
	"github.com/paudley/git-ai-reporter/internal/reporter/model"
	"github.com/paudley/git-ai-reporter/internal/reporter/promptfit"
)

type scriptedClient struct {
	responses []string
	calls     int
}

func (s *scriptedClient) Generate(_ context.Context, _, _ string, _ int, _ float64) (string, error) {
	if s.calls >= len(s.responses) {
		return "", fmt.Errorf("scriptedClient: no more responses")
	}

	out := s.responses[s.calls]
	s.calls++

	return out, nil
}

func newTestAnalyzer(t *testing.T, client llm.Client, budget int) *Analyzer {
	t.Helper()

	c, err := cache.New(t.TempDir(), 0, 0)
	require.NoError(t, err)

	gw := llm.NewGateway(client, llm.Config{
		Models:      map[llm.Tier]llm.ModelConfig{llm.FAST: {Model: "fast", MaxOutputTokens: 2048}},
		Temperature: 0.1,
	})

	return &Analyzer{Gateway: gw, Cache: c, Counter: promptfit.NewRatioCounter(), Budget: budget}
}

func TestAnalyzer_Analyze_SingleChunkFeature(t *testing.T) {
	t.Parallel()

	resp := `{"category": "NEW_FEATURE", "changes": [{"source": "login.go|0", "description": "add login", "category": "NEW_FEATURE", "impact": "medium"}]}`
	client := &scriptedClient{responses: []string{resp}}

	a := newTestAnalyzer(t, client, 4096)

	commit := model.Commit{
		Fingerprint: "bbbb",
		Message:     "feat: add login",
		Files: []model.FileChange{
			{Path: "login.go", Kind: model.ChangeAdded, Diff: "+func Login() {}"},
		},
	}

	analysis, err := a.Analyze(context.Background(), commit)
	require.NoError(t, err)

	assert.Equal(t, model.CategoryNewFeature, analysis.Category)
	assert.False(t, analysis.Trivial)
	require.Len(t, analysis.Changes, 1)
	assert.Equal(t, "add login", analysis.Changes[0].Description)
	assert.Equal(t, 1, client.calls, "a single-chunk commit takes one LLM call")

	_, err = a.Analyze(context.Background(), commit)
	require.NoError(t, err)
	assert.Equal(t, 1, client.calls, "second Analyze call should hit the cache")
}

func TestAnalyzer_Analyze_OversizeCommitChunksAndDedups(t *testing.T) {
	t.Parallel()

	const fileCount = 40

	files := make([]model.FileChange, fileCount)
	responses := make([]string, 0)

	for i := range fileCount {
		path := fmt.Sprintf("file_%03d.go", i)
		files[i] = model.FileChange{
			Path: path,
			Kind: model.ChangeModified,
			Diff: strings.Repeat("+line of changed code in this file\n", 200),
		}
	}

	client := &scriptedClient{}

	a := newTestAnalyzer(t, client, 4000)

	commit := model.Commit{Fingerprint: "oversize-1", Message: "refactor: large sweep", Files: files}

	// Build plausible per-chunk responses lazily once Fit has determined the
	// chunk plan, by first computing chunks the same way Analyze will.
	records := make([]promptfit.Record, 0, len(files))
	for _, f := range files {
		records = append(records, promptfit.Record{Key: f.Path + "|0", Text: fmt.Sprintf("--- %s (%s) ---\n%s\n", f.Path, f.Kind, f.Diff)})
	}

	counter := promptfit.NewRatioCounter()
	chunks, err := promptfit.Fit(records, counter.Count(commit.Message)+256, 4000, counter)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(chunks), 5, "expected the oversize commit to require several chunks")

	for _, ch := range chunks {
		var b strings.Builder

		b.WriteString(`{"category": "REFACTOR", "changes": [`)

		for i, r := range ch.Records {
			if i > 0 {
				b.WriteString(",")
			}

			b.WriteString(fmt.Sprintf(`{"source": %q, "description": "touched %s", "category": "REFACTOR", "impact": "low"}`, r.Key, r.Key))
		}

		b.WriteString(`]}`)
		responses = append(responses, b.String())
	}

	client.responses = responses

	analysis, err := a.Analyze(context.Background(), commit)
	require.NoError(t, err)

	assert.Equal(t, model.CategoryRefactor, analysis.Category)
	assert.Len(t, analysis.Changes, fileCount, "overlap records must be deduplicated by source key")
	assert.Equal(t, len(chunks), client.calls, "one LLM call per chunk")

	seen := make(map[string]int)
	for _, ch := range analysis.Changes {
		seen[ch.Description]++
	}

	for desc, n := range seen {
		assert.Equal(t, 1, n, "change %q must appear exactly once", desc)
	}
}
