// Package tier1 implements the CommitAnalyzer (§4.6): per-commit
// classification and the triviality filter.
package tier1

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/paudley/git-ai-reporter/internal/reporter/cache"
	"github.com/paudley/git-ai-reporter/internal/reporter/decode"
	"github.com/paudley/git-ai-reporter/internal/reporter/llm"
	"github.com/paudley/git-ai-reporter/internal/reporter/model"
	"github.com/paudley/git-ai-reporter/internal/reporter/promptfit"
)

// TemplateVersion invalidates Tier-1 cache entries when the prompt wording
// changes.
const TemplateVersion = "t1.v1"

var promptTmpl = template.Must(template.New("tier1").Parse(
	`Classify this commit. For each change, echo back the exact "source" key of the file section it was derived from. Respond with JSON matching the schema: {"category": string, "changes": [{"source": string, "description": string, "category": string, "impact": string}]}.

Commit message:
{{.Message}}

File changes (chunk {{.ChunkIndex}}/{{.ChunkCount}}):
{{range .Files}}--- source={{.Path}} ({{.Kind}}) ---
{{.Diff}}
{{end}}`))

// decodedChange is the wire shape produced by the model, prior to mapping
// onto model.Change. Source echoes the (file, hunk_start) record key it was
// derived from, used to deduplicate across overlapping chunks (Scenario C).
type decodedChange struct {
	Source      string `json:"source"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Impact      string `json:"impact"`
}

type decodedAnalysis struct {
	Category string          `json:"category"`
	Changes  []decodedChange `json:"changes"`
}

var tier1Schema = decode.SchemaDescriptor{Raw: `{
	"type": "object",
	"required": ["category", "changes"],
	"properties": {
		"category": {"type": "string"},
		"changes": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["source", "description", "category"],
				"properties": {
					"source": {"type": "string"},
					"description": {"type": "string"},
					"category": {"type": "string"},
					"impact": {"type": "string"}
				}
			}
		}
	}
}`}

// Analyzer classifies individual commits via the FAST tier.
type Analyzer struct {
	Gateway *llm.Gateway
	Cache   *cache.Cache
	Counter promptfit.TokenCounter
	Budget  int // token budget for a single Tier-1 prompt
}

// candidateTrivialNote describes a commit that bypassed Tier 1 via the
// RepositoryLens prefix/path filter. Nothing references it: the analyses
// the lens synthesizes for such commits carry an empty Note.
const candidateTrivialNote = "bypassed Tier 1: matched trivial prefix or path pattern"

// Analyze produces a CommitAnalysis for c, consulting the cache first and
// falling back to an LLM call (possibly chunked by PromptFitter) on a miss.
func (a *Analyzer) Analyze(ctx context.Context, c model.Commit) (model.CommitAnalysis, error) {
	key := cache.Key("T1", TemplateVersion, c.Fingerprint)

	payload, err := a.Cache.GetOrCompute(ctx, key, func(ctx context.Context) ([]byte, error) {
		return a.compute(ctx, c)
	})
	if err != nil {
		return model.CommitAnalysis{}, err
	}

	return unmarshalAnalysis(c.Fingerprint, payload)
}

func (a *Analyzer) compute(ctx context.Context, c model.Commit) ([]byte, error) {
	records := make([]promptfit.Record, 0, len(c.Files))

	for _, f := range c.Files {
		records = append(records, promptfit.Record{
			Key:  f.Path + "|0",
			Text: fmt.Sprintf("--- %s (%s) ---\n%s\n", f.Path, f.Kind, f.Diff),
		})
	}

	overhead := a.Counter.Count(c.Message) + 256

	chunks, err := promptfit.Fit(records, overhead, a.Budget, a.Counter)
	if err != nil {
		return nil, err
	}

	merged := decodedAnalysis{}
	seen := make(map[string]struct{})

	for _, chunk := range chunks {
		prompt, renderErr := renderPrompt(c, chunk)
		if renderErr != nil {
			return nil, renderErr
		}

		raw, genErr := a.Gateway.Generate(ctx, llm.FAST, prompt)
		if genErr != nil {
			return nil, genErr
		}

		var partial decodedAnalysis
		if decErr := decode.Decode(raw, tier1Schema, &partial); decErr != nil {
			return nil, decErr
		}

		if merged.Category == "" {
			merged.Category = partial.Category
		}

		for _, ch := range partial.Changes {
			dedupeKey := ch.Source
			if dedupeKey == "" {
				dedupeKey = ch.Description
			}

			if _, dup := seen[dedupeKey]; dup {
				continue
			}

			seen[dedupeKey] = struct{}{}
			merged.Changes = append(merged.Changes, ch)
		}
	}

	return marshalAnalysis(merged)
}

func renderPrompt(c model.Commit, chunk promptfit.Chunk) (string, error) {
	var buf bytes.Buffer

	data := struct {
		Message    string
		ChunkIndex int
		ChunkCount int
		Files      []struct {
			Path string
			Kind string
			Diff string
		}
	}{
		Message:    c.Message,
		ChunkIndex: chunk.Index + 1,
		ChunkCount: chunk.Count,
	}

	for _, r := range chunk.Records {
		data.Files = append(data.Files, struct {
			Path string
			Kind string
			Diff string
		}{Path: r.Key, Diff: r.Text})
	}

	if err := promptTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("tier1: render prompt: %w", err)
	}

	return buf.String(), nil
}

