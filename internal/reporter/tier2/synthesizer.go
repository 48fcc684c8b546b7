// Package tier2 implements the DailySynthesizer (§4.7): per-day summary
// from the day's Tier-1 outputs plus its union diff.
package tier2

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/paudley/git-ai-reporter/internal/reporter/cache"
	"github.com/paudley/git-ai-reporter/internal/reporter/decode"
	"github.com/paudley/git-ai-reporter/internal/reporter/llm"
	"github.com/paudley/git-ai-reporter/internal/reporter/model"
)

// TemplateVersion invalidates Tier-2 cache entries when the prompt wording
// changes.
const TemplateVersion = "t2.v1"

const minorMaintenanceParagraph = "This was a minor maintenance day: all changes were trivial (documentation, tests, styling, or chores)."

var promptTmpl = template.Must(template.New("tier2").Parse(
	`Summarize this day's development activity in one paragraph plus a bullet list of achievements. Respond with JSON: {"paragraph": string, "achievements": [string]}.

Date: {{.Date}}

Commit classifications (chronological order):
{{range .Analyses}}- [{{.Category}}] {{range .Changes}}{{.Description}}; {{end}}
{{end}}

Union diff for context:
{{.UnionDiff}}
`))

type decodedSummary struct {
	Paragraph    string   `json:"paragraph"`
	Achievements []string `json:"achievements"`
}

var tier2Schema = decode.SchemaDescriptor{Raw: `{
	"type": "object",
	"required": ["paragraph", "achievements"],
	"properties": {
		"paragraph": {"type": "string"},
		"achievements": {"type": "array", "items": {"type": "string"}}
	}
}`}

// Synthesizer produces a DailySummary from the day's ordered Tier-1 outputs.
type Synthesizer struct {
	Gateway *llm.Gateway
	Cache   *cache.Cache
}

// Synthesize summarizes day using the chronologically ordered analyses of
// its commits and the day's union diff. If every analysis is trivial, no
// LLM call is made (§4.7).
func (s *Synthesizer) Synthesize(ctx context.Context, day model.DailyGroup, analyses []model.CommitAnalysis) (model.DailySummary, error) {
	if allTrivial(analyses) {
		return model.DailySummary{Date: day.Date, Paragraph: minorMaintenanceParagraph, AllTrivial: true}, nil
	}

	key := cache.Key("T2", TemplateVersion, cacheInputs(analyses)...)

	payload, err := s.Cache.GetOrCompute(ctx, key, func(ctx context.Context) ([]byte, error) {
		return s.compute(ctx, day, analyses)
	})
	if err != nil {
		return model.DailySummary{}, err
	}

	var d decodedSummary
	if err := json.Unmarshal(payload, &d); err != nil {
		return model.DailySummary{}, fmt.Errorf("tier2: unmarshal cached summary: %w", err)
	}

	return model.DailySummary{
		Date:         day.Date,
		Paragraph:    d.Paragraph,
		Achievements: d.Achievements,
		AllTrivial:   false,
	}, nil
}

func (s *Synthesizer) compute(ctx context.Context, day model.DailyGroup, analyses []model.CommitAnalysis) ([]byte, error) {
	var buf bytes.Buffer

	if err := promptTmpl.Execute(&buf, struct {
		Date      string
		Analyses  []model.CommitAnalysis
		UnionDiff string
	}{Date: day.Date, Analyses: analyses, UnionDiff: day.UnionDiff}); err != nil {
		return nil, fmt.Errorf("tier2: render prompt: %w", err)
	}

	raw, err := s.Gateway.Generate(ctx, llm.BALANCED, buf.String())
	if err != nil {
		return nil, err
	}

	var d decodedSummary
	if err := decode.Decode(raw, tier2Schema, &d); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("tier2: marshal summary: %w", err)
	}

	return payload, nil
}

func allTrivial(analyses []model.CommitAnalysis) bool {
	for _, a := range analyses {
		if !a.Trivial {
			return false
		}
	}

	return true
}

// cacheInputs builds the ordered (fingerprint, trivial_flag) key material
// (§4.7). Inputs are already in the caller's chronological commit order;
// the day's union diff is deliberately excluded since it is a deterministic
// function of the fingerprints.
func cacheInputs(analyses []model.CommitAnalysis) []string {
	inputs := make([]string, 0, len(analyses)*2)

	for _, a := range analyses {
		inputs = append(inputs, a.Fingerprint, trivialFlag(a.Trivial))
	}

	return inputs
}

func trivialFlag(trivial bool) string {
	if trivial {
		return "1"
	}

	return "0"
}
