// Package tier3 implements the WeeklyNarrator (§4.8): the weekly narrative
// synthesized from a week's ordered Tier-2 outputs.
package tier3

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

// TemplateVersion invalidates Tier-3 cache entries when the prompt wording
// changes.
const TemplateVersion = "t3.v1"

var promptTmpl = template.Must(template.New("tier3").Parse(
	`Write a weekly development narrative (300-700 words) for the week of {{.Monday}}, plus a "Notable Changes" bullet list. Respond with JSON: {"title": string, "body": string, "notable_changes": [string]}.

Daily summaries in chronological order:
{{range .Days}}## {{.Date}}
{{.Paragraph}}
{{range .Achievements}}- {{.}}
{{end}}
{{end}}`))

type decodedNarrative struct {
	Title          string   `json:"title"`
	Body           string   `json:"body"`
	NotableChanges []string `json:"notable_changes"`
}

var tier3Schema = decode.SchemaDescriptor{Raw: `{
	"type": "object",
	"required": ["title", "body", "notable_changes"],
	"properties": {
		"title": {"type": "string"},
		"body": {"type": "string"},
		"notable_changes": {"type": "array", "items": {"type": "string"}}
	}
}`}

// Narrator produces a WeeklyNarrative from a week's ordered DailySummary
// values via the QUALITY tier.
type Narrator struct {
	Gateway *llm.Gateway
	Cache   *cache.Cache
}

// Narrate summarizes week using its date-ordered daily summaries.
func (n *Narrator) Narrate(ctx context.Context, week model.WeekGroup, summaries []model.DailySummary) (model.WeeklyNarrative, error) {
	key := cache.Key("T3", TemplateVersion, dateOrderedKey(summaries)...)

	payload, err := n.Cache.GetOrCompute(ctx, key, func(ctx context.Context) ([]byte, error) {
		return n.compute(ctx, week, summaries)
	})
	if err != nil {
		return model.WeeklyNarrative{}, err
	}

	var d decodedNarrative
	if err := json.Unmarshal(payload, &d); err != nil {
		return model.WeeklyNarrative{}, fmt.Errorf("tier3: unmarshal cached narrative: %w", err)
	}

	return model.WeeklyNarrative{
		WeekID:         week.ID(),
		Title:          d.Title,
		Body:           d.Body,
		NotableChanges: d.NotableChanges,
	}, nil
}

func (n *Narrator) compute(ctx context.Context, week model.WeekGroup, summaries []model.DailySummary) ([]byte, error) {
	var buf bytes.Buffer

	if err := promptTmpl.Execute(&buf, struct {
		Monday string
		Days   []model.DailySummary
	}{Monday: week.Monday, Days: summaries}); err != nil {
		return nil, fmt.Errorf("tier3: render prompt: %w", err)
	}

	raw, err := n.Gateway.Generate(ctx, llm.QUALITY, buf.String())
	if err != nil {
		return nil, err
	}

	var d decodedNarrative
	if err := decode.Decode(raw, tier3Schema, &d); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("tier3: marshal narrative: %w", err)
	}

	return payload, nil
}

// dateOrderedKey builds the ordered Tier-2-output key material (§4.8):
// summaries are already date-ordered by the caller (the Orchestrator).
func dateOrderedKey(summaries []model.DailySummary) []string {
	inputs := make([]string, 0, len(summaries)*2)

	for _, s := range summaries {
		inputs = append(inputs, s.Date, s.Paragraph)
	}

	return inputs
}
