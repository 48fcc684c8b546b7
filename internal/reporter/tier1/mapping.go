package tier1

import (
	"encoding/json"
	"fmt"

	"github.com/paudley/git-ai-reporter/internal/reporter/model"
)

func marshalAnalysis(d decodedAnalysis) ([]byte, error) {
	payload, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("tier1: marshal analysis: %w", err)
	}

	return payload, nil
}

func unmarshalAnalysis(fingerprint string, payload []byte) (model.CommitAnalysis, error) {
	var d decodedAnalysis

	if err := json.Unmarshal(payload, &d); err != nil {
		return model.CommitAnalysis{}, fmt.Errorf("tier1: unmarshal cached analysis: %w", err)
	}

	return toCommitAnalysis(fingerprint, d), nil
}

func toCommitAnalysis(fingerprint string, d decodedAnalysis) model.CommitAnalysis {
	changes := make([]model.Change, 0, len(d.Changes))
	candidates := make([]model.Category, 0, len(d.Changes)+1)

	if cat, ok := model.ParseCategory(d.Category); ok {
		candidates = append(candidates, cat)
	}

	for _, c := range d.Changes {
		cat, _ := model.ParseCategory(c.Category)
		changes = append(changes, model.Change{
			Description: c.Description,
			Category:    cat,
			Impact:      model.ParseImpact(c.Impact),
		})
		candidates = append(candidates, cat)
	}

	category := model.ResolveTie(candidates)

	return model.CommitAnalysis{
		Fingerprint: fingerprint,
		Category:    category,
		Trivial:     model.IsTrivial(category, changes),
		Changes:     changes,
	}
}

// SynthesizeTrivial builds the degenerate CommitAnalysis for a commit that
// bypassed Tier 1 entirely: candidate-trivial via the RepositoryLens filter,
// or unanalyzable due to a ReaderError (§7).
func SynthesizeTrivial(fingerprint, note string) model.CommitAnalysis {
	return model.CommitAnalysis{
		Fingerprint: fingerprint,
		Category:    model.CategoryChore,
		Trivial:     true,
		Changes:     nil,
		Note:        note,
	}
}
