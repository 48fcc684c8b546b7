package decode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paudley/git-ai-reporter/internal/reporter/errs"
)

type sample struct {
	Category string `json:"category"`
	Trivial  bool   `json:"trivial"`
}

func TestDecode_PlainJSON(t *testing.T) {
	t.Parallel()

	var out sample

	err := Decode(`{"category":"BUG_FIX","trivial":false}`, SchemaDescriptor{}, &out)

	require.NoError(t, err)
	assert.Equal(t, "BUG_FIX", out.Category)
}

func TestDecode_AirlockSkipsSurroundingProse(t *testing.T) {
	t.Parallel()

	raw := "Sure, here is the analysis:\n\n{\"category\":\"NEW_FEATURE\",\"trivial\":false}\n\nLet me know if you need more."

	var out sample

	err := Decode(raw, SchemaDescriptor{}, &out)

	require.NoError(t, err)
	assert.Equal(t, "NEW_FEATURE", out.Category)
}

func TestDecode_CodeFenceWrapper(t *testing.T) {
	t.Parallel()

	raw := "```json\n{\"category\":\"REFACTOR\",\"trivial\":true}\n```"

	var out sample

	err := Decode(raw, SchemaDescriptor{}, &out)

	require.NoError(t, err)
	assert.True(t, out.Trivial)
}

func TestDecode_TrailingCommaRepaired(t *testing.T) {
	t.Parallel()

	raw := `{"category":"CHORE","trivial":true,}`

	var out sample

	err := Decode(raw, SchemaDescriptor{}, &out)

	require.NoError(t, err)
	assert.Equal(t, "CHORE", out.Category)
}

func TestDecode_NoCandidateReturnsDecodeError(t *testing.T) {
	t.Parallel()

	var out sample

	err := Decode("no json here at all", SchemaDescriptor{}, &out)

	require.Error(t, err)

	var decErr *errs.DecodeError

	require.ErrorAs(t, err, &decErr)
	assert.Equal(t, errs.DecodeKindNoCandidate, decErr.Kind)
}

func TestDecode_SchemaInvalidDetected(t *testing.T) {
	t.Parallel()

	schema := `{
		"type": "object",
		"required": ["category"],
		"properties": {"category": {"type": "string"}}
	}`

	var out sample

	err := Decode(`{"trivial":true}`, SchemaDescriptor{Raw: schema}, &out)

	require.Error(t, err)

	var decErr *errs.DecodeError

	require.ErrorAs(t, err, &decErr)
	assert.Equal(t, errs.DecodeKindSchemaInvalid, decErr.Kind)
}
