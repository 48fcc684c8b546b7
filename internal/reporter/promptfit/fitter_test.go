package promptfit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFit_SingleChunkWhenWithinBudget(t *testing.T) {
	t.Parallel()

	records := []Record{{Key: "a", Text: "small"}}

	chunks, err := Fit(records, 0, 1000, NewRatioCounter())

	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, 1, chunks[0].Count)
}

func TestFit_OversizedRecordFails(t *testing.T) {
	t.Parallel()

	huge := strings.Repeat("x", 10_000)
	records := []Record{{Key: "a", Text: huge}}

	_, err := Fit(records, 0, 100, NewRatioCounter())

	require.Error(t, err)
}

func TestFit_ProducesMultipleChunksWithOverlap(t *testing.T) {
	t.Parallel()

	counter := NewRatioCounter()

	// Build enough records that the total far exceeds the budget.
	records := make([]Record, 0, 200)
	for i := range 200 {
		records = append(records, Record{
			Key:  keyFor(i),
			Text: strings.Repeat("diffline\n", 50),
		})
	}

	const budget = 2000

	chunks, err := Fit(records, 0, budget, counter)

	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(chunks), 2, "oversize input should split into multiple chunks")

	for _, c := range chunks {
		assert.Equal(t, len(chunks), c.Count)
	}
}

func TestFit_Recombine_IsLosslessAndDeduplicated(t *testing.T) {
	t.Parallel()

	counter := NewRatioCounter()

	records := make([]Record, 0, 50)
	for i := range 50 {
		records = append(records, Record{Key: keyFor(i), Text: strings.Repeat("x", 80)})
	}

	chunks, err := Fit(records, 0, 500, counter)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	chunkRecords := make([][]Record, len(chunks))
	for i, c := range chunks {
		chunkRecords[i] = c.Records
	}

	recombined := Recombine(chunkRecords)

	require.Len(t, recombined, len(records), "no record lost or duplicated")

	for i, r := range recombined {
		assert.Equal(t, records[i].Key, r.Key)
		assert.Equal(t, records[i].Text, r.Text)
	}
}

func TestFit_Deterministic(t *testing.T) {
	t.Parallel()

	records := []Record{{Key: "a", Text: "hello"}, {Key: "b", Text: "world"}}

	c1, err1 := Fit(records, 0, 10, NewRatioCounter())
	c2, err2 := Fit(records, 0, 10, NewRatioCounter())

	require.NoError(t, err1)
	require.NoError(t, err2)
	require.Equal(t, len(c1), len(c2))
	assert.Equal(t, c1[0].Seed, c2[0].Seed)
}

func keyFor(i int) string {
	return "rec-" + string(rune('a'+i%26)) + string(rune('0'+i/26))
}
