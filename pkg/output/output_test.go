package output

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"time-to-shop/pkg/models"
)

func TestFormat_TypesAndOrder(t *testing.T) {
	prev := time.Date(2021, 6, 1, 10, 30, 0, 0, time.UTC)
	recs, err := Format(
		[]any{"101", int64(102)},
		[]any{prev, "2021-07-02 08:00:00"},
		[]float64{0.2, 0.8},
		[]int{2, 10},
	)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, int64(101), recs[0].CustomerID)
	assert.Equal(t, int64(102), recs[1].CustomerID)
	assert.Equal(t, prev, recs[0].PreviousPurchase)
	assert.Equal(t, 0, recs[0].Index)
	assert.Equal(t, 1, recs[1].Index)
	assert.Equal(t, 10, recs[1].Decile)
}

func TestFormat_MisalignedInputs(t *testing.T) {
	_, err := Format([]any{"1"}, []any{}, []float64{0.5}, []int{5})
	assert.Error(t, err)
}

func TestFormat_DecileOutOfRange(t *testing.T) {
	_, err := Format([]any{"1"}, []any{"2021-01-01"}, []float64{0.5}, []int{11})
	assert.Error(t, err)
}

func TestFormat_BadCustomerID(t *testing.T) {
	_, err := Format([]any{"abc"}, []any{"2021-01-01"}, []float64{0.5}, []int{5})
	assert.Error(t, err)
}

func TestCSV_RoundTrip(t *testing.T) {
	in := []models.ScoredRecord{
		{Index: 0, CustomerID: 9001, PreviousPurchase: time.Date(2021, 2, 3, 4, 5, 6, 0, time.UTC), Probability: 0.77079006, Decile: 9},
		{Index: 1, CustomerID: 9002, PreviousPurchase: time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC), Probability: 0.01, Decile: 1},
	}
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, WriteCSV(path, in))

	out, err := ReadCSV(path)
	require.NoError(t, err)
	require.Len(t, out, 2)
	for i := range in {
		assert.Equal(t, in[i].CustomerID, out[i].CustomerID)
		assert.Equal(t, in[i].Decile, out[i].Decile)
		assert.True(t, in[i].PreviousPurchase.Equal(out[i].PreviousPurchase))
		assert.InDelta(t, in[i].Probability, out[i].Probability, 1e-12)
		assert.Equal(t, i, out[i].Index)
	}
}

func TestWriteCSV_EmptyBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, WriteCSV(path, nil))

	_, err := ReadCSV(path)
	// header-only file parses to zero records
	require.NoError(t, err)
}
