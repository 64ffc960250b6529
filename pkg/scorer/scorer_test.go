package scorer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"time-to-shop/pkg/classifier"
	"time-to-shop/pkg/models"
	"time-to-shop/pkg/schema"
)

// stubClassifier scores each row by its first feature, scaled into
// [0,1] by the test.
type stubClassifier struct {
	probaFn func(X [][]float64) ([][]float64, error)
}

func (s *stubClassifier) PredictProba(X [][]float64) ([][]float64, error) {
	return s.probaFn(X)
}

func (s *stubClassifier) PredictClass(X [][]float64) ([]int, error) {
	proba, err := s.probaFn(X)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(proba))
	for i, d := range proba {
		if d[1] > d[0] {
			out[i] = 1
		}
	}
	return out, nil
}

func fullFeatureTable(rows ...float64) models.Table {
	t := models.Table{Columns: append([]string(nil), schema.FeatureColumns...)}
	for _, lead := range rows {
		row := make([]any, len(t.Columns))
		row[0] = lead
		for i := 1; i < len(row); i++ {
			row[i] = float64(i)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func scaled() *stubClassifier {
	return &stubClassifier{probaFn: func(X [][]float64) ([][]float64, error) {
		out := make([][]float64, len(X))
		for i, x := range X {
			p := x[0] / 100
			out[i] = []float64{1 - p, p}
		}
		return out, nil
	}}
}

func TestScore_PositiveClassRetained(t *testing.T) {
	s := New(scaled(), nil)
	probs, err := s.Score(fullFeatureTable(10, 90))
	require.NoError(t, err)
	require.Len(t, probs, 2)
	assert.InDelta(t, 0.1, probs[0], 1e-12)
	assert.InDelta(t, 0.9, probs[1], 1e-12)
}

func TestScore_ColumnsInAnyOrder(t *testing.T) {
	tbl := fullFeatureTable(42)
	// reverse the column order, keeping rows aligned
	for i, j := 0, len(tbl.Columns)-1; i < j; i, j = i+1, j-1 {
		tbl.Columns[i], tbl.Columns[j] = tbl.Columns[j], tbl.Columns[i]
		tbl.Rows[0][i], tbl.Rows[0][j] = tbl.Rows[0][j], tbl.Rows[0][i]
	}

	probs, err := New(scaled(), nil).Score(tbl)
	require.NoError(t, err)
	assert.InDelta(t, 0.42, probs[0], 1e-12)
}

func TestScore_ModelNotLoaded(t *testing.T) {
	s := New(nil, nil)
	_, err := s.Score(fullFeatureTable(1))
	assert.ErrorIs(t, err, ErrModelNotLoaded)
}

func TestScore_MissingFeatureNamed(t *testing.T) {
	tbl := fullFeatureTable(1)
	// drop one required feature column
	drop := "BBB_INSTORE_RFM_DECILE"
	idx := tbl.ColumnIndex(drop)
	tbl.Columns = append(tbl.Columns[:idx], tbl.Columns[idx+1:]...)
	for ri := range tbl.Rows {
		tbl.Rows[ri] = append(tbl.Rows[ri][:idx], tbl.Rows[ri][idx+1:]...)
	}

	_, err := New(scaled(), nil).Score(tbl)
	var mfe *MissingFeatureError
	require.ErrorAs(t, err, &mfe)
	assert.Equal(t, []string{drop}, mfe.Columns)
	assert.Contains(t, err.Error(), drop)
}

func TestScore_RejectsOutOfRangeProbability(t *testing.T) {
	bad := &stubClassifier{probaFn: func(X [][]float64) ([][]float64, error) {
		return [][]float64{{-0.2, 1.2}}, nil
	}}
	_, err := New(bad, nil).Score(fullFeatureTable(1))
	assert.ErrorContains(t, err, "out of [0,1]")
}

func TestScore_RejectsLengthMismatch(t *testing.T) {
	bad := &stubClassifier{probaFn: func(X [][]float64) ([][]float64, error) {
		return [][]float64{{0.5, 0.5}}, nil
	}}
	_, err := New(bad, nil).Score(fullFeatureTable(1, 2))
	assert.Error(t, err)
}

func TestScore_ClassifierErrorPropagates(t *testing.T) {
	bad := &stubClassifier{probaFn: func(X [][]float64) ([][]float64, error) {
		return nil, fmt.Errorf("backend exploded")
	}}
	_, err := New(bad, nil).Score(fullFeatureTable(1))
	assert.ErrorContains(t, err, "backend exploded")
}

func TestScoreWithClass(t *testing.T) {
	probs, classes, err := New(scaled(), nil).ScoreWithClass(fullFeatureTable(10, 90))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, classes)
	assert.InDelta(t, 0.9, probs[1], 1e-12)
}

// declaringStub additionally declares its own feature order, the way
// a loaded model artifact does.
type declaringStub struct {
	stubClassifier
	features []string
}

func (d *declaringStub) Features() []string { return d.features }

func TestScore_HonorsDeclaredFeatureOrder(t *testing.T) {
	// model trained with the schema order reversed
	declared := make([]string, len(schema.FeatureColumns))
	for i, c := range schema.FeatureColumns {
		declared[len(declared)-1-i] = c
	}
	clf := &declaringStub{stubClassifier: *scaled(), features: declared}

	// table in schema order: SALES_6M=100, MARITAL_STAT (declared
	// first) = 7, everything else 1
	tbl := models.Table{Columns: append([]string(nil), schema.FeatureColumns...)}
	row := make([]any, len(tbl.Columns))
	for i := range row {
		row[i] = float64(1)
	}
	row[0] = float64(100)        // SALES_6M
	row[len(row)-1] = float64(7) // MARITAL_STAT
	tbl.Rows = append(tbl.Rows, row)

	probs, err := New(clf, nil).Score(tbl)
	require.NoError(t, err)
	// x[0] must carry MARITAL_STAT, not SALES_6M
	assert.InDelta(t, 0.07, probs[0], 1e-12)
}

func TestScore_DeclaredFeatureMissingIsNamed(t *testing.T) {
	clf := &declaringStub{stubClassifier: *scaled(), features: []string{"SALES_6M", "NOT_IN_BATCH"}}
	_, err := New(clf, nil).Score(fullFeatureTable(1))
	var mfe *MissingFeatureError
	require.ErrorAs(t, err, &mfe)
	assert.Equal(t, []string{"NOT_IN_BATCH"}, mfe.Columns)
}

func TestScore_ArtifactDeclaredOrderWins(t *testing.T) {
	// single tree splitting on the artifact's feature 0 = FREQUENCY_6M:
	// > 50 means certain purchase
	doc := `{
	  "model_type": "tree_ensemble",
	  "version": 1,
	  "n_classes": 2,
	  "features": ["FREQUENCY_6M", "SALES_6M"],
	  "trees": [
	    {"nodes": [
	      {"feature": 0, "threshold": 50, "left": 1, "right": 2},
	      {"leaf": true, "classes": [1, 0]},
	      {"leaf": true, "classes": [0, 1]}
	    ]}
	  ]
	}`
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	f, err := classifier.Load(path)
	require.NoError(t, err)

	// batch columns in the opposite order of the declaration
	tbl := models.Table{
		Columns: []string{"SALES_6M", "FREQUENCY_6M"},
		Rows:    [][]any{{float64(0), float64(100)}},
	}
	probs, err := New(f, nil).Score(tbl)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, probs[0], 1e-12)
}

func TestMissingFeatureError_Is(t *testing.T) {
	err := error(&MissingFeatureError{Columns: []string{"A", "B"}})
	var mfe *MissingFeatureError
	assert.True(t, errors.As(err, &mfe))
	assert.Equal(t, "missing required features: A, B", err.Error())
}
