package classifier

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testArtifact = `{
  "model_type": "tree_ensemble",
  "version": 1,
  "n_classes": 2,
  "features": ["F1", "F2"],
  "trees": [
    {"nodes": [
      {"feature": 0, "threshold": 5, "left": 1, "right": 2},
      {"leaf": true, "classes": [3, 1]},
      {"leaf": true, "classes": [0, 4]}
    ]},
    {"nodes": [
      {"leaf": true, "classes": [1, 1]}
    ]}
  ]
}`

func writeArtifact(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func TestLoad_And_PredictProba(t *testing.T) {
	f, err := Load(writeArtifact(t, testArtifact))
	require.NoError(t, err)
	assert.Equal(t, []string{"F1", "F2"}, f.Features())

	proba, err := f.PredictProba([][]float64{{2, 0}, {9, 0}})
	require.NoError(t, err)
	require.Len(t, proba, 2)

	// tree 1 leaf (3,1) → (0.75,0.25); tree 2 → (0.5,0.5); mean (0.625,0.375)
	assert.InDelta(t, 0.625, proba[0][0], 1e-12)
	assert.InDelta(t, 0.375, proba[0][1], 1e-12)
	// tree 1 leaf (0,4) → (0,1); mean (0.25,0.75)
	assert.InDelta(t, 0.75, proba[1][1], 1e-12)
}

func TestPredictProba_BoundaryGoesLeft(t *testing.T) {
	f, err := Load(writeArtifact(t, testArtifact))
	require.NoError(t, err)

	proba, err := f.PredictProba([][]float64{{5, 0}})
	require.NoError(t, err)
	assert.InDelta(t, 0.375, proba[0][1], 1e-12)
}

func TestPredictClass(t *testing.T) {
	f, err := Load(writeArtifact(t, testArtifact))
	require.NoError(t, err)

	classes, err := f.PredictClass([][]float64{{2, 0}, {9, 0}})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, classes)
}

func TestPredictProba_WrongWidth(t *testing.T) {
	f, err := Load(writeArtifact(t, testArtifact))
	require.NoError(t, err)

	_, err = f.PredictProba([][]float64{{1, 2, 3}})
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoad_SchemaRejectsWrongModelType(t *testing.T) {
	doc := `{"model_type": "linear", "version": 1, "n_classes": 2,
	  "features": ["F1"], "trees": [{"nodes": [{"leaf": true, "classes": [1, 1]}]}]}`
	_, err := Load(writeArtifact(t, doc))
	assert.ErrorContains(t, err, "model artifact invalid")
}

func TestLoad_SchemaRejectsMissingTrees(t *testing.T) {
	doc := `{"model_type": "tree_ensemble", "version": 1, "n_classes": 2, "features": ["F1"]}`
	_, err := Load(writeArtifact(t, doc))
	assert.ErrorContains(t, err, "model artifact invalid")
}

func TestLoad_RejectsBadChildReference(t *testing.T) {
	doc := `{"model_type": "tree_ensemble", "version": 1, "n_classes": 2,
	  "features": ["F1"],
	  "trees": [{"nodes": [{"feature": 0, "threshold": 1, "left": 5, "right": 6}]}]}`
	_, err := Load(writeArtifact(t, doc))
	assert.ErrorContains(t, err, "child reference")
}

func TestLoad_RejectsLeafClassMismatch(t *testing.T) {
	doc := `{"model_type": "tree_ensemble", "version": 1, "n_classes": 2,
	  "features": ["F1"],
	  "trees": [{"nodes": [{"leaf": true, "classes": [1]}]}]}`
	_, err := Load(writeArtifact(t, doc))
	assert.ErrorContains(t, err, "classes")
}
