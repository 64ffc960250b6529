// Package classifier abstracts the frozen, pre-trained model behind a
// probability-estimation interface, plus a concrete tree-ensemble
// implementation loaded from a JSON artifact.
package classifier

// Classifier is the capability the scoring pipeline requires: batch
// class-probability estimation over feature vectors. PredictClass is
// only needed by the predict-with-metadata variant.
//
// Implementations must be immutable for the duration of a run.
type Classifier interface {
	// PredictProba returns, per input row, the probability mass for
	// each class, index 0 = negative, index 1 = positive.
	PredictProba(X [][]float64) ([][]float64, error)
	// PredictClass returns the hard predicted class label per row.
	PredictClass(X [][]float64) ([]int, error)
}
