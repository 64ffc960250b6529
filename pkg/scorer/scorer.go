// Package scorer applies the frozen classifier to a cleaned batch and
// derives the positive-class purchase probability per customer.
package scorer

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"time-to-shop/pkg/classifier"
	"time-to-shop/pkg/models"
	"time-to-shop/pkg/schema"
)

// ErrModelNotLoaded is returned when scoring is attempted before a
// classifier has been supplied.
var ErrModelNotLoaded = errors.New("classifier model not loaded")

// MissingFeatureError names every required feature column absent from
// the input table. It is raised before the classifier is invoked.
type MissingFeatureError struct {
	Columns []string
}

func (e *MissingFeatureError) Error() string {
	return fmt.Sprintf("missing required features: %s", strings.Join(e.Columns, ", "))
}

// Scorer holds the immutable classifier for one run.
type Scorer struct {
	clf      classifier.Classifier
	features []string
	logger   *slog.Logger
}

// New builds a Scorer over the run's classifier. The feature matrix is
// built in the order the classifier declares; a classifier without a
// declaration gets the fixed training order from the schema.
func New(clf classifier.Classifier, logger *slog.Logger) *Scorer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	features := schema.FeatureColumns
	if d, ok := clf.(interface{ Features() []string }); ok {
		features = d.Features()
	}
	return &Scorer{clf: clf, features: features, logger: logger}
}

// Score returns one purchase probability per input row, positionally
// aligned with the table. Columns may appear in any order; every
// required feature must be present and non-null (guaranteed by the
// cleaner).
func (s *Scorer) Score(t models.Table) ([]float64, error) {
	X, err := s.featureMatrix(t)
	if err != nil {
		return nil, err
	}
	probs, err := s.positiveClass(X)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("scored batch", "records", len(probs))
	return probs, nil
}

// ScoreWithClass is the metadata variant: positive-class probability
// plus the hard predicted class per record. The feature matrix is
// extracted once and fed to both estimators.
func (s *Scorer) ScoreWithClass(t models.Table) ([]float64, []int, error) {
	X, err := s.featureMatrix(t)
	if err != nil {
		return nil, nil, err
	}
	probs, err := s.positiveClass(X)
	if err != nil {
		return nil, nil, err
	}
	classes, err := s.clf.PredictClass(X)
	if err != nil {
		return nil, nil, fmt.Errorf("predict class: %w", err)
	}
	if len(classes) != len(probs) {
		return nil, nil, fmt.Errorf("predict class: got %d labels for %d records", len(classes), len(probs))
	}
	return probs, classes, nil
}

func (s *Scorer) positiveClass(X [][]float64) ([]float64, error) {
	proba, err := s.clf.PredictProba(X)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	if len(proba) != len(X) {
		return nil, fmt.Errorf("predict: got %d probability rows for %d records", len(proba), len(X))
	}

	out := make([]float64, len(proba))
	for i, dist := range proba {
		if len(dist) < 2 {
			return nil, fmt.Errorf("predict: row %d has %d classes, want 2", i, len(dist))
		}
		p := dist[1]
		if p < 0 || p > 1 {
			return nil, fmt.Errorf("predict: row %d probability %v out of [0,1]", i, p)
		}
		out[i] = p
	}
	return out, nil
}

func (s *Scorer) featureMatrix(t models.Table) ([][]float64, error) {
	if s.clf == nil {
		return nil, ErrModelNotLoaded
	}

	idx := make([]int, len(s.features))
	var missing []string
	for i, col := range s.features {
		ci := t.ColumnIndex(col)
		if ci < 0 {
			missing = append(missing, col)
			continue
		}
		idx[i] = ci
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &MissingFeatureError{Columns: missing}
	}

	X := make([][]float64, t.NumRows())
	for ri, row := range t.Rows {
		x := make([]float64, len(idx))
		for fi, ci := range idx {
			v, err := models.AsFloat(row[ci])
			if err != nil {
				return nil, fmt.Errorf("feature %s row %d: %w", s.features[fi], ri, err)
			}
			x[fi] = v
		}
		X[ri] = x
	}
	return X, nil
}
