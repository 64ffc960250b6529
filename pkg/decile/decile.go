// Package decile maps a purchase probability to one of 10 ranked
// buckets over fixed, model-frozen bin edges.
package decile

import (
	"fmt"
	"math"

	"time-to-shop/pkg/schema"
)

// ValueOutOfRangeError reports a probability outside [0,1]. The
// assigner never clamps: an out-of-range value is an upstream scorer
// defect, not data to be repaired.
type ValueOutOfRangeError struct {
	Value float64
}

func (e *ValueOutOfRangeError) Error() string {
	return fmt.Sprintf("probability %v out of range [0,1]", e.Value)
}

// Assign returns the decile for a probability. Bin i (0-indexed)
// covers (DecileBins[i], DecileBins[i+1]] and yields decile i+1, so
// decile 10 is the most likely to purchase. Bin 0 includes 0.0. The
// mapping is monotone non-decreasing in the probability.
func Assign(p float64) (int, error) {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return 0, &ValueOutOfRangeError{Value: p}
	}
	for i := 0; i < 10; i++ {
		if p <= schema.DecileBins[i+1] {
			return i + 1, nil
		}
	}
	// p == 1.0 is caught above; unreachable
	return 10, nil
}

// AssignAll buckets a probability slice, positionally aligned.
func AssignAll(probs []float64) ([]int, error) {
	out := make([]int, len(probs))
	for i, p := range probs {
		d, err := Assign(p)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out[i] = d
	}
	return out, nil
}
