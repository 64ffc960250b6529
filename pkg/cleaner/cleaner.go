// Package cleaner normalizes a raw warehouse batch into a well-typed,
// fully populated feature table.
package cleaner

import (
	"fmt"
	"log/slog"

	"time-to-shop/pkg/models"
	"time-to-shop/pkg/schema"
)

// Stats reports what cleaning touched. Counts are observable for
// logging and metrics; they never change control flow.
type Stats struct {
	Filled             map[string]int // per-column missing values filled
	NegativesCorrected map[string]int // per-column negatives clamped to 0
}

// TotalFilled sums filled cells across columns.
func (s Stats) TotalFilled() int {
	n := 0
	for _, v := range s.Filled {
		n += v
	}
	return n
}

// TotalNegativesCorrected sums clamped cells across columns.
func (s Stats) TotalNegativesCorrected() int {
	n := 0
	for _, v := range s.NegativesCorrected {
		n += v
	}
	return n
}

// Clean applies, in order: missing-value fills per the plan, negative
// clamping on the designated monetary columns, then type coercion (key
// columns to opaque identifiers, integer columns to truncated ints).
// The input table is never mutated; the returned table is a clone.
// Running Clean on already-clean data is a no-op beyond the clone.
func Clean(t models.Table, plan map[string]schema.FillPolicy, logger *slog.Logger) (models.Table, Stats, error) {
	out := t.Clone()
	stats := Stats{
		Filled:             make(map[string]int),
		NegativesCorrected: make(map[string]int),
	}

	for ci, col := range out.Columns {
		policy, ok := plan[col]
		if !ok {
			// defined default, not an error
			policy = schema.FillGeneric
		}
		fill := policy.Value()
		for _, row := range out.Rows {
			if row[ci] == nil {
				row[ci] = fill
				stats.Filled[col]++
			}
		}
	}

	for _, col := range schema.ClampedColumns {
		ci := out.ColumnIndex(col)
		if ci < 0 {
			continue
		}
		for ri, row := range out.Rows {
			f, err := models.AsFloat(row[ci])
			if err != nil {
				return models.Table{}, stats, fmt.Errorf("clean %s row %d: %w", col, ri, err)
			}
			if f < 0 {
				row[ci] = float64(0)
				stats.NegativesCorrected[col]++
			}
		}
		if n := stats.NegativesCorrected[col]; n > 0 && logger != nil {
			logger.Warn("negative values clamped to zero", "column", col, "count", n)
		}
	}

	for _, col := range schema.KeyColumns {
		ci := out.ColumnIndex(col)
		if ci < 0 {
			continue
		}
		for ri, row := range out.Rows {
			s, err := models.AsString(row[ci])
			if err != nil {
				return models.Table{}, stats, fmt.Errorf("clean %s row %d: %w", col, ri, err)
			}
			row[ci] = s
		}
	}

	for _, col := range schema.IntColumns {
		ci := out.ColumnIndex(col)
		if ci < 0 {
			continue
		}
		for ri, row := range out.Rows {
			n, err := models.AsInt64(row[ci])
			if err != nil {
				return models.Table{}, stats, fmt.Errorf("clean %s row %d: %w", col, ri, err)
			}
			row[ci] = n
		}
	}

	return out, stats, nil
}
