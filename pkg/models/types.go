package models

import (
	"time"
)

/*
LOAD → raw tabular data as read from the warehouse.
*/

// Table is a column-ordered batch of rows as materialized from the data
// source. A nil cell means the value was missing (SQL NULL). The column
// set is whatever the query returned; it may be a superset of the
// required feature columns.
type Table struct {
	Columns []string
	Rows    [][]any
}

// ColumnIndex returns the position of the named column, or -1.
func (t Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// NumRows returns the number of rows in the table.
func (t Table) NumRows() int { return len(t.Rows) }

// Clone returns a deep copy of the table. Cleaning works on a clone so
// the input batch is never mutated in place.
func (t Table) Clone() Table {
	out := Table{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([][]any, len(t.Rows)),
	}
	for i, row := range t.Rows {
		out.Rows[i] = append([]any(nil), row...)
	}
	return out
}

/*
SCORE → one output row per customer.
*/

// ScoredRecord is the final output unit. Index is the 0-based contiguous
// position within the batch, reset by the formatter regardless of any
// source row numbering.
type ScoredRecord struct {
	Index            int
	CustomerID       int64
	PreviousPurchase time.Time
	Probability      float64
	Decile           int
}

/*
CONFIG → parameters for one scoring run.
*/

// RunConfig holds the parameters passed to the pipeline entrypoint.
type RunConfig struct {
	Query       string // SQL passed through to the source verbatim
	OutputTable string // warehouse table receiving appended scores
	Upload      bool   // append results to the warehouse sink
	CSVPath     string // when non-empty, also write a local CSV
	Verbose     bool   // per-stage progress logging
}

// RunStats summarizes one completed run.
type RunStats struct {
	RunID              string
	RecordsIn          int
	RecordsOut         int
	MissingFilled      int
	NegativesCorrected int
	MeanProbability    float64
	DecileCounts       [10]int // index 0 = decile 1
}
