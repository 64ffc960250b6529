// Package output assembles the final result set with enforced types
// and writes it to the local CSV sink.
package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"time-to-shop/pkg/models"
	"time-to-shop/pkg/schema"
)

// TimeLayout is the canonical datetime rendering of the sink schema.
const TimeLayout = "2006-01-02 15:04:05"

// Format builds the output records in input-batch order. Identity and
// temporal cells arrive as whatever the cleaned table holds; the
// formatter enforces the final types (integer id, canonical datetime,
// decile 1–10, float probability) and resets positional indexing to a
// contiguous 0-based sequence.
func Format(ids, purchases []any, probs []float64, deciles []int) ([]models.ScoredRecord, error) {
	n := len(ids)
	if len(purchases) != n || len(probs) != n || len(deciles) != n {
		return nil, fmt.Errorf("format: misaligned inputs (%d ids, %d purchases, %d probabilities, %d deciles)",
			len(ids), len(purchases), len(probs), len(deciles))
	}

	out := make([]models.ScoredRecord, n)
	for i := 0; i < n; i++ {
		id, err := models.AsInt64(ids[i])
		if err != nil {
			return nil, fmt.Errorf("format row %d: customer_id: %w", i, err)
		}
		prev, err := models.AsTime(purchases[i])
		if err != nil {
			return nil, fmt.Errorf("format row %d: previous_purchase: %w", i, err)
		}
		if deciles[i] < 1 || deciles[i] > 10 {
			return nil, fmt.Errorf("format row %d: decile %d out of range", i, deciles[i])
		}
		out[i] = models.ScoredRecord{
			Index:            i,
			CustomerID:       id,
			PreviousPurchase: prev,
			Probability:      probs[i],
			Decile:           deciles[i],
		}
	}
	return out, nil
}

// WriteCSV writes the batch to a local file with the sink's 4-column
// schema. The file is written whole or not at all: any error removes
// the partial file.
func WriteCSV(path string, recs []models.ScoredRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}

	w := csv.NewWriter(f)
	err = w.Write(schema.OutputColumns)
	for _, r := range recs {
		if err != nil {
			break
		}
		err = w.Write([]string{
			strconv.FormatInt(r.CustomerID, 10),
			r.PreviousPurchase.Format(TimeLayout),
			strconv.Itoa(r.Decile),
			strconv.FormatFloat(r.Probability, 'g', -1, 64),
		})
	}
	if err == nil {
		w.Flush()
		err = w.Error()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// ReadCSV parses a file previously written by WriteCSV. Used by
// round-trip checks and by consumers of the local sink.
func ReadCSV(path string) ([]models.ScoredRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("read csv: empty file")
	}

	recs := make([]models.ScoredRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) != len(schema.OutputColumns) {
			return nil, fmt.Errorf("read csv: row %d has %d columns", i, len(row))
		}
		id, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("read csv: row %d: %w", i, err)
		}
		prev, err := time.Parse(TimeLayout, row[1])
		if err != nil {
			return nil, fmt.Errorf("read csv: row %d: %w", i, err)
		}
		dec, err := strconv.Atoi(row[2])
		if err != nil {
			return nil, fmt.Errorf("read csv: row %d: %w", i, err)
		}
		p, err := strconv.ParseFloat(row[3], 64)
		if err != nil {
			return nil, fmt.Errorf("read csv: row %d: %w", i, err)
		}
		recs = append(recs, models.ScoredRecord{
			Index:            i,
			CustomerID:       id,
			PreviousPurchase: prev,
			Probability:      p,
			Decile:           dec,
		})
	}
	return recs, nil
}
