// Package pipeline orchestrates one scoring run: fetch, clean, score,
// bucket, format, persist. Stages fail fast; a failed run writes
// nothing to any sink.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"time-to-shop/pkg/classifier"
	"time-to-shop/pkg/cleaner"
	"time-to-shop/pkg/database"
	"time-to-shop/pkg/decile"
	"time-to-shop/pkg/models"
	"time-to-shop/pkg/output"
	"time-to-shop/pkg/schema"
	"time-to-shop/pkg/scorer"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
)

// Run executes the whole batch synchronously and in memory. The
// classifier is loaded by the caller and owned by this run; the data
// flows strictly forward between stages.
func Run(ctx context.Context, wh *database.Warehouse, clf classifier.Classifier, cfg models.RunConfig, logger *slog.Logger) ([]models.ScoredRecord, models.RunStats, error) {
	stats := models.RunStats{RunID: uuid.NewString()}
	log := logger.With("run_id", stats.RunID)

	log.Info("starting scoring run", "query", cfg.Query)
	raw, err := wh.FetchTable(ctx, cfg.Query)
	if err != nil {
		return nil, stats, err
	}
	stats.RecordsIn = raw.NumRows()
	log.Info("batch loaded", "records", stats.RecordsIn, "columns", len(raw.Columns))

	plan := schema.BuildFillPlan(raw.Columns)
	clean, cstats, err := cleaner.Clean(raw, plan, log)
	if err != nil {
		return nil, stats, fmt.Errorf("clean: %w", err)
	}
	stats.MissingFilled = cstats.TotalFilled()
	stats.NegativesCorrected = cstats.TotalNegativesCorrected()
	log.Info("batch cleaned",
		"missing_filled", stats.MissingFilled,
		"negatives_corrected", stats.NegativesCorrected)

	probs, err := scorer.New(clf, log).Score(clean)
	if err != nil {
		return nil, stats, err
	}

	deciles, err := assignDeciles(probs, cfg.Verbose)
	if err != nil {
		return nil, stats, err
	}

	idCol := clean.ColumnIndex(schema.ColCustomerID)
	prevCol := clean.ColumnIndex(schema.ColPreviousPurchase)
	if idCol < 0 || prevCol < 0 {
		return nil, stats, fmt.Errorf("source batch missing %s or %s", schema.ColCustomerID, schema.ColPreviousPurchase)
	}
	ids := make([]any, clean.NumRows())
	purchases := make([]any, clean.NumRows())
	for i, row := range clean.Rows {
		ids[i] = row[idCol]
		purchases[i] = row[prevCol]
	}

	recs, err := output.Format(ids, purchases, probs, deciles)
	if err != nil {
		return nil, stats, err
	}
	stats.RecordsOut = len(recs)
	summarize(&stats, recs)

	if cfg.Upload {
		if err := wh.EnsureOutputTable(ctx, cfg.OutputTable); err != nil {
			return nil, stats, err
		}
		if err := wh.AppendScores(ctx, cfg.OutputTable, recs); err != nil {
			return nil, stats, err
		}
		log.Info("results appended to warehouse", "table", cfg.OutputTable, "records", len(recs))
	}
	if cfg.CSVPath != "" {
		if err := output.WriteCSV(cfg.CSVPath, recs); err != nil {
			return nil, stats, err
		}
		log.Info("results written locally", "path", cfg.CSVPath, "records", len(recs))
	}

	log.Info("scoring run complete",
		"records", stats.RecordsOut,
		"mean_probability", stats.MeanProbability,
		"decile_10", stats.DecileCounts[9],
		"decile_1", stats.DecileCounts[0])
	return recs, stats, nil
}

func assignDeciles(probs []float64, verbose bool) ([]int, error) {
	if !verbose {
		return decile.AssignAll(probs)
	}
	bar := progressbar.Default(int64(len(probs)))
	out := make([]int, len(probs))
	for i, p := range probs {
		d, err := decile.Assign(p)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out[i] = d
		_ = bar.Add(1)
	}
	return out, nil
}

func summarize(stats *models.RunStats, recs []models.ScoredRecord) {
	if len(recs) == 0 {
		return
	}
	total := 0.0
	for _, r := range recs {
		total += r.Probability
		stats.DecileCounts[r.Decile-1]++
	}
	stats.MeanProbability = total / float64(len(recs))
}
