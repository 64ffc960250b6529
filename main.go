package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"time-to-shop/pkg/classifier"
	"time-to-shop/pkg/config"
	"time-to-shop/pkg/database"
	"time-to-shop/pkg/logging"
	"time-to-shop/pkg/models"
	"time-to-shop/pkg/pipeline"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.FromEnv()

	configFile := flag.String("config", "", "Optional YAML config file")
	dsn := flag.String("dsn", "", "Warehouse DSN (mysql://, mariadb://, postgres:// or sqlite://)")
	query := flag.String("query", "", "Custom SQL query for the input batch")
	modelPath := flag.String("model", "", "Path to the trained model artifact (JSON)")
	noUpload := flag.Bool("no-upload", false, "Skip appending results to the warehouse")
	saveLocal := flag.Bool("save-local", false, "Also write predictions to a local CSV")
	out := flag.String("out", "predictions_output.csv", "CSV filename for -save-local")
	logLevel := flag.String("log-level", "", "Log level (debug|info|warn|error)")
	logFormat := flag.String("log-format", "", "Log format (text|json)")
	verbose := flag.Bool("v", false, "Show per-record progress")
	flag.Parse()

	if *configFile != "" {
		if err := cfg.ApplyFile(*configFile); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
	}
	if *dsn != "" {
		cfg.DSN = *dsn
	}
	if *query != "" {
		cfg.Query = *query
	}
	if *modelPath != "" {
		cfg.ModelPath = *modelPath
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *logFormat != "" {
		cfg.LogFormat = *logFormat
	}
	if *saveLocal {
		cfg.OutputCSV = *out
	}

	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	clf, err := classifier.Load(cfg.ModelPath)
	if err != nil {
		logger.Error("load model", "error", err)
		return 1
	}

	wh, err := database.Open(cfg.DSN)
	if err != nil {
		logger.Error("open warehouse", "error", err)
		return 1
	}
	defer wh.Close()

	recs, stats, err := pipeline.Run(context.Background(), wh, clf, models.RunConfig{
		Query:       cfg.QueryOrDefault(),
		OutputTable: cfg.OutputTable,
		Upload:      !*noUpload,
		CSVPath:     cfg.OutputCSV,
		Verbose:     *verbose,
	}, logger)
	if err != nil {
		logger.Error("scoring run failed", "error", err)
		return 1
	}

	fmt.Printf("scored=%d mean_p=%.6f filled=%d clamped=%d\n",
		len(recs), stats.MeanProbability, stats.MissingFilled, stats.NegativesCorrected)
	return 0
}
