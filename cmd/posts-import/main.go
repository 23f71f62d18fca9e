// Command posts-import copies the posts CSV (POSTS_CSV_PATH) into the SQLite
// database (SQLITE_DB_PATH) read by POSTS_SOURCE=sqlite. Existing rows are
// replaced.
package main

import (
	"context"
	"os"
	"time"

	"tweetcompare/internal/cli"
	"tweetcompare/internal/config"
	"tweetcompare/internal/loader"
	"tweetcompare/internal/log"
	"tweetcompare/internal/sources/csvfile"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger().WithComponent(log.ComponentImport)
	cfg := config.Load()

	policy, err := loader.ParsePolicy(cfg.MalformedPolicy)
	if err != nil {
		logger.Error("Invalid configuration", log.FieldError, err.Error())
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = log.WithLogger(ctx, logger)

	table, err := csvfile.New(cfg.PostsCSVPath).ReadTable(ctx)
	if err != nil {
		logger.Error("Failed to read CSV", "path", cfg.PostsCSVPath, log.FieldError, err.Error())
		os.Exit(1)
	}

	// Check the rows the dashboard would load before touching the database.
	_, report, err := loader.FromTable(ctx, table, loader.Options{Policy: policy})
	if err != nil {
		logger.Error("CSV failed validation", log.FieldOperation, log.OpValidate, log.FieldError, err.Error())
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	n, err := repo.ImportTable(ctx, table)
	if err != nil {
		logger.Error("Import failed", log.FieldOperation, log.OpImport, log.FieldError, err.Error())
		repo.Close()
		os.Exit(1)
	}

	logger.Info("Import complete",
		log.FieldOperation, log.OpImport,
		"rows", n,
		log.FieldPostCount, report.PostsKept,
		"dropped_missing_flags", report.DroppedMissingFlags,
		"dropped_malformed", report.DroppedMalformed,
		"years", report.Years,
		"db_path", cfg.SQLiteDBPath)
}
