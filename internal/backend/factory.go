package backend

import (
	"context"
	"fmt"

	"tweetcompare/internal/log"
	"tweetcompare/internal/sources/csvfile"
	gsheet "tweetcompare/internal/sources/google"
	"tweetcompare/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateSource implements Factory.CreateSource
func (f *DefaultFactory) CreateSource(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case CSVSource:
		f.logger.InfoContext(ctx, "Using CSV post source", "path", cfg.CSVPath)
		return &Result{Reader: csvfile.New(cfg.CSVPath)}, nil
	case SQLiteSource:
		return f.createSQLiteSource(ctx, cfg)
	case SheetsSource:
		return f.createSheetsSource(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported source type: %s", cfg.Type)
	}
}

func (f *DefaultFactory) createSQLiteSource(ctx context.Context, cfg Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.InfoContext(ctx, "Using SQLite post source", "db_path", cfg.SQLiteDBPath)
	return &Result{Reader: repo, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createSheetsSource(ctx context.Context, cfg Config) (*Result, error) {
	cli, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID: cfg.GoogleSpreadsheetID,
		SheetName:     cfg.GoogleSheetName,
		Logger:        f.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.InfoContext(ctx, "Using Google Sheets post source", "sheet", cfg.GoogleSheetName)
	return &Result{Reader: cli}, nil
}
