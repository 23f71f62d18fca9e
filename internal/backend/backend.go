package backend

import (
	"context"
	"fmt"

	"tweetcompare/internal/config"
	"tweetcompare/internal/sources"
)

// SourceType names a post source.
type SourceType string

const (
	CSVSource    SourceType = "csv"
	SQLiteSource SourceType = "sqlite"
	SheetsSource SourceType = "sheets"
)

func (t SourceType) String() string {
	return string(t)
}

// IsValid returns true if the source type is known
func (t SourceType) IsValid() bool {
	switch t {
	case CSVSource, SQLiteSource, SheetsSource:
		return true
	default:
		return false
	}
}

// SourceTypes returns all valid source types
func SourceTypes() []SourceType {
	return []SourceType{CSVSource, SQLiteSource, SheetsSource}
}

// CleanupFunc releases the resources held by a source.
type CleanupFunc func() error

// Result is a ready source and its cleanup, which may be nil.
type Result struct {
	Reader  sources.TableReader
	Cleanup CleanupFunc
}

// Close runs the cleanup if there is one.
func (r *Result) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates post sources from configuration.
type Factory interface {
	CreateSource(ctx context.Context, cfg Config) (*Result, error)
}

// Config holds what the factory needs to build any source.
type Config struct {
	Type SourceType

	CSVPath string

	SQLiteDBPath string

	GoogleSpreadsheetID string
	GoogleSheetName     string
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	t := SourceType(appConfig.PostsSource)
	if !t.IsValid() {
		return Config{}, fmt.Errorf("invalid posts source in config: %s", appConfig.PostsSource)
	}
	return Config{
		Type:                t,
		CSVPath:             appConfig.PostsCSVPath,
		SQLiteDBPath:        appConfig.SQLiteDBPath,
		GoogleSpreadsheetID: appConfig.GoogleSpreadsheetID,
		GoogleSheetName:     appConfig.GoogleSheetName,
	}, nil
}

// Validate checks the fields the selected source needs.
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid source type: %s", c.Type)
	}
	switch c.Type {
	case CSVSource:
		if c.CSVPath == "" {
			return fmt.Errorf("CSV path is required for csv source")
		}
	case SQLiteSource:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite source")
		}
	case SheetsSource:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets source")
		}
	}
	return nil
}
