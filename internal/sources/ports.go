package sources

import (
	"context"

	"tweetcompare/internal/core"
)

// Ports for inbound record sources.
type (
	// TableReader yields the raw post table. The first row of the source is
	// the header; rows are returned untyped, empty cell == missing value.
	TableReader interface {
		ReadTable(ctx context.Context) (core.Table, error)
	}

	// TableWriter replaces the stored post table with the given one.
	TableWriter interface {
		ImportTable(ctx context.Context, t core.Table) (int, error)
	}
)

// TableFunc adapts a function to TableReader.
type TableFunc func(ctx context.Context) (core.Table, error)

func (f TableFunc) ReadTable(ctx context.Context) (core.Table, error) {
	return f(ctx)
}

// Static is a TableReader over an in-memory table.
type Static core.Table

func (s Static) ReadTable(context.Context) (core.Table, error) {
	return core.Table(s), nil
}
