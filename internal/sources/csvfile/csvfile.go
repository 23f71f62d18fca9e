// Package csvfile reads the post table from a CSV export.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"tweetcompare/internal/core"
	ports "tweetcompare/internal/sources"
)

var _ ports.TableReader = (*Reader)(nil)

type Reader struct {
	path string
}

func New(path string) *Reader {
	return &Reader{path: path}
}

// Path returns the file the reader loads.
func (r *Reader) Path() string {
	return r.path
}

// ReadTable opens the file on every call; the loader only calls it once.
func (r *Reader) ReadTable(ctx context.Context) (core.Table, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return core.Table{}, fmt.Errorf("%w: open %s: %w", core.ErrDataUnavailable, r.path, err)
	}
	defer f.Close()

	t, err := Parse(ctx, f)
	if err != nil {
		return core.Table{}, fmt.Errorf("%s: %w", r.path, err)
	}
	return t, nil
}

// Parse reads a CSV stream whose first record is the header. Rows shorter
// than the header are padded with empty cells, longer ones are truncated.
func Parse(ctx context.Context, in io.Reader) (core.Table, error) {
	cr := csv.NewReader(in)
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = false

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return core.Table{}, fmt.Errorf("%w: empty file", core.ErrDataUnavailable)
	}
	if err != nil {
		return core.Table{}, fmt.Errorf("%w: read header: %w", core.ErrDataUnavailable, err)
	}

	t := core.Table{Header: header}
	for {
		if err := ctx.Err(); err != nil {
			return core.Table{}, err
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return core.Table{}, fmt.Errorf("%w: %w", core.ErrDataUnavailable, err)
		}
		t.Rows = append(t.Rows, fit(rec, len(header)))
	}
	return t, nil
}

func fit(rec []string, n int) []string {
	if len(rec) == n {
		return rec
	}
	out := make([]string, n)
	copy(out, rec)
	return out
}
