package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
)

// BatchWriter appends whole games to one parquet file. The file lives in
// dir/tmp until Finalize moves it next to the finished batches, so a reader
// listing dir only ever sees complete files.
type BatchWriter struct {
	dir  string
	name string

	f *os.File
	w *parquet.GenericWriter[TickRow]

	games []string
	rows  int
}

// BatchResult describes a finalized batch. Path is empty when the batch
// held no rows and was discarded.
type BatchResult struct {
	Path  string
	Rows  int
	Games []string
}

func NewBatchWriter(dir string) (*BatchWriter, error) {
	if dir == "" {
		return nil, fmt.Errorf("batch dir is required")
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	if err := os.MkdirAll(filepath.Join(dir, "tmp"), 0o755); err != nil {
		return nil, fmt.Errorf("create tmp dir: %w", err)
	}

	b := &BatchWriter{dir: dir, name: batchName()}
	f, err := os.Create(b.tmpPath())
	if err != nil {
		return nil, fmt.Errorf("open tmp parquet: %w", err)
	}
	b.f = f
	b.w = parquet.NewGenericWriter[TickRow](f, writerOptions()...)
	return b, nil
}

func (b *BatchWriter) tmpPath() string { return filepath.Join(b.dir, "tmp", b.name) }

// Path is where the batch will appear once finalized.
func (b *BatchWriter) Path() string { return filepath.Join(b.dir, b.name) }

func (b *BatchWriter) Games() int { return len(b.games) }
func (b *BatchWriter) Rows() int  { return b.rows }

// WriteGame appends the rows of one game. Every row must carry the same
// game id.
func (b *BatchWriter) WriteGame(rows []TickRow) error {
	if b.w == nil {
		return fmt.Errorf("batch %s is finalized", b.name)
	}
	if len(rows) == 0 {
		return nil
	}
	id := rows[0].GameID
	for i, r := range rows {
		if r.GameID != id {
			return fmt.Errorf("row %d belongs to game %q, want %q", i, r.GameID, id)
		}
	}
	if _, err := b.w.Write(rows); err != nil {
		return fmt.Errorf("write game %s: %w", id, err)
	}
	b.games = append(b.games, id)
	b.rows += len(rows)
	return nil
}

// Finalize flushes the file and publishes it. Calling it again is a no-op.
func (b *BatchWriter) Finalize() (BatchResult, error) {
	if b.w == nil {
		return BatchResult{}, nil
	}
	werr := b.w.Close()
	b.w = nil
	_ = b.f.Sync()
	ferr := b.f.Close()
	b.f = nil

	switch {
	case werr != nil:
		return BatchResult{}, fmt.Errorf("close parquet writer: %w", werr)
	case ferr != nil:
		return BatchResult{}, fmt.Errorf("close parquet file: %w", ferr)
	case b.rows == 0:
		_ = os.Remove(b.tmpPath())
		return BatchResult{}, nil
	}
	if err := os.Rename(b.tmpPath(), b.Path()); err != nil {
		return BatchResult{}, fmt.Errorf("publish batch: %w", err)
	}
	return BatchResult{Path: b.Path(), Rows: b.rows, Games: b.games}, nil
}
