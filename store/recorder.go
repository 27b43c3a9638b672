package store

import (
	"log/slog"
	"path/filepath"
	"sync"
)

const DefaultGamesPerFile = 50

// Recorder batches finished games into parquet files under one directory
// and notes each flushed game in dir/games.log. It is safe for concurrent
// use.
type Recorder struct {
	mu           sync.Mutex
	outDir       string
	gamesPerFile int
	log          *GameLog
	batch        *BatchWriter
	logger       *slog.Logger
}

func NewRecorder(outDir string, gamesPerFile int, logger *slog.Logger) (*Recorder, error) {
	if gamesPerFile <= 0 {
		gamesPerFile = DefaultGamesPerFile
	}
	if logger == nil {
		logger = slog.Default()
	}
	gl, err := OpenGameLog(filepath.Join(outDir, "games.log"))
	if err != nil {
		return nil, err
	}
	return &Recorder{
		outDir:       outDir,
		gamesPerFile: gamesPerFile,
		log:          gl,
		logger:       logger.With("component", "recorder"),
	}, nil
}

func (r *Recorder) Dir() string   { return r.outDir }
func (r *Recorder) Log() *GameLog { return r.log }

// WriteGame buffers the rows of one game. The batch is flushed once it
// holds gamesPerFile games.
func (r *Recorder) WriteGame(rows []TickRow) error {
	if len(rows) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.batch == nil {
		b, err := NewBatchWriter(r.outDir)
		if err != nil {
			return err
		}
		r.batch = b
	}
	if err := r.batch.WriteGame(rows); err != nil {
		return err
	}
	if r.batch.Games() >= r.gamesPerFile {
		return r.flushLocked()
	}
	return nil
}

// Flush finalizes the current batch, if any.
func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flushLocked()
}

func (r *Recorder) flushLocked() error {
	if r.batch == nil {
		return nil
	}
	games := r.batch.Games()
	res, err := r.batch.Finalize()
	r.batch = nil
	if err != nil {
		r.logger.Error("parquet flush failed", "games", games, "err", err)
		return err
	}
	if res.Path == "" {
		return nil
	}
	r.logger.Info("parquet flush ok", "path", res.Path, "games", len(res.Games), "rows", res.Rows)
	return r.log.AddMany(res.Games)
}

func (r *Recorder) Close() error {
	err := r.Flush()
	if cerr := r.log.Close(); err == nil {
		err = cerr
	}
	return err
}
