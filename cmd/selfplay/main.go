// Command selfplay runs computer-only rounds on a pool of workers and
// writes every tick to parquet batches.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/brensch/gunsnake/config"
	"github.com/brensch/gunsnake/logging"
	"github.com/brensch/gunsnake/session"
	"github.com/brensch/gunsnake/store"
)

var (
	totalTicks atomic.Int64
	totalGames atomic.Int64
)

type gameWriteRequest struct {
	rows []store.TickRow
}

// chanRecorder hands finished rounds to the writer loop.
type chanRecorder chan<- gameWriteRequest

func (c chanRecorder) WriteGame(rows []store.TickRow) error {
	c <- gameWriteRequest{rows: rows}
	return nil
}

type GameResult struct {
	GameID string
	Ticks  int
	Scores []int
}

// playGame runs one round to the end, or until maxTicks or ctx stops it.
func playGame(ctx context.Context, settings config.Settings, rec session.Recorder, maxTicks int, logger *slog.Logger) (GameResult, error) {
	sess, err := session.New(settings,
		session.WithLogger(logger),
		session.WithRecorder(rec),
		session.WithSource("selfplay"),
	)
	if err != nil {
		return GameResult{}, err
	}
	defer sess.Close()

	f := sess.Snapshot()
	for f.State == session.Playing && (maxTicks <= 0 || f.Tick < maxTicks) {
		select {
		case <-ctx.Done():
			return GameResult{GameID: f.GameID, Ticks: f.Tick, Scores: f.Scores}, ctx.Err()
		default:
		}
		f, err = sess.Step(ctx)
		if err != nil {
			return GameResult{GameID: f.GameID, Ticks: f.Tick, Scores: f.Scores}, err
		}
		totalTicks.Add(1)
	}
	return GameResult{GameID: f.GameID, Ticks: f.Tick, Scores: f.Scores}, nil
}

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	settings := config.Default()
	settings.Board.Players = 2
	if err := settings.RegisterFlags(fs); err != nil {
		log.Fatalf("environment: %v", err)
	}
	outDir := fs.String("out-dir", config.EnvOr("SELFPLAY_OUT_DIR", "data/selfplay"), "Output directory for parquet batches")
	workers := fs.Int("workers", config.EnvIntOr("SELFPLAY_WORKERS", 8), "Number of self-play workers")
	gamesPerFlush := fs.Int("games-per-flush", config.EnvIntOr("SELFPLAY_GAMES_PER_FLUSH", store.DefaultGamesPerFile), "Games per parquet file")
	maxGames := fs.Int64("max-games", 0, "If > 0, stop after this many games across all workers")
	maxTicks := fs.Int("max-ticks", 2000, "Abandon a round after this many ticks")
	logFormat := fs.String("log-format", config.EnvOr("SELFPLAY_LOG_FORMAT", "text"), "Log format: pretty, json or text")
	if err := fs.Parse(os.Args[1:]); err != nil {
		log.Fatalf("flag parse: %v", err)
	}

	// Every slot is played by the search.
	settings.AIPlayers = settings.AIPlayers[:0]
	for slot := 0; slot < int(settings.Board.Players); slot++ {
		settings.AIPlayers = append(settings.AIPlayers, slot)
	}
	if err := settings.Validate(); err != nil {
		log.Fatalf("settings: %v", err)
	}

	logger, err := logging.New(os.Stderr, *logFormat, slog.LevelInfo)
	if err != nil {
		log.Fatalf("%v", err)
	}
	logging.Install(logger)

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	rec, err := store.NewRecorder(*outDir, *gamesPerFlush, logger)
	if err != nil {
		log.Fatalf("recorder: %v", err)
	}

	writeReqs := make(chan gameWriteRequest, (*workers)*4)
	writerDone := make(chan struct{})
	go func() {
		parquetWriterLoop(rec, writeReqs)
		close(writerDone)
	}()

	log.Printf("Starting self-play with %d workers on a %s board, %d players", *workers, settings.Board.Size, settings.Board.Players)

	var workerWG sync.WaitGroup
	for i := 0; i < *workers; i++ {
		workerWG.Add(1)
		go func(workerID int) {
			defer workerWG.Done()
			wlog := logger.With("worker", workerID)
			for {
				select {
				case <-ctx.Done():
					return
				default:
				}

				gs := settings
				gs.Seed = uint64(time.Now().UnixNano()) + uint64(workerID)*1000003
				res, err := playGame(ctx, gs, chanRecorder(writeReqs), *maxTicks, wlog)
				if err != nil && !errors.Is(err, context.Canceled) {
					wlog.Error("game aborted", "game_id", res.GameID, "err", err)
					continue
				}
				if err != nil {
					return
				}
				total := totalGames.Add(1)
				wlog.Debug("game finished", "game_id", res.GameID, "ticks", res.Ticks, "scores", res.Scores)
				if *maxGames > 0 && total >= *maxGames {
					cancel()
				}
			}
		}(i)
	}

	startTime := time.Now()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("Shutdown requested; waiting for workers to finish current games...")
			workerWG.Wait()
			close(writeReqs)
			<-writerDone
			if err := rec.Close(); err != nil {
				log.Printf("Final flush failed: %v", err)
			}
			log.Printf("Shutdown complete (games=%d ticks=%d)", totalGames.Load(), totalTicks.Load())
			return
		case <-ticker.C:
			secs := time.Since(startTime).Seconds()
			log.Printf("Stats: games=%d ticks=%d ticks/s=%.1f games/s=%.2f",
				totalGames.Load(), totalTicks.Load(), float64(totalTicks.Load())/secs, float64(totalGames.Load())/secs)
		}
	}
}

func parquetWriterLoop(rec *store.Recorder, in <-chan gameWriteRequest) {
	for req := range in {
		if err := rec.WriteGame(req.rows); err != nil {
			log.Printf("Parquet write failed (rows=%d): %v", len(req.rows), err)
		}
	}
}
