// Package store persists recorded rounds as zstd-compressed Parquet files,
// one TickRow per tick.
package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

const schemaVersion = "tick_row_v1"

var ErrGameNotFound = errors.New("game not found")

func writerOptions() []parquet.WriterOption {
	return []parquet.WriterOption{
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.SkipPageBounds("cells"),
		parquet.KeyValueMetadata("schema", schemaVersion),
	}
}

// WriteGameParquet writes rows to outPath through a temp file and rename, so
// readers never observe a partial file.
func WriteGameParquet(outPath string, rows []TickRow) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmpPath := outPath + ".tmp"
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, rows, writerOptions()...); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write parquet: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("rename parquet: %w", err)
	}
	return nil
}

func batchName() string {
	return fmt.Sprintf("batch_%d.parquet", time.Now().UnixNano())
}

// ReadRows reads every row of a parquet file written by this package.
func ReadRows(path string) ([]TickRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet %s: %w", path, err)
	}
	if v, ok := pf.Lookup("schema"); ok && v != schemaVersion {
		return nil, fmt.Errorf("%s: unsupported schema %q", path, v)
	}

	reader := parquet.NewGenericReader[TickRow](pf)
	defer reader.Close()

	out := make([]TickRow, 0, int(reader.NumRows()))
	buf := make([]TickRow, 256)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}
	return out, nil
}

// ListFiles returns the finished parquet files in dir, oldest first. Files
// still in dir/tmp are skipped.
func ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".parquet") {
			continue
		}
		out = append(out, filepath.Join(dir, entry.Name()))
	}
	slices.Sort(out)
	return out, nil
}

// GameSummary describes one recorded game.
type GameSummary struct {
	GameID string `json:"game_id"`
	File   string `json:"file"`
	Rounds int    `json:"rounds"`
	Ticks  int    `json:"ticks"`
	Source string `json:"source"`
}

// ListGames summarises every game in the finished files of dir, in the
// order they were written.
func ListGames(dir string) ([]GameSummary, error) {
	files, err := ListFiles(dir)
	if err != nil {
		return nil, err
	}
	var out []GameSummary
	for _, path := range files {
		rows, err := ReadRows(path)
		if err != nil {
			return nil, err
		}
		index := map[string]int{}
		rounds := map[string]map[int32]struct{}{}
		for _, row := range rows {
			i, ok := index[row.GameID]
			if !ok {
				i = len(out)
				index[row.GameID] = i
				rounds[row.GameID] = map[int32]struct{}{}
				out = append(out, GameSummary{GameID: row.GameID, File: filepath.Base(path), Source: row.Source})
			}
			out[i].Ticks++
			rounds[row.GameID][row.Round] = struct{}{}
		}
		for id, i := range index {
			out[i].Rounds = len(rounds[id])
		}
	}
	return out, nil
}

// ReadGame returns the rows of one game, ordered by round and tick.
func ReadGame(dir, gameID string) ([]TickRow, error) {
	files, err := ListFiles(dir)
	if err != nil {
		return nil, err
	}
	var out []TickRow
	for _, path := range files {
		rows, err := ReadRows(path)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			if row.GameID == gameID {
				out = append(out, row)
			}
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	slices.SortStableFunc(out, func(a, b TickRow) int {
		if a.Round != b.Round {
			return int(a.Round - b.Round)
		}
		return int(a.Tick - b.Tick)
	})
	return out, nil
}
