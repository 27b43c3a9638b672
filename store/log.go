package store

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// GameLog tracks which game ids have been flushed to a finished file. It is
// an append-only file with one id per line, loaded into memory on open and
// fsynced on every append.
//
// A crash mid-write can leave a partial final line; it is read back as an
// unknown id and never matches.
type GameLog struct {
	mu      sync.RWMutex
	file    *os.File
	written map[string]struct{}
	order   []string
}

func OpenGameLog(path string) (*GameLog, error) {
	if path == "" {
		return nil, fmt.Errorf("log path is required")
	}

	l := &GameLog{written: make(map[string]struct{})}
	if f, err := os.Open(path); err == nil {
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			id := strings.TrimSpace(scanner.Text())
			if id == "" {
				continue
			}
			if _, ok := l.written[id]; ok {
				continue
			}
			l.written[id] = struct{}{}
			l.order = append(l.order, id)
		}
		_ = f.Close()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	l.file = file
	return l, nil
}

func (l *GameLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *GameLog) Has(gameID string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.written[gameID]
	return ok
}

func (l *GameLog) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.written)
}

// IDs returns the logged ids in the order they were first written.
func (l *GameLog) IDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.order)
}

// AddMany appends ids and syncs once. Empty and already logged ids are
// skipped.
func (l *GameLog) AddMany(gameIDs []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return fmt.Errorf("log file is closed")
	}

	added := 0
	for _, id := range gameIDs {
		if id == "" {
			continue
		}
		if _, ok := l.written[id]; ok {
			continue
		}
		if _, err := l.file.WriteString(id + "\n"); err != nil {
			return fmt.Errorf("append log: %w", err)
		}
		l.written[id] = struct{}{}
		l.order = append(l.order, id)
		added++
	}

	if added == 0 {
		return nil
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("sync log: %w", err)
	}
	return nil
}
