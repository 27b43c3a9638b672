package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"log/slog"
	"strings"
	"testing"
)

type fakeBoard string

func (b fakeBoard) String() string { return string(b) }

func TestPrettyJSONHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewPrettyJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	logger.With("round", 2).WithGroup("tick").Error("corrupted board",
		Board(fakeBoard("..A\n.aa\n")),
		slog.Any("err", errors.New("boom")),
		slog.Int("n", 3),
	)
	t.Logf("output:\n%s", buf.String())

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not one JSON object: %v", err)
	}
	if got["msg"] != "corrupted board" || got["level"] != "ERROR" {
		t.Fatalf("msg/level wrong: %v", got)
	}
	if got["round"] != float64(2) {
		t.Fatalf("round=%v want 2", got["round"])
	}
	tick, ok := got["tick"].(map[string]any)
	if !ok {
		t.Fatalf("missing tick group: %v", got)
	}
	lines, ok := tick["board"].([]any)
	if !ok || len(lines) != 2 || lines[0] != "..A" {
		t.Fatalf("board=%v want two lines", tick["board"])
	}
	if tick["err"] != "boom" {
		t.Fatalf("err=%v want boom", tick["err"])
	}
}

func TestPrettyJSONHandler_KeyOrder(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewPrettyJSONHandler(&buf, nil))
	logger.Info("round over", "game_id", "g", "ticks", 7, slog.Group("", slog.Int("winner", 1)))

	out := buf.String()
	last := -1
	for _, key := range []string{`"time"`, `"level"`, `"msg"`, `"game_id"`, `"ticks"`, `"winner"`} {
		i := strings.Index(out, key)
		if i <= last {
			t.Fatalf("key %s out of order in:\n%s", key, out)
		}
		last = i
	}
}

func TestPrettyJSONHandler_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewPrettyJSONHandler(&buf, nil))
	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug should be filtered at the default level: %s", buf.String())
	}
}

func TestNew(t *testing.T) {
	for _, format := range []string{"pretty", "json", "text", ""} {
		var buf bytes.Buffer
		logger, err := New(&buf, format, slog.LevelInfo)
		if err != nil {
			t.Fatalf("New(%q): %v", format, err)
		}
		logger.Info("hello", "k", "v")
		if !strings.Contains(buf.String(), "hello") {
			t.Fatalf("format %q wrote %q", format, buf.String())
		}
	}
	if _, err := New(&bytes.Buffer{}, "xml", slog.LevelInfo); err == nil {
		t.Fatalf("want error for unknown format")
	}
	if l, err := ParseLevel("warn"); err != nil || l != slog.LevelWarn {
		t.Fatalf("ParseLevel=%v,%v", l, err)
	}
}

func TestInstall(t *testing.T) {
	prevDefault := slog.Default()
	prevOut, prevFlags := log.Writer(), log.Flags()
	defer func() {
		slog.SetDefault(prevDefault)
		log.SetOutput(prevOut)
		log.SetFlags(prevFlags)
	}()

	var buf bytes.Buffer
	logger, _ := New(&buf, "json", slog.LevelInfo)
	Install(logger)
	log.Printf("worker %d started", 3)
	if !strings.Contains(buf.String(), `"msg":"worker 3 started"`) {
		t.Fatalf("std log not routed: %s", buf.String())
	}
}
