// Command snakes plays the game in the terminal. Other players can join
// through the optional HTTP viewer.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/brensch/gunsnake/config"
	"github.com/brensch/gunsnake/game"
	"github.com/brensch/gunsnake/logging"
	"github.com/brensch/gunsnake/session"
	"github.com/brensch/gunsnake/store"
	"github.com/brensch/gunsnake/viewer"
)

const help = "P1 arrows/wasd  P2 ijkl  r reset  q quit"

// keyBindings maps keys to a player slot and direction.
var keyBindings = map[string]struct {
	player int
	dir    game.Direction
}{
	"up": {0, game.Up}, "down": {0, game.Down}, "left": {0, game.Left}, "right": {0, game.Right},
	"w": {0, game.Up}, "s": {0, game.Down}, "a": {0, game.Left}, "d": {0, game.Right},
	"i": {1, game.Up}, "k": {1, game.Down}, "j": {1, game.Left}, "l": {1, game.Right},
}

type frameMsg session.Frame

type model struct {
	sess   *session.Session
	frames <-chan session.Frame
	frame  session.Frame
	styles styles
}

func newModel(sess *session.Session, frames <-chan session.Frame) model {
	return model{
		sess:   sess,
		frames: frames,
		frame:  sess.Snapshot(),
		styles: newStyles(),
	}
}

func waitForFrame(frames <-chan session.Frame) tea.Cmd {
	return func() tea.Msg {
		f, ok := <-frames
		if !ok {
			return tea.Quit()
		}
		return frameMsg(f)
	}
}

func (m model) Init() tea.Cmd {
	return waitForFrame(m.frames)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			if err := m.sess.Reset(); err != nil {
				log.Printf("reset: %v", err)
			}
			return m, nil
		}
		if b, ok := keyBindings[key]; ok {
			// AI slots and finished rounds reject input; nothing to show.
			_, _ = m.sess.Input(b.player, b.dir)
		}
	case frameMsg:
		m.frame = session.Frame(msg)
		return m, waitForFrame(m.frames)
	}
	return m, nil
}

func (m model) View() string {
	return renderFrame(m.styles, m.frame, help)
}

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	settings := config.Default()
	if err := settings.RegisterFlags(fs); err != nil {
		log.Fatalf("environment: %v", err)
	}
	listen := fs.String("listen", config.EnvOr("SNAKES_LISTEN", ""), "Serve the HTTP viewer on this address, e.g. 127.0.0.1:8080")
	recordDir := fs.String("record-dir", config.EnvOr("SNAKES_RECORD_DIR", ""), "Record rounds as parquet files in this directory")
	logFile := fs.String("log-file", config.EnvOr("SNAKES_LOG_FILE", "snakes.log"), "Log file; the terminal belongs to the game")
	logFormat := fs.String("log-format", config.EnvOr("SNAKES_LOG_FORMAT", "pretty"), "Log format: pretty, json or text")
	logLevel := fs.String("log-level", config.EnvOr("SNAKES_LOG_LEVEL", "info"), "Log level")
	if err := fs.Parse(os.Args[1:]); err != nil {
		log.Fatalf("flag parse: %v", err)
	}
	if err := settings.Validate(); err != nil {
		log.Fatalf("settings: %v", err)
	}

	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer f.Close()
	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		log.Fatalf("%v", err)
	}
	logger, err := logging.New(f, *logFormat, level)
	if err != nil {
		log.Fatalf("%v", err)
	}
	logging.Install(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []session.Option{session.WithLogger(logger)}
	if *recordDir != "" {
		rec, err := store.NewRecorder(*recordDir, 1, logger)
		if err != nil {
			log.Fatalf("recorder: %v", err)
		}
		defer func() {
			if err := rec.Close(); err != nil {
				log.Printf("close recorder: %v", err)
			}
		}()
		opts = append(opts, session.WithRecorder(rec))
	}

	sess, err := session.New(settings, opts...)
	if err != nil {
		log.Fatalf("session: %v", err)
	}
	defer sess.Close()

	if *listen != "" {
		srv := &http.Server{
			Addr:              *listen,
			Handler:           viewer.NewServer(sess, *recordDir, logger).Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Printf("viewer listening on http://%s", *listen)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("viewer: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	frames, unsubscribe := sess.Subscribe()
	defer unsubscribe()

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	go func() {
		if err := sess.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("game loop stopped: %v", err)
		}
	}()

	p := tea.NewProgram(newModel(sess, frames), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
