// Command replay prints a recorded game tick by tick, or lists the games
// in a recording directory when no game is named. With -board-html it
// instead resumes play from a saved board page.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/brensch/gunsnake/game"
	"github.com/brensch/gunsnake/search"
	"github.com/brensch/gunsnake/session"
	"github.com/brensch/gunsnake/store"
	"github.com/brensch/gunsnake/viewer"
)

func main() {
	dir := flag.String("dir", "data/selfplay", "Directory of parquet recordings")
	gameID := flag.String("game", "", "Game id to replay; empty lists games")
	delay := flag.Duration("delay", 0, "Pause between ticks")
	htmlOut := flag.String("html", "", "Also write the final board as an HTML page to this file")
	export := flag.String("export", "", "Also copy the game's rows into a standalone parquet file")
	boardHTML := flag.String("board-html", "", "Resume from a board page saved with -html and let the search play it on")
	ticks := flag.Int("ticks", 50, "Ticks to play with -board-html")
	seed := flag.Uint64("seed", 1, "Seed for spawns and search with -board-html")
	flag.Parse()

	if *boardHTML != "" {
		f, err := os.Open(*boardHTML)
		if err != nil {
			log.Fatalf("open board page: %v", err)
		}
		defer f.Close()
		if err := playFromHTML(context.Background(), os.Stdout, f, *ticks, *seed, *delay); err != nil {
			log.Fatalf("play from page: %v", err)
		}
		return
	}

	if *gameID == "" {
		if err := listGames(os.Stdout, *dir); err != nil {
			log.Fatalf("list games: %v", err)
		}
		return
	}

	rows, err := store.ReadGame(*dir, *gameID)
	if err != nil {
		log.Fatalf("read game: %v", err)
	}
	if *export != "" {
		if err := store.WriteGameParquet(*export, rows); err != nil {
			log.Fatalf("export: %v", err)
		}
		log.Printf("Game exported to: %s", *export)
	}
	frames, err := viewer.ReplayFrames(rows)
	if err != nil {
		log.Fatalf("decode game: %v", err)
	}
	for i, f := range frames {
		printFrame(os.Stdout, f)
		if *delay > 0 && i < len(frames)-1 {
			time.Sleep(*delay)
		}
	}

	if *htmlOut != "" && len(frames) > 0 {
		if err := writeHTML(*htmlOut, *gameID, frames[len(frames)-1]); err != nil {
			log.Fatalf("write html: %v", err)
		}
		log.Printf("Final board written to: %s", *htmlOut)
	}
}

// playFromHTML rebuilds the board on a saved page and lets a tree search
// steer every snake on it for up to ticks ticks.
func playFromHTML(ctx context.Context, w io.Writer, page io.Reader, ticks int, seed uint64, delay time.Duration) error {
	b, err := viewer.ParseBoardHTML(page, seed)
	if err != nil {
		return err
	}
	ids := b.SnakeIDs()
	if len(ids) == 0 {
		return fmt.Errorf("no snakes on the page")
	}
	ais := make([]search.Chooser, int(ids[len(ids)-1])+1)
	for _, id := range ids {
		cfg := search.DefaultConfig()
		cfg.Snake = id
		cfg.Seed = seed + uint64(id)
		ais[id] = search.Fallback{search.NewTreeSearch(cfg), search.NewRandomWalk(id, cfg.Seed)}
	}

	fmt.Fprintln(w, b.String())
	for tick := 1; tick <= ticks; tick++ {
		inputs := make([]game.Direction, len(ais))
		for id, ai := range ais {
			inputs[id] = game.Straight
			if ai == nil {
				continue
			}
			if d, err := ai.Choose(ctx, b); err == nil {
				inputs[id] = d
			}
		}
		events, err := b.Tick(inputs)
		if err != nil {
			return fmt.Errorf("tick %d: %w", tick, err)
		}
		printFrame(w, viewer.ReplayFrame{Tick: tick, Board: b, Inputs: inputs, Events: events})
		if game.HasEvent(events, game.EventGameOver, 0) || len(b.SnakeIDs()) == 0 {
			return nil
		}
		if delay > 0 {
			time.Sleep(delay)
		}
	}
	return nil
}

func listGames(w io.Writer, dir string) error {
	games, err := store.ListGames(dir)
	if err != nil {
		return err
	}
	for _, g := range games {
		fmt.Fprintf(w, "%s  rounds=%d ticks=%d source=%s\n", g.GameID, g.Rounds, g.Ticks, g.Source)
	}
	return nil
}

func printFrame(w io.Writer, f viewer.ReplayFrame) {
	inputs := make([]string, len(f.Inputs))
	for i, d := range f.Inputs {
		inputs[i] = fmt.Sprintf("P%d:%s", i, d)
	}
	events := make([]string, len(f.Events))
	for i, e := range f.Events {
		events[i] = e.String()
	}
	fmt.Fprintf(w, "round %d tick %3d | %s | %s | scores %v\n",
		f.Round, f.Tick, strings.Join(inputs, " "), strings.Join(events, ", "), f.Scores)
	fmt.Fprintln(w, f.Board.String())
}

func writeHTML(path, gameID string, f viewer.ReplayFrame) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	scores := make([]int, len(f.Scores))
	for i, s := range f.Scores {
		scores[i] = int(s)
	}
	state := session.Playing
	if game.HasEvent(f.Events, game.EventGameOver, 0) {
		state = session.GameOver
	}
	err = viewer.RenderFrameHTML(out, session.Frame{
		GameID: gameID,
		Round:  f.Round,
		Tick:   f.Tick,
		State:  state,
		Board:  f.Board,
		Events: f.Events,
		Scores: scores,
	})
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return err
}
