package search

import (
	"sync"

	"github.com/brensch/gunsnake/game"
)

// Path is the head trail of one candidate branch.
type Path struct {
	First  game.Direction `json:"first"`
	Points []game.Point   `json:"points"`
	Score  float64        `json:"score"`
	Dead   bool           `json:"dead"`
}

// Overlay is the debug picture of one search: the best branch for every
// first move and the flood fill of the chosen leaf.
type Overlay struct {
	Snake uint8          `json:"snake"`
	Best  game.Direction `json:"best"`
	Paths []Path         `json:"paths"`
	Fill  []game.Point   `json:"fill"`
}

// Sink receives search overlays. It is called on the searching goroutine.
type Sink interface {
	Observe(Overlay)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Overlay)

func (f SinkFunc) Observe(o Overlay) { f(o) }

// LastOverlay keeps the most recent overlay per snake for readers on other
// goroutines.
type LastOverlay struct {
	mu   sync.Mutex
	last map[uint8]Overlay
}

func (l *LastOverlay) Observe(o Overlay) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.last == nil {
		l.last = make(map[uint8]Overlay)
	}
	l.last[o.Snake] = o
}

// Get returns the latest overlay for snake.
func (l *LastOverlay) Get(snake uint8) (Overlay, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	o, ok := l.last[snake]
	return o, ok
}

// All returns a copy of every stored overlay.
func (l *LastOverlay) All() []Overlay {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Overlay, 0, len(l.last))
	for _, o := range l.last {
		out = append(out, o)
	}
	return out
}

func (s *TreeSearch) overlay(me game.Snake, terminals []node, scores []float64, best int) Overlay {
	out := Overlay{Snake: s.Config.Snake, Best: terminals[best].history[0]}

	bestPer := map[game.Direction]int{}
	for i, t := range terminals {
		first := t.history[0]
		if j, ok := bestPer[first]; !ok || scores[i] > scores[j] {
			bestPer[first] = i
		}
	}
	for _, d := range game.AllDirections {
		i, ok := bestPer[d]
		if !ok {
			continue
		}
		t := terminals[i]
		points := make([]game.Point, 0, len(t.history)+1)
		p := me.Head()
		points = append(points, p)
		for _, step := range t.history {
			p = p.Add(step.Vec())
			points = append(points, p)
		}
		out.Paths = append(out.Paths, Path{First: d, Points: points, Score: scores[i], Dead: t.dead})
	}

	if leaf := terminals[best]; !leaf.dead {
		if snake, ok, err := leaf.board.Snake(s.Config.Snake); err == nil && ok {
			out.Fill = FloodFill(leaf.board, snake, fillCap(s.Config, snake)).Cells
		}
	}
	return out
}
