package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/brensch/gunsnake/game"
	"github.com/brensch/gunsnake/session"
)

var snakeColors = []lipgloss.Color{"42", "33", "208", "170"}

type styles struct {
	empty    lipgloss.Style
	wall     lipgloss.Style
	apple    lipgloss.Style
	deadMeat lipgloss.Style
	snakes   []lipgloss.Style
	heads    []lipgloss.Style
	frame    lipgloss.Style
	title    lipgloss.Style
	muted    lipgloss.Style
}

func newStyles() styles {
	s := styles{
		empty:    lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
		wall:     lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		apple:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		deadMeat: lipgloss.NewStyle().Foreground(lipgloss.Color("130")),
		frame:    lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")),
		title:    lipgloss.NewStyle().Bold(true),
		muted:    lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
	}
	for _, c := range snakeColors {
		s.snakes = append(s.snakes, lipgloss.NewStyle().Foreground(c))
		s.heads = append(s.heads, lipgloss.NewStyle().Foreground(c).Bold(true))
	}
	return s
}

func (s styles) cell(c game.Cell, isHead bool) string {
	switch c.Kind {
	case game.KindWall:
		return s.wall.Render("██")
	case game.KindApple:
		if c.Natural {
			return s.apple.Render("● ")
		}
		return s.deadMeat.Render("○ ")
	case game.KindSnake:
		i := int(c.ID) % len(s.snakes)
		if isHead {
			return s.heads[i].Render("▓▓")
		}
		return s.snakes[i].Render("██")
	}
	return s.empty.Render("· ")
}

// renderBoard draws the grid top row first.
func renderBoard(s styles, b *game.Board) string {
	heads := map[game.Point]bool{}
	if snakes, err := b.Snakes(); err == nil {
		for _, sn := range snakes {
			heads[sn.Head()] = true
		}
	}
	var sb strings.Builder
	for y := b.Height() - 1; y >= 0; y-- {
		for x := 0; x < b.Width(); x++ {
			p := game.Point{X: x, Y: y}
			c, _ := b.Get(p)
			sb.WriteString(s.cell(c, heads[p]))
		}
		if y > 0 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func renderScores(s styles, f session.Frame) string {
	parts := make([]string, len(f.Scores))
	for i, v := range f.Scores {
		st := s.snakes[i%len(s.snakes)]
		parts[i] = st.Render(fmt.Sprintf("P%d %d", i+1, v))
	}
	return strings.Join(parts, "  ")
}

func renderFrame(s styles, f session.Frame, help string) string {
	header := s.title.Render(fmt.Sprintf("round %d  tick %d", f.Round, f.Tick))
	if f.State == session.GameOver {
		header += "  " + s.apple.Render("GAME OVER") + s.muted.Render("  press r")
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		s.frame.Render(renderBoard(s, f.Board)),
		renderScores(s, f),
		s.muted.Render(help),
	)
}
