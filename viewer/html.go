package viewer

import (
	"fmt"
	"html/template"
	"io"
	"strconv"

	"github.com/PuerkitoBio/goquery"

	"github.com/brensch/gunsnake/game"
	"github.com/brensch/gunsnake/session"
)

type cellView struct {
	Kind    string
	ID      uint8
	Part    uint16
	Natural bool
	Glyph   string
}

type pageView struct {
	session.Frame
	Width       int
	Height      int
	ApplesEaten int
	Walls       bool
	// Rows runs top row first.
	Rows [][]cellView
}

var pageTmpl = template.Must(template.New("board").Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>snakes</title>
<style>
body { font-family: monospace; background: #111; color: #ddd; }
table.board { border-collapse: collapse; }
table.board td { width: 18px; height: 18px; text-align: center; }
td.wall { background: #666; }
td.apple { color: #e33; }
td.apple.dead { color: #a70; }
td.snake-0 { background: #2a6; } td.snake-1 { background: #26a; }
td.snake-2 { background: #a62; } td.snake-3 { background: #a2a; }
</style>
</head>
<body>
<p id="status" data-game-id="{{.GameID}}" data-round="{{.Round}}" data-tick="{{.Tick}}" data-state="{{.State}}">round {{.Round}} tick {{.Tick}} {{.State}}</p>
<ol id="scores">{{range $i, $s := .Scores}}<li data-player="{{$i}}">{{$s}}</li>{{end}}</ol>
<table class="board" data-width="{{.Width}}" data-height="{{.Height}}" data-apples-eaten="{{.ApplesEaten}}" data-walls="{{.Walls}}">
{{range .Rows}}<tr>{{range .}}{{if eq .Kind "snake"}}<td class="snake snake-{{.ID}}" data-kind="snake" data-id="{{.ID}}" data-part="{{.Part}}">{{.Glyph}}</td>{{else if eq .Kind "apple"}}<td class="apple{{if not .Natural}} dead{{end}}" data-kind="apple" data-natural="{{.Natural}}">{{.Glyph}}</td>{{else}}<td class="{{.Kind}}" data-kind="{{.Kind}}">{{.Glyph}}</td>{{end}}{{end}}</tr>
{{end}}</table>
<script>
const ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/api/ws");
let first = true;
ws.onmessage = () => { if (first) { first = false; return; } location.reload(); };
</script>
</body>
</html>
`))

// RenderFrameHTML writes the board page for f.
func RenderFrameHTML(w io.Writer, f session.Frame) error {
	b := f.Board
	v := pageView{
		Frame:       f,
		Width:       b.Width(),
		Height:      b.Height(),
		ApplesEaten: b.ApplesEaten(),
		Walls:       b.WallsEnabled(),
		Rows:        make([][]cellView, b.Height()),
	}
	for i := range v.Rows {
		y := b.Height() - 1 - i
		row := make([]cellView, b.Width())
		for x := range row {
			c, err := b.Get(game.Point{X: x, Y: y})
			if err != nil {
				return err
			}
			row[x] = cellView{Kind: c.Kind.String(), ID: c.ID, Part: c.Part, Natural: c.Natural, Glyph: string(c.Glyph())}
		}
		v.Rows[i] = row
	}
	return pageTmpl.Execute(w, v)
}

// ParseBoardHTML reads the board table back out of a page written by
// RenderFrameHTML. The returned board is seeded with seed.
func ParseBoardHTML(r io.Reader, seed uint64) (*game.Board, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	table := doc.Find("table.board").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("no board table")
	}

	rows := table.Find("tr")
	height := rows.Length()
	if height == 0 {
		return nil, fmt.Errorf("board table has no rows")
	}
	width := rows.First().Find("td").Length()
	eaten, _ := strconv.Atoi(table.AttrOr("data-apples-eaten", "0"))
	walls := table.AttrOr("data-walls", "true") == "true"

	cells := make([]game.Cell, width*height)
	var parseErr error
	rows.EachWithBreak(func(i int, tr *goquery.Selection) bool {
		tds := tr.Find("td")
		if tds.Length() != width {
			parseErr = fmt.Errorf("row %d has %d cells, want %d", i, tds.Length(), width)
			return false
		}
		y := height - 1 - i
		tds.EachWithBreak(func(x int, td *goquery.Selection) bool {
			c, err := parseCell(td)
			if err != nil {
				parseErr = fmt.Errorf("cell (%d,%d): %w", x, y, err)
				return false
			}
			cells[y*width+x] = c
			return true
		})
		return parseErr == nil
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return game.FromCells(width, height, cells, eaten, walls, seed)
}

func parseCell(td *goquery.Selection) (game.Cell, error) {
	var kind game.CellKind
	if err := kind.UnmarshalText([]byte(td.AttrOr("data-kind", ""))); err != nil {
		return game.Cell{}, err
	}
	switch kind {
	case game.KindSnake:
		id, err := strconv.ParseUint(td.AttrOr("data-id", ""), 10, 8)
		if err != nil {
			return game.Cell{}, fmt.Errorf("snake id: %w", err)
		}
		part, err := strconv.ParseUint(td.AttrOr("data-part", ""), 10, 16)
		if err != nil {
			return game.Cell{}, fmt.Errorf("snake part: %w", err)
		}
		return game.SnakeCell(uint8(id), int(part)), nil
	case game.KindApple:
		return game.AppleCell(td.AttrOr("data-natural", "true") == "true"), nil
	case game.KindWall:
		return game.WallCell(), nil
	}
	return game.EmptyCell(), nil
}
