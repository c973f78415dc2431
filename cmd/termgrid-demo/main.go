// Command termgrid-demo renders a sample terminal frame to a PNG.
package main

import (
	"flag"
	"image"
	"image/png"
	"log"
	"os"

	"github.com/gogpu/termgrid"
)

const (
	cellW = 10
	cellH = 20

	black  = 0xFF000000
	white  = 0xFFF0F0F0
	blue   = 0xFF804020
	yellow = 0xFF40C0E0
	red    = 0xFF2020C0
	green  = 0xFF40A040
)

func main() {
	var (
		cols   = flag.Int("cols", 60, "terminal width in cells")
		rows   = flag.Int("rows", 16, "terminal height in cells")
		output = flag.String("output", "demo.png", "output file")
	)
	flag.Parse()

	settings := termgrid.Settings{
		Generation: 1,
		Font: termgrid.FontSettings{
			Generation:         1,
			CellSize:           image.Pt(cellW, cellH),
			Baseline:           15,
			Descender:          5,
			FontSizePx:         20,
			AdvanceWidth:       cellW,
			UnderlinePos:       17,
			UnderlineWidth:     1,
			DoubleUnderlinePos: [2]int{16, 18},
			ThinLineWidth:      1,
			StrikethroughPos:   10,
			StrikethroughWidth: 1,
			GridlineWidth:      1,
		},
		Misc: termgrid.MiscSettings{
			Generation:      1,
			BackgroundColor: black,
			ForegroundColor: white,
		},
		TargetSize: image.Pt(*cols*cellW, *rows*cellH),
		CellCount:  image.Pt(*cols, *rows),
	}

	payload := &termgrid.Payload{
		Settings:    settings,
		Rows:        demoRows(*cols, *rows),
		CursorRect:  [4]int{10, 12, 11, 13},
		CursorColor: green,
	}

	r := termgrid.New(termgrid.DefaultConfig())
	if err := r.Render(payload); err != nil {
		log.Fatalf("Failed to render: %v", err)
	}

	pixels, err := r.Target()
	if err != nil {
		log.Fatalf("Failed to read target: %v", err)
	}
	img := &image.RGBA{
		Pix:    pixels,
		Stride: settings.TargetSize.X * 4,
		Rect:   image.Rectangle{Max: settings.TargetSize},
	}

	f, err := os.Create(*output)
	if err != nil {
		log.Fatalf("Failed to create %s: %v", *output, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		log.Fatalf("Failed to encode: %v", err)
	}

	log.Printf("Demo saved to %s (%dx%d)\n", *output, settings.TargetSize.X, settings.TargetSize.Y)
}

func demoRows(cols, rows int) []*termgrid.ShapedRow {
	out := make([]*termgrid.ShapedRow, rows)

	// A box drawn with light box drawing characters.
	out[1] = boxRow(2, 20, 0x250C, 0x2500, 0x2510, white)
	for y := 2; y < 5; y++ {
		out[y] = boxRow(2, 20, 0x2502, 0, 0x2502, white)
	}
	out[5] = boxRow(2, 20, 0x2514, 0x2500, 0x2518, white)

	// A gradient of shade glyphs.
	shades := &termgrid.ShapedRow{Invalidated: true}
	for i, cp := range []rune{0x2591, 0x2592, 0x2593, 0x2588} {
		for n := range 6 {
			col := 26 + i*6 + n
			shades.GlyphIndices = append(shades.GlyphIndices, uint32(cp))
			shades.Positions = append(shades.Positions, float32(col*cellW))
		}
	}
	shades.Mappings = []termgrid.GlyphMapping{{GlyphCount: len(shades.GlyphIndices)}}
	shades.Foreground = solid(cols, blue)
	out[6] = shades

	// Decorated ranges: underline styles and a strikethrough.
	out[8] = decoRow(2, 12, termgrid.GridLineUnderline, white)
	out[9] = decoRow(2, 12, termgrid.GridLineDoubleUnderline, yellow)
	out[10] = decoRow(2, 12, termgrid.GridLineDottedUnderline, white)
	out[11] = decoRow(2, 12, termgrid.GridLineDashedUnderline, yellow)
	out[12] = decoRow(2, 12, termgrid.GridLineCurlyUnderline, red)
	out[13] = decoRow(2, 12, termgrid.GridLineStrikethrough, white)

	// A block of colored cells.
	colored := &termgrid.ShapedRow{
		Background:  make([]uint32, cols),
		Invalidated: true,
	}
	for x := range colored.Background {
		colored.Background[x] = black
		if x >= 30 && x < 54 {
			colored.Background[x] = []uint32{red, yellow, green, blue}[(x-30)/6]
		}
	}
	out[10].Background = colored.Background
	out[14] = colored

	return out
}

// boxRow lays out left, an optional run of mid, and right starting at col.
func boxRow(col, width int, left, mid, right rune, fg uint32) *termgrid.ShapedRow {
	row := &termgrid.ShapedRow{Invalidated: true}
	add := func(c int, cp rune) {
		row.GlyphIndices = append(row.GlyphIndices, uint32(cp))
		row.Positions = append(row.Positions, float32(c*cellW))
	}
	add(col, left)
	if mid != 0 {
		for c := col + 1; c < col+width-1; c++ {
			add(c, mid)
		}
	}
	add(col+width-1, right)
	row.Mappings = []termgrid.GlyphMapping{{GlyphCount: len(row.GlyphIndices)}}
	row.Foreground = solid(col+width, fg)
	return row
}

func decoRow(from, to int, lines termgrid.GridLines, color uint32) *termgrid.ShapedRow {
	return &termgrid.ShapedRow{
		GridLines:   []termgrid.GridLineRange{{From: from, To: to, Lines: lines, Color: color}},
		Invalidated: true,
	}
}

func solid(n int, c uint32) []uint32 {
	s := make([]uint32, n)
	for i := range s {
		s[i] = c
	}
	return s
}
