package termgrid

import (
	"image"
	"math"
	"testing"
)

func TestDeriveFontDependents(t *testing.T) {
	f := FontSettings{
		CellSize:           image.Pt(8, 16),
		DoubleUnderlinePos: [2]int{13, 15},
		ThinLineWidth:      1,
	}
	d := deriveFontDependents(f)

	if d.curlyHeight != 3 {
		t.Errorf("curlyHeight = %d, want 3", d.curlyHeight)
	}
	if d.curlyTop != 13 {
		t.Errorf("curlyTop = %d, want 13", d.curlyTop)
	}
	if d.curlyHalfHeight != 1.5 {
		t.Errorf("curlyHalfHeight = %v, want 1.5", d.curlyHalfHeight)
	}
	if want := float32(2 * math.Pi / 8); d.curlyFrequency != want {
		t.Errorf("curlyFrequency = %v, want %v", d.curlyFrequency, want)
	}
	if d.dotSize != 1 {
		t.Errorf("dotSize = %d, want 1", d.dotSize)
	}
}

func TestDeriveFontDependentsClampsToCell(t *testing.T) {
	// The wave band never extends past the cell bottom and never
	// shrinks below 3px.
	f := FontSettings{
		CellSize:           image.Pt(2, 4),
		DoubleUnderlinePos: [2]int{2, 3},
		ThinLineWidth:      1,
	}
	d := deriveFontDependents(f)

	if d.curlyHeight != 3 {
		t.Errorf("curlyHeight = %d, want 3", d.curlyHeight)
	}
	if d.curlyTop != 1 {
		t.Errorf("curlyTop = %d, want 1", d.curlyTop)
	}
	if d.dotSize != 1 {
		t.Errorf("dotSize = %d, want 1", d.dotSize)
	}
}

func TestDeriveFontDependentsLargeCell(t *testing.T) {
	f := FontSettings{
		CellSize:           image.Pt(32, 64),
		DoubleUnderlinePos: [2]int{52, 58},
		ThinLineWidth:      2,
	}
	d := deriveFontDependents(f)

	if d.curlyHeight != 8 {
		t.Errorf("curlyHeight = %d, want 8", d.curlyHeight)
	}
	if d.curlyTop != 52 {
		t.Errorf("curlyTop = %d, want 52", d.curlyTop)
	}
	if d.dotSize != 2 {
		t.Errorf("dotSize = %d, want 2", d.dotSize)
	}
}
