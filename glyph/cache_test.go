package glyph

import "testing"

func TestCache_InsertLookup(t *testing.T) {
	c := NewCache()

	if e := c.Glyph(nil, SingleWidth, 42); e != nil {
		t.Fatal("expected miss on empty cache")
	}

	e := c.Insert(nil, SingleWidth, 42)
	if e.Shading != ShadingDefault {
		t.Errorf("fresh entry shading = %v, want Default", e.Shading)
	}
	if e.GlyphIndex != 42 {
		t.Errorf("fresh entry glyph index = %d, want 42", e.GlyphIndex)
	}

	e.Shading = ShadingTextGrayscale
	got := c.Glyph(nil, SingleWidth, 42)
	if got != e {
		t.Errorf("lookup returned %p, want the inserted entry %p", got, e)
	}
}

func TestCache_RenditionsAreSeparate(t *testing.T) {
	c := NewCache()

	single := c.Insert(nil, SingleWidth, 7)
	double := c.Insert(nil, DoubleWidth, 7)
	if single == double {
		t.Fatal("expected distinct entries per rendition")
	}
	if c.Glyph(nil, SingleWidth, 7) != single {
		t.Error("single-width lookup returned wrong entry")
	}
	if c.Glyph(nil, DoubleWidth, 7) != double {
		t.Error("double-width lookup returned wrong entry")
	}
	if c.Glyph(nil, DoubleHeightTop, 7) != nil {
		t.Error("expected miss for unpopulated rendition")
	}
}

func TestCache_Clear(t *testing.T) {
	c := NewCache()
	c.Insert(nil, SingleWidth, 1)
	c.Insert(nil, DoubleWidth, 2)
	c.InsertBitmap(99)

	if c.Len() != 3 {
		t.Errorf("Len() = %d, want 3", c.Len())
	}

	c.Clear()

	if c.Len() != 0 {
		t.Errorf("Len() after clear = %d, want 0", c.Len())
	}
	if c.Glyph(nil, SingleWidth, 1) != nil {
		t.Error("expected miss after clear")
	}
	if c.Bitmap(99) != nil {
		t.Error("expected bitmap miss after clear")
	}
}

func TestCache_Bitmap(t *testing.T) {
	c := NewCache()

	if c.Bitmap(1) != nil {
		t.Fatal("expected miss for unknown revision")
	}
	e := c.InsertBitmap(1)
	if c.Bitmap(1) != e {
		t.Error("bitmap lookup returned wrong entry")
	}
	if c.Bitmap(2) != nil {
		t.Error("expected miss for different revision")
	}
}
