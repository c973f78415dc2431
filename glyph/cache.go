package glyph

import "github.com/go-text/typesetting/font"

// Cache maps (font face, line rendition, glyph index) keys to cached atlas
// entries. The zero face (nil) is a pseudo face holding builtin and soft
// font glyphs, which are keyed by code point instead of glyph index.
//
// Faces are weak back-references: the cache never owns font resources, it
// only indexes them for lookup. Capacity pressure is handled atlas-wide via
// Clear, never per entry.
//
// Cache is not safe for concurrent use; one caller thread drives it per
// frame.
type Cache struct {
	faces map[*font.Face]*faceEntry

	// bitmaps caches inline row bitmaps (sixel output and such) by their
	// revision stamp. A changed revision is simply a new key; stale
	// revisions die with the next Clear.
	bitmaps map[uint64]*Entry
}

// faceEntry holds the four per-rendition glyph maps of one face.
type faceEntry struct {
	glyphs [4]map[uint32]*Entry
}

// NewCache creates an empty glyph cache.
func NewCache() *Cache {
	return &Cache{
		faces:   make(map[*font.Face]*faceEntry),
		bitmaps: make(map[uint64]*Entry),
	}
}

// Glyph returns the cached entry for the key, or nil on a miss.
func (c *Cache) Glyph(face *font.Face, r LineRendition, glyphIndex uint32) *Entry {
	fe := c.faces[face]
	if fe == nil {
		return nil
	}
	return fe.glyphs[r][glyphIndex]
}

// Insert allocates a fresh entry for the key and returns it for the caller
// to fill in. A fresh entry has ShadingDefault, so an aborted rasterization
// naturally degrades to whitespace. Inserting an existing key replaces the
// old entry.
func (c *Cache) Insert(face *font.Face, r LineRendition, glyphIndex uint32) *Entry {
	fe := c.faces[face]
	if fe == nil {
		fe = &faceEntry{}
		for i := range fe.glyphs {
			fe.glyphs[i] = make(map[uint32]*Entry)
		}
		c.faces[face] = fe
	}
	e := &Entry{GlyphIndex: glyphIndex}
	fe.glyphs[r][glyphIndex] = e
	return e
}

// Bitmap returns the cached entry for an inline bitmap revision, or nil.
func (c *Cache) Bitmap(revision uint64) *Entry {
	return c.bitmaps[revision]
}

// InsertBitmap allocates a fresh entry for an inline bitmap revision.
func (c *Cache) InsertBitmap(revision uint64) *Entry {
	e := &Entry{}
	c.bitmaps[revision] = e
	return e
}

// Len returns the total number of cached glyph entries across all faces.
func (c *Cache) Len() int {
	n := 0
	for _, fe := range c.faces {
		for i := range fe.glyphs {
			n += len(fe.glyphs[i])
		}
	}
	return n + len(c.bitmaps)
}

// Clear drops every entry across all faces and bitmap revisions. Called as
// part of an atlas reset; individual entries are never freed.
func (c *Cache) Clear() {
	clear(c.faces)
	clear(c.bitmaps)
}
