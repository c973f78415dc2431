// Package glyph implements the glyph cache and rasterizer sitting on top of
// the atlas: it turns (font face, line rendition, glyph index) keys into
// cached atlas placements plus the shading metadata the compositor needs.
//
// Four glyph classes are handled by one rasterizer:
//   - outline glyphs, filled from go-text/typesetting segment data
//   - color bitmap glyphs (emoji), decoded and scaled into the atlas
//   - builtin box drawing and block element glyphs, drawn procedurally
//     from coordinate tables without any font face
//   - soft font glyphs, decoded from a packed DRCS bit pattern
//
// The cache performs no per-entry eviction. When the atlas cannot satisfy an
// allocation every entry across all faces is flushed and the atlas is reset
// to its next size as one atomic step, then the allocation is retried once.
package glyph
