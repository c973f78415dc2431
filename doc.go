// Package termgrid composes terminal frames as a grid of cells.
//
// # Overview
//
// termgrid takes rows of externally shaped text plus per-cell colors and
// decorations, rasterizes glyphs into a cached texture atlas, and composes
// the frame in one bulk pass per pixel. The compositor runs as a compute
// shader on a GPU adapter when one is provided, and on the CPU otherwise,
// with identical results.
//
// # Quick Start
//
//	r := termgrid.New(termgrid.DefaultConfig())
//
//	payload := &termgrid.Payload{
//		Settings: settings,
//		Rows:     rows,
//	}
//	if err := r.Render(payload); err != nil {
//		// handle
//	}
//	pixels, _ := r.Target()
//
// # Architecture
//
// The library is organized into:
//   - Public API: Renderer, Payload, Settings
//   - atlas: shelf-packed glyph texture atlas with a growth policy
//   - glyph: glyph cache, font/builtin/soft-font rasterization
//   - grid: the per-cell GPU record layout and decoration quads
//   - compose: the cell compositor and post processing shaders
//   - backend: GPU adapters (soft for tests, wgpu for hardware)
//
// # Coordinate System
//
// Pixels use top-left origin, X right, Y down. Colors are 0xAABBGGRR
// with red in the low byte, matching RGBA8 memory order.
package termgrid

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0
)
