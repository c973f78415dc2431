// Package compose turns the per-frame cell grid, glyph atlas and decoration
// quads into pixels. It runs as one bulk pass over the whole target: a
// compute dispatch when the adapter supports it, otherwise a pixel loop on
// the CPU with identical blend formulas.
//
// The CPU path in shading.go is the reference for all blend math. The
// embedded compute shader mirrors it and must be kept in sync.
//
// An optional post-process stage (PostStage) reruns over the composited
// frame with a user supplied shader. Compile failures degrade the frame to
// no post effect instead of failing the render.
package compose
