// Package atlas implements the glyph atlas texture: a shelf packed
// rectangle allocator over a CPU side pixel store, with a dirty rect that
// tells the uploader which rows changed since the last frame.
//
// The atlas never grows in place. When packing fails the owner computes the
// next power of two size with [NextSize], discards every cached texcoord,
// and rebuilds the atlas from scratch. This mirrors how glyph caches on top
// of it are flushed wholesale rather than evicted entry by entry.
package atlas
