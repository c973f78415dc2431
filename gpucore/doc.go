// Package gpucore provides shared GPU abstractions for the termgrid compositor.
//
// This package defines the [Adapter] interface, which abstracts over different
// GPU backend implementations, allowing the same compositing pass to work with:
//   - gogpu/wgpu (Pure Go WebGPU via HAL)
//   - in-memory software adapters used in tests
//
// # Architecture
//
// The compositor records one compute pass per frame that shades every cell of
// the terminal viewport. The pass reads the glyph atlas texture, the cell
// buffer, and a small constant buffer, and writes the swap chain sized target
// texture. Backends only need to implement resource creation, uploads, and
// compute dispatch; everything above that layer is backend independent.
//
//	               +-----------------+
//	               |    compose      |
//	               |  (Compositor)   |
//	               +--------+--------+
//	                        |
//	         +--------------+--------------+
//	         |                             |
//	+--------v--------+          +--------v--------+
//	|   wgpu adapter  |          |  soft adapter   |
//	|  (hal.Device)   |          |  (in-memory)    |
//	+-----------------+          +-----------------+
//
// # Resource Management
//
// GPU resources are managed via opaque IDs ([BufferID], [TextureID], etc.).
// The [Adapter] interface provides creation and destruction methods for each
// resource type. Adapters are responsible for tracking the mapping between
// IDs and actual GPU resources.
//
// # CPU Fallback
//
// When an adapter reports SupportsCompute() == false, the compositor shades
// cells on the CPU with the same blend rules the shader implements, and the
// adapter is only used as a pixel store for the atlas and the target.
package gpucore
