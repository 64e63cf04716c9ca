package bufferpool

import (
	"encoding/binary"
	"math"

	"github.com/podcopic-labs/ivfcore/internal/ivf"
)

// decodeFloat32LE decodes little-endian float32 entries from raw into
// dst, matching the slab's on-disk vector layout.
func decodeFloat32LE(raw []byte, dst []float32) {
	for i := range dst {
		bits := binary.LittleEndian.Uint32(raw[i*4 : i*4+4])
		dst[i] = math.Float32frombits(bits)
	}
}

// decodeInt64LE decodes little-endian int64 entries from raw into dst,
// matching the slab's on-disk id layout.
func decodeInt64LE(raw []byte, dst []ivf.VectorID) {
	for i := range dst {
		dst[i] = ivf.VectorID(binary.LittleEndian.Uint64(raw[i*8 : i*8+8]))
	}
}
