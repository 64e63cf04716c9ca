// Package ivfio reads the flat little-endian binary files named in spec
// §6 (vectors, vector ids, list ids, centroids) plus the bvecs/ivecs
// dataset formats used by the original benchmark harness
// (original_source/include/Utils.hpp, Utils.cpp) so recall tests can be
// written against real file layouts instead of invented ones.
package ivfio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/podcopic-labs/ivfcore/internal/ivf"
	"github.com/podcopic-labs/ivfcore/internal/ivferrors"
)

// ReadFloat32File reads path as a flat array of little-endian float32
// values (the vectors and centroids file layout).
func ReadFloat32File(path string) ([]float32, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %q: %v", ivferrors.ErrIO, path, err)
	}
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("%w: %q length %d is not a multiple of 4", ivferrors.ErrFormat, path, len(raw))
	}
	out := make([]float32, len(raw)/4)
	decodeFloat32LE(raw, out)
	return out, nil
}

// ReadInt64File reads path as a flat array of little-endian int64 values
// (the vector ids and list ids file layout).
func ReadInt64File(path string) ([]int64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %q: %v", ivferrors.ErrIO, path, err)
	}
	if len(raw)%8 != 0 {
		return nil, fmt.Errorf("%w: %q length %d is not a multiple of 8", ivferrors.ErrFormat, path, len(raw))
	}
	out := make([]int64, len(raw)/8)
	for i := range out {
		out[i] = int64(binary.LittleEndian.Uint64(raw[i*8 : i*8+8]))
	}
	return out, nil
}

// ReadCentroidsFile reads a centroids file expected to hold exactly
// nLists*dim float32 values.
func ReadCentroidsFile(path string, nLists, dim int) ([]float32, error) {
	vals, err := ReadFloat32File(path)
	if err != nil {
		return nil, err
	}
	if len(vals) != nLists*dim {
		return nil, fmt.Errorf("%w: centroids file %q has %d floats, want %d (nLists*dim)", ivferrors.ErrFormat, path, len(vals), nLists*dim)
	}
	return vals, nil
}

// ReadBvecs decodes a .bvecs file: a sequence of records, each a
// little-endian int32 dimension followed by that many uint8 components,
// converted to float32 per component (alloc_query_as_float in the
// original). All records must share the same dimension.
func ReadBvecs(path string) (vectors [][]float32, dim int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: open %q: %v", ivferrors.ErrIO, path, err)
	}
	defer f.Close()

	var header [4]byte
	for {
		if _, err := io.ReadFull(f, header[:]); err != nil {
			if err == io.EOF {
				break
			}
			return nil, 0, fmt.Errorf("%w: read bvecs header in %q: %v", ivferrors.ErrIO, path, err)
		}
		d := int(binary.LittleEndian.Uint32(header[:]))
		if dim == 0 {
			dim = d
		} else if d != dim {
			return nil, 0, fmt.Errorf("%w: %q has inconsistent dimension %d, expected %d", ivferrors.ErrFormat, path, d, dim)
		}
		raw := make([]byte, d)
		if _, err := io.ReadFull(f, raw); err != nil {
			return nil, 0, fmt.Errorf("%w: read bvecs body in %q: %v", ivferrors.ErrIO, path, err)
		}
		v := make([]float32, d)
		for i, b := range raw {
			v[i] = float32(b)
		}
		vectors = append(vectors, v)
	}
	return vectors, dim, nil
}

// ReadIvecs decodes a .ivecs file: a sequence of records, each a
// little-endian int32 count followed by that many int32 values (the
// groundtruth file layout).
func ReadIvecs(path string) (rows [][]ivf.VectorID, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %q: %v", ivferrors.ErrIO, path, err)
	}
	defer f.Close()

	var header [4]byte
	for {
		if _, err := io.ReadFull(f, header[:]); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("%w: read ivecs header in %q: %v", ivferrors.ErrIO, path, err)
		}
		count := int(binary.LittleEndian.Uint32(header[:]))
		raw := make([]byte, count*4)
		if _, err := io.ReadFull(f, raw); err != nil {
			return nil, fmt.Errorf("%w: read ivecs body in %q: %v", ivferrors.ErrIO, path, err)
		}
		row := make([]ivf.VectorID, count)
		for i := 0; i < count; i++ {
			row[i] = ivf.VectorID(int32(binary.LittleEndian.Uint32(raw[i*4 : i*4+4])))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func decodeFloat32LE(raw []byte, dst []float32) {
	for i := range dst {
		bits := binary.LittleEndian.Uint32(raw[i*4 : i*4+4])
		dst[i] = math.Float32frombits(bits)
	}
}
