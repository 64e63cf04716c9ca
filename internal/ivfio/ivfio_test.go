package ivfio

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name string, b []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, b, 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestReadFloat32File(t *testing.T) {
	var buf []byte
	for _, f := range []float32{1.5, -2.25, 0} {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(f))
		buf = append(buf, b[:]...)
	}
	path := writeFile(t, "vecs.bin", buf)

	got, err := ReadFloat32File(path)
	if err != nil {
		t.Fatalf("ReadFloat32File: %v", err)
	}
	want := []float32{1.5, -2.25, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestReadInt64File(t *testing.T) {
	var buf []byte
	for _, v := range []int64{1, -2, 1 << 40} {
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], uint64(v))
		buf = append(buf, b[:]...)
	}
	path := writeFile(t, "ids.bin", buf)

	got, err := ReadInt64File(path)
	if err != nil {
		t.Fatalf("ReadInt64File: %v", err)
	}
	want := []int64{1, -2, 1 << 40}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestReadBvecsDecodesRecords(t *testing.T) {
	var buf []byte
	appendRecord := func(vals []byte) {
		var dimB [4]byte
		binary.LittleEndian.PutUint32(dimB[:], uint32(len(vals)))
		buf = append(buf, dimB[:]...)
		buf = append(buf, vals...)
	}
	appendRecord([]byte{1, 2, 3})
	appendRecord([]byte{4, 5, 6})
	path := writeFile(t, "data.bvecs", buf)

	vectors, dim, err := ReadBvecs(path)
	if err != nil {
		t.Fatalf("ReadBvecs: %v", err)
	}
	if dim != 3 {
		t.Fatalf("dim = %d, want 3", dim)
	}
	if len(vectors) != 2 {
		t.Fatalf("len(vectors) = %d, want 2", len(vectors))
	}
	if vectors[0][0] != 1 || vectors[0][2] != 3 {
		t.Fatalf("vectors[0] = %v", vectors[0])
	}
	if vectors[1][1] != 5 {
		t.Fatalf("vectors[1] = %v", vectors[1])
	}
}

func TestReadIvecsDecodesRecords(t *testing.T) {
	var buf []byte
	appendRow := func(vals []int32) {
		var countB [4]byte
		binary.LittleEndian.PutUint32(countB[:], uint32(len(vals)))
		buf = append(buf, countB[:]...)
		for _, v := range vals {
			var b [4]byte
			binary.LittleEndian.PutUint32(b[:], uint32(v))
			buf = append(buf, b[:]...)
		}
	}
	appendRow([]int32{10, 20, 30})
	appendRow([]int32{-1, 40})
	path := writeFile(t, "gt.ivecs", buf)

	rows, err := ReadIvecs(path)
	if err != nil {
		t.Fatalf("ReadIvecs: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	if rows[0][0] != 10 || rows[0][2] != 30 {
		t.Fatalf("rows[0] = %v", rows[0])
	}
	if rows[1][0] != -1 || rows[1][1] != 40 {
		t.Fatalf("rows[1] = %v", rows[1])
	}
}

func TestReadCentroidsFileValidatesSize(t *testing.T) {
	var buf []byte
	for i := 0; i < 6; i++ {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(float32(i)))
		buf = append(buf, b[:]...)
	}
	path := writeFile(t, "centroids.bin", buf)

	if _, err := ReadCentroidsFile(path, 2, 3); err != nil {
		t.Fatalf("ReadCentroidsFile: %v", err)
	}
	if _, err := ReadCentroidsFile(path, 4, 4); err == nil {
		t.Fatalf("expected size mismatch error")
	}
}
