package group

import (
	"bytes"
	"crypto/rand"
	"testing"
)

func TestScalarEncodingRoundTrip(t *testing.T) {
	s, err := RandomScalar(rand.Reader)
	if err != nil {
		t.Fatalf("RandomScalar failed: %v", err)
	}
	enc := ScalarBytes(&s)
	dec, err := ScalarFromBytes(enc[:])
	if err != nil {
		t.Fatalf("ScalarFromBytes failed: %v", err)
	}
	if !dec.Equal(&s) {
		t.Errorf("scalar round trip mismatch")
	}
}

func TestScalarFromBytesRejectsNonCanonical(t *testing.T) {
	// All-0xFF little-endian is far above the group order.
	var buf [ScalarSize]byte
	for i := range buf {
		buf[i] = 0xFF
	}
	if _, err := ScalarFromBytes(buf[:]); err == nil {
		t.Errorf("expected non-canonical scalar to be rejected")
	}
	if _, err := ScalarFromBytes(buf[:16]); err == nil {
		t.Errorf("expected short encoding to be rejected")
	}
}

func TestPointEncodingRoundTrip(t *testing.T) {
	s, _ := RandomScalar(rand.Reader)
	ops := NewBN254Ops(rand.Reader)
	p := ops.BaseMul(&s)
	enc := PointBytes(&p)
	dec, err := PointFromBytes(enc[:])
	if err != nil {
		t.Fatalf("PointFromBytes failed: %v", err)
	}
	if !dec.Equal(&p) {
		t.Errorf("point round trip mismatch")
	}
}

func TestPointFromBytesRejectsGarbage(t *testing.T) {
	var buf [PointSize]byte
	for i := range buf {
		buf[i] = 0x5A
	}
	if _, err := PointFromBytes(buf[:]); err == nil {
		t.Errorf("expected garbage point encoding to be rejected")
	}
}

func TestGeneratorsAreDistinct(t *testing.T) {
	g := Basepoint()
	h := BlindingBasepoint()
	if g.Equal(&h) {
		t.Fatalf("G and H must be independent generators")
	}
	gi, hi, err := VectorGenerators(MaxRangeBits)
	if err != nil {
		t.Fatalf("VectorGenerators failed: %v", err)
	}
	seen := make(map[[PointSize]byte]bool)
	seen[PointBytes(&g)] = true
	seen[PointBytes(&h)] = true
	for i := 0; i < MaxRangeBits; i++ {
		for _, p := range []*Point{&gi[i], &hi[i]} {
			key := PointBytes(p)
			if seen[key] {
				t.Fatalf("duplicate generator at index %d", i)
			}
			seen[key] = true
		}
	}
}

func TestPedersenHomomorphism(t *testing.T) {
	ops := NewBN254Ops(rand.Reader)
	r1, _ := RandomScalar(rand.Reader)
	r2, _ := RandomScalar(rand.Reader)

	c1 := PedersenCommit(1000, &r1)
	c2 := PedersenCommit(2345, &r2)
	sum := ops.PointAdd(&c1, &c2)

	rSum := ops.ScalarAdd(&r1, &r2)
	expected := PedersenCommit(3345, &rSum)
	if !sum.Equal(&expected) {
		t.Errorf("commitment sum does not open to the summed value")
	}
}

func TestRandomScalarUsesInjectedReader(t *testing.T) {
	// A deterministic reader must give a deterministic scalar.
	fixed := bytes.Repeat([]byte{7}, 64)
	s1, err := RandomScalar(bytes.NewReader(fixed))
	if err != nil {
		t.Fatalf("RandomScalar failed: %v", err)
	}
	s2, _ := RandomScalar(bytes.NewReader(fixed))
	if !s1.Equal(&s2) {
		t.Errorf("same reader bytes must give the same scalar")
	}
	s3, _ := RandomScalar(rand.Reader)
	if s1.Equal(&s3) {
		t.Errorf("distinct randomness gave equal scalars")
	}
}
