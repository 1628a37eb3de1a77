package core

import (
	"math/rand"
	"testing"
)

func TestSampleCosineHemisphere_StaysInHemisphere(t *testing.T) {
	normal := NewVec3(0, 1, 0)
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 256; i++ {
		dir := SampleCosineHemisphere(normal, NewVec2(rng.Float64(), rng.Float64()))
		if dir.Dot(normal) < -1e-9 {
			t.Fatalf("sampled direction %v is below the hemisphere plane", dir)
		}
	}
}

func TestSamplePointInUnitDisk_WithinUnitRadius(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 256; i++ {
		p := SamplePointInUnitDisk(NewVec2(rng.Float64(), rng.Float64()))
		if p.LengthSquared() > 1.0+1e-9 {
			t.Fatalf("point %v outside unit disk", p)
		}
		if p.Z != 0 {
			t.Fatalf("expected disk sample to lie in z=0 plane, got %v", p)
		}
	}
}
