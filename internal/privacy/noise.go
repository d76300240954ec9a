package privacy

import (
	"hash/fnv"
	"math"
)

// Seed maps an arbitrary key to a reproducible 32-bit value using FNV-1a.
// The same key always yields the same seed on every platform; changing any
// single character of the key yields an unrelated seed.
func Seed(key string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(key))
	return h.Sum32()
}

// Angle derives a bearing in [0, 2π) from a seed.
func Angle(seed uint32) float64 {
	return float64(seed%36000) / 36000.0 * 2 * math.Pi
}

// RadiusInRange derives a radius in whole meters within [min, max] from a seed.
func RadiusInRange(seed uint32, min, max int) float64 {
	span := uint32(max - min + 1)
	return float64(seed%span) + float64(min)
}
