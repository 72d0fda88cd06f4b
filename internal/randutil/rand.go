// Package randutil derives reproducible random streams from a single seed.
package randutil

import rand "math/rand/v2"

const goldenRatio64 = 0x9e3779b97f4a7c15

// New returns a PCG-backed *rand.Rand whose two state words are both derived
// from seed, so equal seeds replay equal sequences.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// Order returns a permutation of 0..n-1. Seed zero yields the identity, any
// other seed a shuffle that depends only on seed and n.
func Order(seed int64, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	if seed == 0 {
		return out
	}
	r := New(seed)
	r.Shuffle(n, func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// splitmix64 finaliser.
func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
