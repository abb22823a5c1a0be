package genetic

import "math/rand"

// RandPool holds independently seeded generators handed out for exclusive use
// by one logical task at a time. math/rand.Rand is not goroutine-safe, so a
// generator must be returned by the task that checked it out and never shared
// across concurrent tasks. Get blocks briefly when the pool is exhausted.
type RandPool struct {
	handles chan *rand.Rand
}

// NewRandPool builds a pool of size generators, each seeded from a distinct
// stream derived from the run seed, so runs are reproducible for a fixed seed
// and pool size.
func NewRandPool(size int, seed int64) *RandPool {
	if size < 1 {
		size = 1
	}
	p := &RandPool{handles: make(chan *rand.Rand, size)}
	for i := 0; i < size; i++ {
		p.handles <- rand.New(rand.NewSource(deriveSeed(seed, uint64(i))))
	}
	return p
}

// Get checks a generator out of the pool, blocking until one is available.
func (p *RandPool) Get() *rand.Rand {
	return <-p.handles
}

// Put returns a generator to the pool.
func (p *RandPool) Put(g *rand.Rand) {
	p.handles <- g
}

// deriveSeed mixes a parent seed and a stream id with a SplitMix64-style
// finalizer so sibling streams are decorrelated.
func deriveSeed(parent int64, stream uint64) int64 {
	x := uint64(parent) ^ (stream + 0x9e3779b97f4a7c15)
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	x ^= x >> 31
	return int64(x)
}
