package slices

import "sync"

// bufferPool recycles per-chunk partial histograms between turns.
type bufferPool struct {
	pool sync.Pool
	size int
}

func newBufferPool(size int) *bufferPool {
	return &bufferPool{
		size: size,
		pool: sync.Pool{
			New: func() interface{} {
				return make([]float64, size)
			},
		},
	}
}

func (p *bufferPool) Get() []float64 {
	return p.pool.Get().([]float64)
}

func (p *bufferPool) Put(b []float64) {
	if len(b) == p.size {
		for i := range b {
			b[i] = 0
		}
		p.pool.Put(b)
	}
}
