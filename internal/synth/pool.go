package synth

import "sync"

// scratchPool recycles convolution buffers of one resolution. Callers
// overwrite a buffer before reading it, so returned buffers are not cleared.
type scratchPool struct {
	pool sync.Pool
	size int
}

func newScratchPool(size int) *scratchPool {
	p := &scratchPool{size: size}
	p.pool.New = func() any {
		buf := make([]float64, size)
		return &buf
	}
	return p
}

func (p *scratchPool) get() *[]float64 {
	return p.pool.Get().(*[]float64)
}

func (p *scratchPool) put(buf *[]float64) {
	if len(*buf) == p.size {
		p.pool.Put(buf)
	}
}
