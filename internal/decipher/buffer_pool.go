package decipher

import (
	"sync"
)

// bufferPool provides reusable chunk buffers of a single size for body reads.
type bufferPool struct {
	size int
	pool sync.Pool
}

func newBufferPool(size int) *bufferPool {
	bp := &bufferPool{size: size}
	bp.pool.New = func() any {
		buf := make([]byte, size)

		return &buf
	}

	return bp
}

func (bp *bufferPool) get() *[]byte {
	return bp.pool.Get().(*[]byte) //nolint:forcetypeassert // New always returns *[]byte
}

func (bp *bufferPool) put(buf *[]byte) {
	bp.pool.Put(buf)
}
