package request

import "sync"

const (
	smallBufferSize  = 4 << 10
	mediumBufferSize = 32 << 10
)

// Read buffers are pooled per size class. Buffers of any other capacity
// are left to the GC.
var (
	smallBuffers = sync.Pool{
		New: func() any {
			buf := make([]byte, smallBufferSize)
			return &buf
		},
	}
	mediumBuffers = sync.Pool{
		New: func() any {
			buf := make([]byte, mediumBufferSize)
			return &buf
		},
	}
)

// getBuffer returns a buffer of exactly size bytes, pooled when size fits a
// size class.
func getBuffer(size int) []byte {
	switch {
	case size <= smallBufferSize:
		buf := smallBuffers.Get().(*[]byte)
		return (*buf)[:size]
	case size <= mediumBufferSize:
		buf := mediumBuffers.Get().(*[]byte)
		return (*buf)[:size]
	default:
		return make([]byte, size)
	}
}

func putBuffer(buf []byte) {
	switch cap(buf) {
	case smallBufferSize:
		full := buf[:smallBufferSize]
		smallBuffers.Put(&full)
	case mediumBufferSize:
		full := buf[:mediumBufferSize]
		mediumBuffers.Put(&full)
	}
}
