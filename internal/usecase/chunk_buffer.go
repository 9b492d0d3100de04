package usecase

import "sync"

// ChunkBuffer decouples the audio producer from the network sender.
// Append and DrainAll may be called from different goroutines.
type ChunkBuffer struct {
	mu     sync.Mutex
	chunks [][]byte
}

func NewChunkBuffer() *ChunkBuffer {
	return &ChunkBuffer{}
}

// Append adds a copy of chunk to the tail of the buffer.
func (b *ChunkBuffer) Append(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	copied := append([]byte(nil), chunk...)

	b.mu.Lock()
	b.chunks = append(b.chunks, copied)
	b.mu.Unlock()
}

// DrainAll removes and returns every pending chunk in arrival order.
func (b *ChunkBuffer) DrainAll() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.chunks) == 0 {
		return nil
	}
	drained := b.chunks
	b.chunks = nil
	return drained
}

// Clear discards all pending chunks.
func (b *ChunkBuffer) Clear() {
	b.mu.Lock()
	b.chunks = nil
	b.mu.Unlock()
}

func (b *ChunkBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.chunks)
}
