package client

import (
	"sync"

	"agentchat/internal/protocol"
)

// RingBuffer is a fixed-capacity circular buffer of inbound frames.
// It allows late subscribers to catch up on recent server messages.
type RingBuffer struct {
	mu       sync.RWMutex
	buf      []*protocol.Message
	capacity int
	pos      int // next write position
	full     bool
}

// NewRingBuffer creates a ring buffer with the given capacity.
func NewRingBuffer(capacity int) *RingBuffer {
	return &RingBuffer{
		buf:      make([]*protocol.Message, capacity),
		capacity: capacity,
	}
}

// Write adds a message to the ring buffer.
func (rb *RingBuffer) Write(msg *protocol.Message) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.buf[rb.pos] = msg
	rb.pos = (rb.pos + 1) % rb.capacity
	if rb.pos == 0 {
		rb.full = true
	}
}

// ReadAll returns all buffered messages in arrival order.
func (rb *RingBuffer) ReadAll() []*protocol.Message {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if !rb.full {
		result := make([]*protocol.Message, rb.pos)
		copy(result, rb.buf[:rb.pos])
		return result
	}

	result := make([]*protocol.Message, rb.capacity)
	copy(result, rb.buf[rb.pos:])
	copy(result[rb.capacity-rb.pos:], rb.buf[:rb.pos])
	return result
}
