package engine

import (
	"bytes"
	"sync"
)

// DefaultMaxOutputBytes caps captured output per run.
const DefaultMaxOutputBytes int64 = 1 << 20

// limitedBuffer keeps the first max bytes written to it and counts the rest.
// Writes never fail, so a chatty program is not killed by a short write.
type limitedBuffer struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	max       int64
	discarded int64
}

func newLimitedBuffer(max int64) *limitedBuffer {
	if max <= 0 {
		max = DefaultMaxOutputBytes
	}
	return &limitedBuffer{max: max}
}

func (lb *limitedBuffer) Write(p []byte) (int, error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	remaining := lb.max - int64(lb.buf.Len())
	if remaining <= 0 {
		lb.discarded += int64(len(p))
		return len(p), nil
	}
	if int64(len(p)) > remaining {
		lb.buf.Write(p[:remaining])
		lb.discarded += int64(len(p)) - remaining
		return len(p), nil
	}
	return lb.buf.Write(p)
}

func (lb *limitedBuffer) String() string {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.buf.String()
}

func (lb *limitedBuffer) Truncated() bool {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.discarded > 0
}
