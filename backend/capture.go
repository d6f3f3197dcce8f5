package backend

import (
	"sync"

	"github.com/aerogpu/aero9/cmdstream"
)

// CaptureBackend validates every submitted stream and retains a copy. It
// is the always-available fallback backend, used by tests and stream
// tooling that want to inspect what a device produced without a GPU.
type CaptureBackend struct {
	mu          sync.Mutex
	initialized bool
	streams     [][]byte
}

// init registers the capture backend on package import.
func init() {
	Register(BackendCapture, func() Backend {
		return &CaptureBackend{}
	})
}

// NewCaptureBackend creates a new capture backend.
func NewCaptureBackend() *CaptureBackend {
	return &CaptureBackend{}
}

// Name returns the backend identifier.
func (b *CaptureBackend) Name() string {
	return BackendCapture
}

// Init initializes the backend.
func (b *CaptureBackend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.initialized = true
	return nil
}

// Close releases retained streams.
func (b *CaptureBackend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.streams = nil
	b.initialized = false
}

// Submit validates the stream and retains a copy.
func (b *CaptureBackend) Submit(stream []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return ErrNotInitialized
	}
	if _, err := cmdstream.Validate(stream); err != nil {
		return err
	}
	b.streams = append(b.streams, append([]byte(nil), stream...))
	return nil
}

// Streams returns the retained streams in submission order. The returned
// slice is a snapshot; submitted stream contents are not aliased.
func (b *CaptureBackend) Streams() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([][]byte, len(b.streams))
	copy(out, b.streams)
	return out
}

// CountOpcode counts packets with the given opcode across every retained
// stream.
func (b *CaptureBackend) CountOpcode(op cmdstream.Opcode) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	var n int
	for _, raw := range b.streams {
		s, err := cmdstream.Validate(raw)
		if err != nil {
			continue
		}
		n += s.CountOpcode(op)
	}
	return n
}

// Reset discards retained streams but keeps the backend initialized.
func (b *CaptureBackend) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.streams = b.streams[:0]
}
