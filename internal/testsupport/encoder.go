package testsupport

import (
	"context"
	"os"
	"sync"
)

// FakeEncoder stands in for ffmpeg. It writes Output (or a short default
// payload) to dst, or returns Err without writing anything.
type FakeEncoder struct {
	mu     sync.Mutex
	Output []byte
	Err    error
	Empty  bool
	Calls  []string
}

func (e *FakeEncoder) Encode(ctx context.Context, src, dst string) error {
	e.mu.Lock()
	e.Calls = append(e.Calls, src)
	e.mu.Unlock()

	if e.Err != nil {
		return e.Err
	}
	if _, err := os.Stat(src); err != nil {
		return err
	}
	data := e.Output
	if data == nil {
		data = []byte("mp4 payload")
	}
	if e.Empty {
		data = nil
	}
	return os.WriteFile(dst, data, 0o644)
}

// CallCount returns how many times Encode ran.
func (e *FakeEncoder) CallCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Calls)
}
