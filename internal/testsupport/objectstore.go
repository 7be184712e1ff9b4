package testsupport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cochranfilms/coursecreatoracademy/internal/storage"
)

// MemoryStorage is an in-process storage.Storage that records writes.
// Fail* hooks inject errors per key.
type MemoryStorage struct {
	mu      sync.Mutex
	objects map[string][]byte

	Uploads []string
	Copies  []string
	Deletes []string

	FailList     error
	FailDownload map[string]error
	FailUpload   map[string]error
	FailDelete   map[string]error
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		objects:      make(map[string][]byte),
		FailDownload: make(map[string]error),
		FailUpload:   make(map[string]error),
		FailDelete:   make(map[string]error),
	}
}

// Put seeds an object without recording an upload.
func (m *MemoryStorage) Put(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), data...)
}

// Has reports whether key is stored.
func (m *MemoryStorage) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

// Keys returns every stored key, sorted.
func (m *MemoryStorage) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *MemoryStorage) List(ctx context.Context, prefix string) ([]storage.Object, error) {
	if m.FailList != nil {
		return nil, m.FailList
	}
	var objects []storage.Object
	for _, k := range m.Keys() {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		m.mu.Lock()
		size := int64(len(m.objects[k]))
		m.mu.Unlock()
		objects = append(objects, storage.Object{Key: k, Size: size, Updated: time.Now()})
	}
	return objects, nil
}

func (m *MemoryStorage) Exists(ctx context.Context, key string) (bool, error) {
	return m.Has(key), nil
}

func (m *MemoryStorage) Upload(ctx context.Context, key string, body io.Reader, contentType string) error {
	if err := m.FailUpload[key]; err != nil {
		return err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	m.Uploads = append(m.Uploads, key)
	return nil
}

func (m *MemoryStorage) Download(ctx context.Context, key string, w io.Writer) (int64, error) {
	if err := m.FailDownload[key]; err != nil {
		return 0, err
	}
	m.mu.Lock()
	data, ok := m.objects[key]
	m.mu.Unlock()
	if !ok {
		return 0, storage.ErrObjectNotFound
	}
	return io.Copy(w, bytes.NewReader(data))
}

func (m *MemoryStorage) Copy(ctx context.Context, src, dst string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[src]
	if !ok {
		return storage.ErrObjectNotFound
	}
	m.objects[dst] = append([]byte(nil), data...)
	m.Copies = append(m.Copies, src+" -> "+dst)
	return nil
}

func (m *MemoryStorage) Delete(ctx context.Context, key string) error {
	if err := m.FailDelete[key]; err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return storage.ErrObjectNotFound
	}
	delete(m.objects, key)
	m.Deletes = append(m.Deletes, key)
	return nil
}

func (m *MemoryStorage) Close() error {
	return nil
}

var _ storage.Storage = (*MemoryStorage)(nil)

// ErrInjected is a generic failure for Fail* hooks.
var ErrInjected = errors.New("injected failure")
