package storage

import (
	"context"
	"net/url"
	"sync"
	"time"
)

type memoryObject struct {
	body        []byte
	contentType string
}

// MemoryStore is an ArchiveStore kept in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memoryObject)}
}

func (m *MemoryStore) PutObject(_ context.Context, objectKey string, body []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[objectKey] = memoryObject{body: append([]byte(nil), body...), contentType: contentType}
	return nil
}

func (m *MemoryStore) GetObject(_ context.Context, objectKey string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[objectKey]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return append([]byte(nil), obj.body...), nil
}

// GeneratePresignedDownloadURL returns a memory:// URL; nothing can fetch it.
func (m *MemoryStore) GeneratePresignedDownloadURL(_ context.Context, objectKey string, expires time.Duration) (string, error) {
	if expires <= 0 {
		expires = DefaultPresignedURLExpiry
	}
	m.mu.RLock()
	_, ok := m.objects[objectKey]
	m.mu.RUnlock()
	if !ok {
		return "", ErrObjectNotFound
	}
	u := url.URL{Scheme: "memory", Path: "/" + objectKey, RawQuery: url.Values{"expires": {expires.String()}}.Encode()}
	return u.String(), nil
}

func (m *MemoryStore) DeleteObject(_ context.Context, objectKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, objectKey)
	return nil
}

// Keys lists the stored object keys.
func (m *MemoryStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	return keys
}
