package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

type Object struct {
	Data        []byte
	ContentType string
}

// MemoryStorage keeps objects in process. Used in tests and when no S3 endpoint is configured.
type MemoryStorage struct {
	mu             sync.RWMutex
	objects        map[string]Object
	publicEndpoint string
}

func NewMemoryStorage(publicEndpoint string) *MemoryStorage {
	return &MemoryStorage{
		objects:        make(map[string]Object),
		publicEndpoint: strings.TrimRight(publicEndpoint, "/"),
	}
}

func (m *MemoryStorage) Put(_ context.Context, bucket, key string, data []byte, contentType string) error {
	cp := make([]byte, len(data))
	copy(cp, data)

	m.mu.Lock()
	m.objects[bucket+"/"+key] = Object{Data: cp, ContentType: contentType}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStorage) Remove(_ context.Context, bucket, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.objects[bucket+"/"+key]; !ok {
		return fmt.Errorf("object %s/%s not found", bucket, key)
	}
	delete(m.objects, bucket+"/"+key)
	return nil
}

func (m *MemoryStorage) PublicURL(bucket, key string) string {
	return fmt.Sprintf("%s/%s/%s", m.publicEndpoint, bucket, key)
}

func (m *MemoryStorage) Get(bucket, key string) (Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.objects[bucket+"/"+key]
	return o, ok
}

func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
