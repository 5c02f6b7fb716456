package assets

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

type blob struct {
	data        []byte
	contentType string
}

// MemoryStore 进程内资源存储，用于本地开发和测试，由 /assets/:name 对外提供
type MemoryStore struct {
	mu      sync.RWMutex
	blobs   map[string]blob
	baseURL string
}

func NewMemoryStore(publicBaseURL string) *MemoryStore {
	return &MemoryStore{
		blobs:   make(map[string]blob),
		baseURL: strings.TrimSuffix(publicBaseURL, "/"),
	}
}

func (s *MemoryStore) Put(_ context.Context, name string, data []byte, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.blobs[name]; exists {
		return "", fmt.Errorf("asset %s already exists", name)
	}
	s.blobs[name] = blob{data: append([]byte(nil), data...), contentType: contentType}
	return s.baseURL + "/assets/" + name, nil
}

// Get 返回资源数据和内容类型
func (s *MemoryStore) Get(name string) ([]byte, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[name]
	if !ok {
		return nil, "", false
	}
	return b.data, b.contentType, true
}

// Len 已保存的资源数
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}

var _ Store = (*MemoryStore)(nil)
