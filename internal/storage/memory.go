package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"storybook/internal/model"
)

type memoryEntry struct {
	story *model.Story
	seq   int64
}

// MemoryStore 进程内存储，并发安全，主要用于测试和本地开发
type MemoryStore struct {
	mu      sync.RWMutex
	seq     int64
	stories map[string]memoryEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{stories: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Create(_ context.Context, story *model.Story) (*model.Story, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := story.Clone()
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = time.Now().UTC()
	}
	s.seq++
	s.stories[out.ID] = memoryEntry{story: out, seq: s.seq}
	return out.Clone(), nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*model.Story, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.stories[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e.story.Clone(), nil
}

func (s *MemoryStore) ListRecent(_ context.Context, limit int) ([]model.StorySummary, error) {
	s.mu.RLock()
	entries := make([]memoryEntry, 0, len(s.stories))
	for _, e := range s.stories {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.story.CreatedAt.Equal(b.story.CreatedAt) {
			return a.story.CreatedAt.After(b.story.CreatedAt)
		}
		return a.seq > b.seq
	})

	limit = normalizeLimit(limit)
	if len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]model.StorySummary, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.story.Summarize())
	}
	return out, nil
}

func (s *MemoryStore) Update(_ context.Context, story *model.Story) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.stories[story.ID]
	if !ok {
		return ErrNotFound
	}
	updated := story.Clone()
	updated.CreatedAt = e.story.CreatedAt
	s.stories[story.ID] = memoryEntry{story: updated, seq: e.seq}
	return nil
}

var _ StoryStore = (*MemoryStore)(nil)
