package video

import (
	"context"
	"sort"
	"sync"
	"time"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-memory Store used by handler-level tests and local
// development without a database.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	videos map[int64]*Video
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1, videos: make(map[int64]*Video)}
}

func (s *MemoryStore) Create(_ context.Context, v *Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v.ID = s.nextID
	s.nextID++
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	for i := range v.Lines {
		v.Lines[i].ID = int64(i + 1)
	}
	for i := range v.Masks {
		v.Masks[i].ID = int64(i + 1)
	}
	clone := cloneVideo(v)
	s.videos[v.ID] = clone
	return nil
}

func (s *MemoryStore) Find(_ context.Context, id int64) (*Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.videos[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneVideo(v), nil
}

func (s *MemoryStore) List(_ context.Context) ([]*Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]*Video, 0, len(s.videos))
	for _, v := range s.videos {
		res = append(res, cloneVideo(v))
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].ID > res[j].ID
		}
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	return res, nil
}

func (s *MemoryStore) Delete(_ context.Context, id int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.videos[id]
	if !ok {
		return "", ErrNotFound
	}
	delete(s.videos, id)
	return v.FilePath, nil
}

func cloneVideo(v *Video) *Video {
	clone := *v
	clone.Lines = append([]Line(nil), v.Lines...)
	clone.Masks = append([]Mask(nil), v.Masks...)
	if clone.Lines == nil {
		clone.Lines = []Line{}
	}
	if clone.Masks == nil {
		clone.Masks = []Mask{}
	}
	return &clone
}
