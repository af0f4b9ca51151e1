package fragment

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/maruel/natural"
)

// MemoryStore keeps fragments in process memory. Stored content is isolated
// from callers: it is copied both ways.
type MemoryStore struct {
	mu    sync.Mutex
	items map[ID]*Fragment
}

func NewMemoryStore(fragments ...*Fragment) *MemoryStore {
	s := &MemoryStore{items: make(map[ID]*Fragment, len(fragments))}
	for _, f := range fragments {
		s.items[f.ID] = copyFragment(f, f.ID)
	}
	return s
}

func (s *MemoryStore) Resolve(ctx context.Context, id ID) (*Fragment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return copyFragment(f, f.ID), nil
}

func (s *MemoryStore) Persist(ctx context.Context, f *Fragment) (ID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f == nil || f.Content == nil {
		return "", fmt.Errorf("nothing to persist")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id := f.ID
	if _, ok := s.items[id]; !ok {
		nid, err := uuid.NewV7()
		if err != nil {
			return "", fmt.Errorf("unable to allocate fragment id: %w", err)
		}
		id = ID(nid.String())
	}
	s.items[id] = copyFragment(f, id)
	return id, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*Fragment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := slices.Collect(maps.Keys(s.items))
	sort.Sort(stringIDs(keys))

	result := make([]*Fragment, 0, len(keys))
	for _, k := range keys {
		result = append(result, copyFragment(s.items[k], k))
	}
	return result, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func copyFragment(f *Fragment, id ID) *Fragment {
	return &Fragment{
		ID:      id,
		Title:   f.Title,
		Content: f.Content.Copy(),
	}
}

// stringIDs lets natural ordering sort ID slice in place.
type stringIDs []ID

func (s stringIDs) Len() int           { return len(s) }
func (s stringIDs) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }
func (s stringIDs) Less(i, j int) bool { return natural.Less(string(s[i]), string(s[j])) }
