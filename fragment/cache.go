package fragment

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"reblock/block"
)

// DefaultTemporaryPrefix starts identifiers of fragments not persisted yet.
const DefaultTemporaryPrefix = "reusable-"

type entry struct {
	fragment *Fragment
	pending  bool
	missing  bool
}

// Cache is the registry of fragments known to the editor: created locally
// and not saved yet, or fetched from the store. Canonical content of a
// fragment changes only through Commit.
type Cache struct {
	store  Store
	log    *zap.Logger
	prefix string

	mu      sync.Mutex
	entries map[ID]*entry
	seq     uint64

	// at most one fetch per id is in flight
	fetches singleflight.Group
}

// CacheOption customises the cache.
type CacheOption func(*Cache)

// WithTemporaryPrefix overrides prefix of temporary identifiers.
func WithTemporaryPrefix(prefix string) CacheOption {
	return func(c *Cache) {
		if strings.TrimSpace(prefix) != "" {
			c.prefix = strings.TrimSpace(prefix)
		}
	}
}

func NewCache(store Store, log *zap.Logger, opts ...CacheOption) *Cache {
	c := &Cache{
		store:   store,
		log:     log.Named("fragments"),
		prefix:  DefaultTemporaryPrefix,
		entries: make(map[ID]*entry),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// IsTemporary reports whether id was allocated locally for fragment which
// has not been persisted yet.
func (c *Cache) IsTemporary(id ID) bool {
	rest, ok := strings.CutPrefix(string(id), c.prefix)
	if !ok || rest == "" {
		return false
	}
	_, err := strconv.ParseUint(rest, 10, 64)
	return err == nil
}

// NewTemporaryID allocates identifier not colliding with any fragment known
// to the cache.
func (c *Cache) NewTemporaryID() ID {
	c.mu.Lock()
	defer c.mu.Unlock()

	for {
		c.seq++
		id := ID(c.prefix + strconv.FormatUint(c.seq, 10))
		if _, exists := c.entries[id]; !exists {
			return id
		}
	}
}

// Receive registers fragment. Cache takes ownership of the fragment and its
// content, nothing is copied.
func (c *Cache) Receive(f *Fragment) error {
	if f == nil || f.ID == "" {
		return errors.New("fragment: unable to register fragment without id")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, exists := c.entries[f.ID]; exists && e.pending {
		return fmt.Errorf("%w: %q", ErrResolutionPending, f.ID)
	}
	c.entries[f.ID] = &entry{fragment: f}
	c.log.Debug("Fragment received", zap.Stringer("id", f.ID), zap.String("title", f.Title))
	return nil
}

// Lookup returns known fragment without blocking.
func (c *Cache) Lookup(id ID) (*Fragment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	switch {
	case !ok || e.missing:
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	case e.pending:
		return nil, fmt.Errorf("%w: %q", ErrResolutionPending, id)
	}
	return e.fragment, nil
}

// Fetch returns fragment, resolving it through the store when necessary.
// Concurrent fetches of the same id share a single store request. Failed
// resolution is remembered, subsequent Lookup reports ErrNotFound until the
// next Fetch.
func (c *Cache) Fetch(ctx context.Context, id ID) (*Fragment, error) {
	c.mu.Lock()
	if e, ok := c.entries[id]; ok && e.fragment != nil {
		c.mu.Unlock()
		return e.fragment, nil
	}
	if c.IsTemporary(id) {
		// never left this process, store knows nothing about it
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	c.entries[id] = &entry{pending: true}
	c.mu.Unlock()

	v, err, shared := c.fetches.Do(string(id), func() (any, error) {
		c.mu.Lock()
		if e, ok := c.entries[id]; ok && e.fragment != nil {
			// previous flight finished while we were getting here
			c.mu.Unlock()
			return e.fragment, nil
		}
		c.mu.Unlock()

		f, err := c.store.Resolve(ctx, id)

		c.mu.Lock()
		defer c.mu.Unlock()
		if err != nil {
			c.entries[id] = &entry{missing: true}
			return nil, err
		}
		c.entries[id] = &entry{fragment: f}
		return f, nil
	})
	if err != nil {
		c.log.Debug("Fragment fetch failed", zap.Stringer("id", id), zap.Bool("shared", shared), zap.Error(err))
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("unable to fetch fragment %q: %w", id, err)
	}
	c.log.Debug("Fragment fetched", zap.Stringer("id", id), zap.Bool("shared", shared))
	return v.(*Fragment), nil
}

// Commit replaces canonical content of the fragment. Cache takes ownership
// of the content.
func (c *Cache) Commit(id ID, content *block.Node) error {
	if content == nil {
		return fmt.Errorf("%w: empty content for fragment %q", block.ErrMalformedBlock, id)
	}
	if err := block.Validate([]*block.Node{content}); err != nil {
		return fmt.Errorf("unable to commit fragment %q: %w", id, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok || e.fragment == nil {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	// fragment objects handed out earlier stay intact
	e.fragment = &Fragment{ID: id, Title: e.fragment.Title, Content: content}
	c.log.Debug("Fragment committed", zap.Stringer("id", id), zap.Int("blocks", block.Count([]*block.Node{content})))
	return nil
}

// Save persists fragment. Temporary fragment gets permanent identifier, it is
// returned and from now on the fragment is known only under it. On failure
// cache is not changed and save could be retried.
func (c *Cache) Save(ctx context.Context, id ID) (ID, error) {
	f, err := c.Lookup(id)
	if err != nil {
		return "", err
	}

	persisted, err := c.store.Persist(ctx, f)
	if err != nil {
		c.log.Warn("Unable to persist fragment", zap.Stringer("id", id), zap.Error(err))
		return "", fmt.Errorf("%w: %q: %w", ErrPersistFailure, id, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if persisted != id {
		if _, exists := c.entries[persisted]; exists {
			return "", fmt.Errorf("%w: store returned known fragment id %q for %q", ErrIdentifierCollision, persisted, id)
		}
		delete(c.entries, id)
		c.entries[persisted] = &entry{fragment: &Fragment{ID: persisted, Title: f.Title, Content: f.Content}}
		c.log.Debug("Fragment persisted under new id", zap.Stringer("temporary", id), zap.Stringer("id", persisted))
		return persisted, nil
	}
	c.log.Debug("Fragment persisted", zap.Stringer("id", id))
	return id, nil
}

// Fragments returns all resolved fragments in natural order of their ids.
func (c *Cache) Fragments() []*Fragment {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := slices.Collect(maps.Keys(c.entries))
	sort.Sort(stringIDs(keys))

	result := make([]*Fragment, 0, len(keys))
	for _, k := range keys {
		if f := c.entries[k].fragment; f != nil {
			result = append(result, f)
		}
	}
	return result
}
