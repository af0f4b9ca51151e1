package session

import (
	"context"
	"maps"
	"slices"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"reblock/block"
	"reblock/editor"
	"reblock/fragment"
	"reblock/selection"
)

// Manager keeps one session per reference block of the parent editor. It
// follows parent content: sessions of removed references are unmounted and
// the rest are refreshed after every change. Selection is exclusive across
// the parent and all private trees.
type Manager struct {
	log    *zap.Logger
	parent *editor.Store
	cache  *fragment.Cache

	sessions map[block.ClientID]*Session
	siblings *selection.Group
	cancel   func()
}

func NewManager(parent *editor.Store, cache *fragment.Cache, log *zap.Logger) *Manager {
	m := &Manager{
		log:      log,
		parent:   parent,
		cache:    cache,
		sessions: make(map[block.ClientID]*Session),
		siblings: selection.NewGroup(log),
	}
	m.cancel = parent.OnChange(m.sync)
	return m
}

// Mount returns session for the reference block, creating it when necessary.
func (m *Manager) Mount(refID block.ClientID) (*Session, error) {
	if s, ok := m.sessions[refID]; ok {
		return s, nil
	}
	s, err := Mount(m.parent, refID, m.cache, m.log, WithSiblings(m.siblings))
	if err != nil {
		return nil, err
	}
	m.sessions[refID] = s
	return s, nil
}

// MountAll mounts sessions for every reference block of the parent and loads
// fragments which are not available yet.
func (m *Manager) MountAll(ctx context.Context) ([]*Session, error) {
	var refs []block.ClientID
	block.Walk(m.parent.Blocks(), func(n *block.Node, _ int) bool {
		if n.IsReference() {
			refs = append(refs, n.ClientID)
		}
		return true
	})

	var (
		result []*Session
		err    error
	)
	for _, id := range refs {
		s, merr := m.Mount(id)
		if merr != nil {
			err = multierr.Append(err, merr)
			continue
		}
		if lerr := s.Load(ctx); lerr != nil {
			err = multierr.Append(err, lerr)
		}
		result = append(result, s)
	}
	return result, err
}

func (m *Manager) Get(refID block.ClientID) (*Session, bool) {
	s, ok := m.sessions[refID]
	return s, ok
}

func (m *Manager) Unmount(refID block.ClientID) {
	if s, ok := m.sessions[refID]; ok {
		s.Unmount()
		delete(m.sessions, refID)
	}
}

// Close unmounts all sessions and stops following parent.
func (m *Manager) Close() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	for _, id := range slices.Sorted(maps.Keys(m.sessions)) {
		m.Unmount(id)
	}
}

func (m *Manager) sync() {
	for _, id := range slices.Sorted(maps.Keys(m.sessions)) {
		ref, err := m.parent.GetBlock(id)
		if err != nil || !ref.IsReference() {
			m.log.Debug("Reference unmounted", zap.Stringer("reference", id))
			m.Unmount(id)
			continue
		}
		if err := m.sessions[id].Refresh(); err != nil {
			m.log.Warn("Unable to refresh session", zap.Stringer("reference", id), zap.Error(err))
		}
	}
}
