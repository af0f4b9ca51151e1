// Package session implements isolated editing of a reusable fragment embedded
// in a parent document: a private editor seeded from committed fragment
// content, locked preview and live editing modes, cancel with full reset.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"reblock/block"
	"reblock/common"
	"reblock/editor"
	"reblock/fragment"
	"reblock/selection"
)

var (
	ErrInvalidTransition = errors.New("session: invalid transition")
	ErrUnmounted         = errors.New("session: unmounted")
)

// Session is created for a reference block when it mounts in the parent
// editor and lives until the reference unmounts. It is not safe for
// concurrent use.
type Session struct {
	log    *zap.Logger
	parent *editor.Store
	cache  *fragment.Cache
	refID  block.ClientID

	fragmentID fragment.ID
	mode       common.EditMode
	generation uint64

	// nil while fragment content is not available
	tree    *editor.Store
	arbiter *selection.Arbiter
	err     error

	// sessions sharing the parent, see WithSiblings
	siblings *selection.Group
	leave    func()

	unmounted bool
}

type Option func(*Session)

// WithSiblings puts private tree into selection group shared by all sessions
// of the same parent, so that at most one of them has selection.
func WithSiblings(g *selection.Group) Option {
	return func(s *Session) {
		s.siblings = g
	}
}

// Mount creates session for the reference block refID of parent editor. When
// fragment is not known to the cache yet session stays in placeholder state,
// see Err, Load and Refresh.
func Mount(parent *editor.Store, refID block.ClientID, cache *fragment.Cache, log *zap.Logger, opts ...Option) (*Session, error) {
	ref, err := parent.GetBlock(refID)
	if err != nil {
		return nil, fmt.Errorf("unable to mount session: %w", err)
	}
	if !ref.IsReference() {
		return nil, fmt.Errorf("unable to mount session for %q (%s): %w", refID, ref.Name, block.ErrNotReference)
	}

	s := &Session{
		log:        log.Named("session").With(zap.Stringer("reference", refID)),
		parent:     parent,
		cache:      cache,
		refID:      refID,
		fragmentID: fragment.ID(ref.Ref()),
		mode:       common.EditModeLocked,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.rebuild()
	s.log.Debug("Session mounted", zap.Stringer("fragment", s.fragmentID), zap.Bool("placeholder", s.tree == nil))
	return s, nil
}

func (s *Session) ReferenceID() block.ClientID {
	return s.refID
}

func (s *Session) FragmentID() fragment.ID {
	return s.fragmentID
}

func (s *Session) Mode() common.EditMode {
	return s.mode
}

func (s *Session) IsEditing() bool {
	return s.mode.Editable()
}

// Generation is incremented every time private tree is discarded on cancel.
func (s *Session) Generation() uint64 {
	return s.generation
}

// Tree returns private editor, nil while session is a placeholder.
func (s *Session) Tree() *editor.Store {
	return s.tree
}

// Err explains why there is no private tree: fragment.ErrNotFound or
// fragment.ErrResolutionPending. It is nil when content is available.
func (s *Session) Err() error {
	return s.err
}

// StartEditing unlocks private tree.
func (s *Session) StartEditing() error {
	if err := s.transition(common.EditModeLocked); err != nil {
		return err
	}
	if s.tree == nil {
		return fmt.Errorf("%w: fragment %q is not available: %w", ErrInvalidTransition, s.fragmentID, s.err)
	}
	s.setMode(common.EditModeEditing)
	return nil
}

// StopEditing locks private tree retaining its content. Use Save to make the
// content canonical.
func (s *Session) StopEditing() error {
	if err := s.transition(common.EditModeEditing); err != nil {
		return err
	}
	s.setMode(common.EditModeLocked)
	return nil
}

// CancelEditing locks the session, discards private tree with all edits and
// rebuilds it from the last committed fragment content.
func (s *Session) CancelEditing() error {
	if err := s.transition(common.EditModeEditing); err != nil {
		return err
	}
	s.mode = common.EditModeLocked
	s.generation++
	s.log.Debug("Editing cancelled", zap.Uint64("generation", s.generation))
	s.rebuild()
	return nil
}

// Save commits private tree content as canonical fragment content and
// persists it. On persist failure previous canonical content is restored,
// session is not changed and save could be retried. Permanent id assigned to
// a new fragment is written back to every reference of the parent still
// pointing at the temporary one.
func (s *Session) Save(ctx context.Context) error {
	if s.unmounted {
		return ErrUnmounted
	}
	if s.tree == nil {
		return fmt.Errorf("unable to save fragment %q: %w", s.fragmentID, s.err)
	}
	content, err := contentOf(s.tree.Blocks())
	if err != nil {
		return fmt.Errorf("unable to save fragment %q: %w", s.fragmentID, err)
	}
	committed, err := s.lookup()
	if err != nil {
		return fmt.Errorf("unable to save fragment %q: %w", s.fragmentID, err)
	}
	if err := s.cache.Commit(s.fragmentID, content); err != nil {
		return err
	}
	id, err := s.cache.Save(ctx, s.fragmentID)
	if err != nil {
		if rerr := s.cache.Commit(s.fragmentID, committed.Content); rerr != nil {
			err = multierr.Append(err, fmt.Errorf("unable to restore fragment %q: %w", s.fragmentID, rerr))
		}
		return err
	}
	if id == s.fragmentID {
		s.log.Debug("Fragment saved", zap.Stringer("fragment", id))
		return nil
	}

	temporary := s.fragmentID
	s.log.Debug("Fragment saved under permanent id", zap.Stringer("temporary", temporary), zap.Stringer("fragment", id))
	s.fragmentID = id
	// own reference goes first, so that refresh of this session sees no change
	refs := slices.DeleteFunc(block.References(s.parent.Blocks(), string(temporary)), func(ref block.ClientID) bool {
		return ref == s.refID
	})
	for _, ref := range append([]block.ClientID{s.refID}, refs...) {
		if err := s.parent.UpdateAttributes(ref, block.Attributes{block.RefAttribute: string(id)}); err != nil {
			return fmt.Errorf("fragment saved as %q, unable to update reference %q: %w", id, ref, err)
		}
	}
	return nil
}

// Refresh picks up changes of the reference block. Private tree is rebuilt
// when reference points at a different fragment or when previous build
// produced placeholder.
func (s *Session) Refresh() error {
	if s.unmounted {
		return ErrUnmounted
	}
	ref, err := s.parent.GetBlock(s.refID)
	if err != nil {
		return fmt.Errorf("unable to refresh session: %w", err)
	}
	id := fragment.ID(ref.Ref())
	switch {
	case id != s.fragmentID:
		s.log.Debug("Fragment identity changed", zap.Stringer("from", s.fragmentID), zap.Stringer("to", id))
		s.fragmentID = id
		s.mode = common.EditModeLocked
	case s.tree == nil:
	default:
		return nil
	}
	s.rebuild()
	return nil
}

// Load fetches fragment when session is a placeholder and rebuilds private
// tree. It blocks until fetch completes.
func (s *Session) Load(ctx context.Context) error {
	if s.unmounted {
		return ErrUnmounted
	}
	if s.tree != nil {
		return nil
	}
	if _, err := s.cache.Fetch(ctx, s.fragmentID); err != nil {
		s.err = err
		return err
	}
	return s.Refresh()
}

// Unmount destroys the session.
func (s *Session) Unmount() {
	if s.unmounted {
		return
	}
	s.teardown()
	s.unmounted = true
	s.mode = common.EditModeLocked
	s.log.Debug("Session unmounted", zap.Stringer("fragment", s.fragmentID))
}

func (s *Session) transition(from common.EditMode) error {
	if s.unmounted {
		return ErrUnmounted
	}
	if s.mode != from {
		return fmt.Errorf("%w: session is %s", ErrInvalidTransition, s.mode)
	}
	return nil
}

func (s *Session) setMode(mode common.EditMode) {
	s.mode = mode
	if s.tree != nil {
		s.tree.SetReadOnly(!mode.Editable())
	}
	s.log.Debug("Mode changed", zap.Stringer("mode", mode))
}

func (s *Session) teardown() {
	if s.leave != nil {
		s.leave()
		s.leave = nil
	}
	if s.arbiter != nil {
		s.arbiter.Close()
		s.arbiter = nil
	}
	s.tree = nil
}

// rebuild replaces private tree with a fresh one seeded from committed
// content.
func (s *Session) rebuild() {
	s.teardown()

	f, err := s.lookup()
	if err != nil {
		s.err = err
		s.mode = common.EditModeLocked
		s.log.Debug("Fragment is not available", zap.Stringer("fragment", s.fragmentID), zap.Error(err))
		return
	}
	tree, err := editor.New(fmt.Sprintf("fragment %s", s.fragmentID), s.log, f.Content.Copy())
	if err != nil {
		s.err = err
		s.mode = common.EditModeLocked
		s.log.Warn("Unable to build private tree", zap.Stringer("fragment", s.fragmentID), zap.Error(err))
		return
	}
	tree.SetReadOnly(!s.mode.Editable())

	s.err = nil
	s.tree = tree
	s.arbiter = selection.Bind(s.parent, tree, s.log)
	if s.siblings != nil {
		s.leave = s.siblings.Add(tree)
	}
}

func (s *Session) lookup() (*fragment.Fragment, error) {
	if s.fragmentID == "" {
		return nil, fmt.Errorf("%w: reference %q is not set", fragment.ErrNotFound, s.refID)
	}
	f, err := s.cache.Lookup(s.fragmentID)
	if err != nil {
		return nil, err
	}
	if f.Content == nil {
		return nil, fmt.Errorf("%w: fragment %q has no content", fragment.ErrNotFound, s.fragmentID)
	}
	return f, nil
}

// contentOf turns private tree into fragment content. The tree stays
// independent of the result.
func contentOf(blocks []*block.Node) (*block.Node, error) {
	switch len(blocks) {
	case 0:
		return nil, fmt.Errorf("%w: fragment content is empty", block.ErrMalformedBlock)
	case 1:
		return blocks[0].Copy(), nil
	default:
		return block.New(block.TypeGroup, nil, block.CopyAll(blocks)...), nil
	}
}
