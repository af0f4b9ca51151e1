// Package editor implements explicitly owned editing state container: a
// content tree plus a selection locus, with change notifications. Parent
// document and every embedded fragment editor are separate Store instances.
package editor

import (
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"reblock/block"
)

var (
	ErrBlockNotFound = errors.New("editor: block not found")
	ErrReadOnly      = errors.New("editor: content is read-only")
	// ErrIdentifierCollision is reported when mutation would leave two blocks
	// with the same client id in the tree.
	ErrIdentifierCollision = block.ErrIdentifierCollision
)

// Selection is a range of selected blocks, both ends are client ids. Single
// block selection has Start == End.
type Selection struct {
	Start block.ClientID
	End   block.ClientID
}

// Empty reports whether nothing is selected.
func (s Selection) Empty() bool {
	return s.Start == "" && s.End == ""
}

// Store owns content tree and selection of a single editing context. It is
// not safe for concurrent use: all mutations and notifications happen
// synchronously on the caller's goroutine.
type Store struct {
	name string
	log  *zap.Logger

	blocks    []*block.Node
	readOnly  bool
	selection Selection

	selectionListeners listeners[func(prev, cur Selection)]
	changeListeners    listeners[func()]
}

// New creates store with initial content. Store takes ownership of the
// blocks.
func New(name string, log *zap.Logger, blocks ...*block.Node) (*Store, error) {
	if err := block.Validate(blocks); err != nil {
		return nil, fmt.Errorf("unable to create %s editor: %w", name, err)
	}
	return &Store{
		name:   name,
		log:    log.Named("editor").With(zap.String("context", name)),
		blocks: slices.Clone(blocks),
	}, nil
}

func (s *Store) Name() string {
	return s.name
}

// Blocks returns top level blocks. Returned slice could be modified freely,
// blocks themselves belong to the store.
func (s *Store) Blocks() []*block.Node {
	return slices.Clone(s.blocks)
}

// GetBlock returns block with given client id from anywhere in the tree.
func (s *Store) GetBlock(id block.ClientID) (*block.Node, error) {
	if n := s.find(id); n != nil {
		return n, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrBlockNotFound, id)
}

// ParentOf returns parent of the block (nil for top level blocks) and block
// position among its siblings.
func (s *Store) ParentOf(id block.ClientID) (*block.Node, int, error) {
	parent, index, ok := locate(nil, s.blocks, id)
	if !ok {
		return nil, -1, fmt.Errorf("%w: %q", ErrBlockNotFound, id)
	}
	return parent, index, nil
}

// SetReadOnly locks or unlocks the content. Locking clears selection, locked
// content is not interactive.
func (s *Store) SetReadOnly(readOnly bool) {
	if s.readOnly == readOnly {
		return
	}
	s.readOnly = readOnly
	s.log.Debug("Editability changed", zap.Bool("read-only", readOnly))
	if readOnly {
		s.ClearSelection()
	}
}

func (s *Store) ReadOnly() bool {
	return s.readOnly
}

// OnChange registers listener called after every content mutation. Returned
// function unregisters it.
func (s *Store) OnChange(fn func()) (cancel func()) {
	return s.changeListeners.add(fn)
}

func (s *Store) find(id block.ClientID) *block.Node {
	if id == "" {
		return nil
	}
	var found *block.Node
	block.Walk(s.blocks, func(n *block.Node, _ int) bool {
		if found != nil {
			return false
		}
		if n.ClientID == id {
			found = n
			return false
		}
		return true
	})
	return found
}

func (s *Store) changed() {
	for _, fn := range s.changeListeners.snapshot() {
		fn()
	}
}

// locate finds container holding block with given id. Top level container has
// nil parent.
func locate(parent *block.Node, nodes []*block.Node, id block.ClientID) (*block.Node, int, bool) {
	for i, n := range nodes {
		if n.ClientID == id {
			return parent, i, true
		}
		if p, idx, ok := locate(n, n.Children, id); ok {
			return p, idx, true
		}
	}
	return nil, -1, false
}

type listener[F any] struct {
	id int
	fn F
}

// listeners keeps callbacks in registration order.
type listeners[F any] struct {
	next  int
	items []listener[F]
}

func (l *listeners[F]) add(fn F) func() {
	l.next++
	id := l.next
	l.items = append(l.items, listener[F]{id: id, fn: fn})
	return func() {
		l.items = slices.DeleteFunc(l.items, func(it listener[F]) bool { return it.id == id })
	}
}

// snapshot allows listeners to unregister themselves while being notified.
func (l *listeners[F]) snapshot() []F {
	result := make([]F, 0, len(l.items))
	for _, it := range l.items {
		result = append(result, it.fn)
	}
	return result
}
