// Package fragment keeps reusable content fragments: storage backends and
// the client side registry of fragments known to the editor.
package fragment

import (
	"context"
	"errors"

	"reblock/block"
)

var (
	// ErrNotFound is returned when fragment cannot be resolved.
	ErrNotFound = errors.New("fragment: not found")
	// ErrResolutionPending is returned while fragment fetch is in flight.
	ErrResolutionPending = errors.New("fragment: resolution pending")
	// ErrPersistFailure wraps any error of the underlying store on save.
	ErrPersistFailure = errors.New("fragment: persist failed")
	// ErrIdentifierCollision is the same invariant violation as in the block
	// package, exported here for callers dealing with fragments only.
	ErrIdentifierCollision = block.ErrIdentifierCollision
)

// ID identifies fragment in storage. Temporary identifiers are assigned to
// fragments not persisted yet.
type ID string

func (id ID) String() string {
	return string(id)
}

// Fragment is content stored once and referenced from any number of places.
type Fragment struct {
	ID      ID
	Title   string
	Content *block.Node
}

// Store is the persistence collaborator.
type Store interface {
	// Resolve returns fragment stored under id or ErrNotFound.
	Resolve(ctx context.Context, id ID) (*Fragment, error)
	// Persist saves fragment. Fragment unknown to the store (temporary one)
	// gets new identifier, which is returned.
	Persist(ctx context.Context, f *Fragment) (ID, error)
	// List returns all stored fragments.
	List(ctx context.Context) ([]*Fragment, error)
	Close() error
}
