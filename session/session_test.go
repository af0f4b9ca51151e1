package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.uber.org/zap/zaptest"

	"reblock/block"
	"reblock/common"
	"reblock/editor"
	"reblock/fragment"
)

var ignoreIDs = cmpopts.IgnoreFields(block.Node{}, "ClientID")

type fixture struct {
	store  fragment.Store
	cache  *fragment.Cache
	parent *editor.Store
	ref    *block.Node
	// committed content of the fragment
	content *block.Node
}

func newFixture(t *testing.T, store fragment.Store) *fixture {
	t.Helper()

	log := zaptest.NewLogger(t)
	f := &fixture{
		store: store,
		cache: fragment.NewCache(store, log),
		content: block.New(block.TypeGroup, nil,
			block.New("core/heading", block.Attributes{"content": "Title"}),
			block.New("core/paragraph", block.Attributes{"content": "Body"}),
		),
	}
	id := f.cache.NewTemporaryID()
	if err := f.cache.Receive(&fragment.Fragment{ID: id, Title: "Pattern", Content: f.content}); err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	f.ref = block.NewReference(string(id))

	var err error
	f.parent, err = editor.New("document", log,
		block.New("core/paragraph", block.Attributes{"content": "Intro"}),
		f.ref,
	)
	if err != nil {
		t.Fatalf("editor.New() error = %v", err)
	}
	return f
}

func (f *fixture) mount(t *testing.T) *Session {
	t.Helper()

	s, err := Mount(f.parent, f.ref.ClientID, f.cache, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	t.Cleanup(s.Unmount)
	return s
}

func TestMount(t *testing.T) {
	f := newFixture(t, fragment.NewMemoryStore())

	s := f.mount(t)
	if s.Mode() != common.EditModeLocked || s.IsEditing() || s.Generation() != 0 {
		t.Fatalf("unexpected initial state: %s %d", s.Mode(), s.Generation())
	}
	if s.Err() != nil || s.Tree() == nil {
		t.Fatalf("session must be built, err = %v", s.Err())
	}
	if !s.Tree().ReadOnly() {
		t.Fatal("locked session must expose read-only tree")
	}
	if diff := cmp.Diff([]*block.Node{f.content}, s.Tree().Blocks()); diff != "" {
		t.Fatalf("private tree differs from fragment (-want +got):\n%s", diff)
	}
	if s.Tree().Blocks()[0] == f.content {
		t.Fatal("private tree must not share blocks with fragment")
	}

	if _, err := Mount(f.parent, "missing", f.cache, zaptest.NewLogger(t)); !errors.Is(err, editor.ErrBlockNotFound) {
		t.Fatalf("expected ErrBlockNotFound, got %v", err)
	}
	plain := f.parent.Blocks()[0].ClientID
	if _, err := Mount(f.parent, plain, f.cache, zaptest.NewLogger(t)); !errors.Is(err, block.ErrNotReference) {
		t.Fatalf("expected ErrNotReference, got %v", err)
	}
}

func TestTransitions(t *testing.T) {
	f := newFixture(t, fragment.NewMemoryStore())
	s := f.mount(t)

	if err := s.StopEditing(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("StopEditing() from locked: expected ErrInvalidTransition, got %v", err)
	}
	if err := s.CancelEditing(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("CancelEditing() from locked: expected ErrInvalidTransition, got %v", err)
	}
	if err := s.StartEditing(); err != nil {
		t.Fatalf("StartEditing() error = %v", err)
	}
	if !s.IsEditing() || s.Tree().ReadOnly() {
		t.Fatal("editing session must expose mutable tree")
	}
	if err := s.StartEditing(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("StartEditing() twice: expected ErrInvalidTransition, got %v", err)
	}

	tree := s.Tree()
	if err := tree.ReceiveBlocks([]*block.Node{block.New("core/separator", nil)}); err != nil {
		t.Fatalf("ReceiveBlocks() error = %v", err)
	}
	if err := s.StopEditing(); err != nil {
		t.Fatalf("StopEditing() error = %v", err)
	}
	if s.Tree() != tree || len(tree.Blocks()) != 2 {
		t.Fatal("stop must retain private tree content")
	}
	if err := tree.ReceiveBlocks([]*block.Node{block.New("core/separator", nil)}); !errors.Is(err, editor.ErrReadOnly) {
		t.Fatalf("locked tree accepted edit: %v", err)
	}
	if s.Generation() != 0 {
		t.Fatalf("stop must not change generation, got %d", s.Generation())
	}
}

func TestCancelResetsContent(t *testing.T) {
	f := newFixture(t, fragment.NewMemoryStore())
	s := f.mount(t)
	committed := f.content.Copy()

	for round := range 3 {
		before := s.Generation()
		if err := s.StartEditing(); err != nil {
			t.Fatalf("round %d: StartEditing() error = %v", round, err)
		}
		tree := s.Tree()
		root := tree.Blocks()[0]
		if err := tree.UpdateAttributes(root.Children[0].ClientID, block.Attributes{"content": "Changed"}); err != nil {
			t.Fatalf("UpdateAttributes() error = %v", err)
		}
		if err := tree.RemoveBlocks([]block.ClientID{root.Children[1].ClientID}); err != nil {
			t.Fatalf("RemoveBlocks() error = %v", err)
		}
		if err := tree.InsertBlocks(root.ClientID, 0, []*block.Node{block.New("core/image", nil)}); err != nil {
			t.Fatalf("InsertBlocks() error = %v", err)
		}
		if err := tree.Select(root.ClientID); err != nil {
			t.Fatalf("Select() error = %v", err)
		}

		if err := s.CancelEditing(); err != nil {
			t.Fatalf("CancelEditing() error = %v", err)
		}
		if got := s.Generation(); got != before+1 {
			t.Fatalf("generation = %d, want %d", got, before+1)
		}
		if s.IsEditing() {
			t.Fatal("cancel must lock session")
		}
		if s.Tree() == tree {
			t.Fatal("private tree must be rebuilt")
		}
		if diff := cmp.Diff([]*block.Node{committed}, s.Tree().Blocks()); diff != "" {
			t.Fatalf("rebuilt tree differs from committed content (-want +got):\n%s", diff)
		}
		if !s.Tree().SelectionRange().Empty() {
			t.Fatal("transient selection leaked into rebuilt tree")
		}
	}
	if diff := cmp.Diff(committed, f.content); diff != "" {
		t.Fatalf("committed content modified by editing (-want +got):\n%s", diff)
	}
}

func TestSave(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fragment.NewMemoryStore())
	s := f.mount(t)
	temporary := s.FragmentID()

	if err := s.StartEditing(); err != nil {
		t.Fatalf("StartEditing() error = %v", err)
	}
	tree := s.Tree()
	root := tree.Blocks()[0]
	if err := tree.UpdateAttributes(root.Children[0].ClientID, block.Attributes{"content": "Saved"}); err != nil {
		t.Fatalf("UpdateAttributes() error = %v", err)
	}
	if err := s.StopEditing(); err != nil {
		t.Fatalf("StopEditing() error = %v", err)
	}
	if err := s.Save(ctx); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	id := s.FragmentID()
	if id == temporary || f.cache.IsTemporary(id) {
		t.Fatalf("expected permanent id, got %q", id)
	}
	if got := f.ref.Ref(); got != string(id) {
		t.Fatalf("reference points at %q, want %q", got, id)
	}
	stored, err := f.store.Resolve(ctx, id)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if diff := cmp.Diff(tree.Blocks()[0], stored.Content, ignoreIDs); diff != "" {
		t.Fatalf("stored content differs (-want +got):\n%s", diff)
	}
	if s.Tree() != tree {
		t.Fatal("save must not rebuild private tree")
	}

	// cancel now goes back to saved content
	if err := s.StartEditing(); err != nil {
		t.Fatalf("StartEditing() error = %v", err)
	}
	if err := tree.UpdateAttributes(root.Children[0].ClientID, block.Attributes{"content": "Discarded"}); err != nil {
		t.Fatalf("UpdateAttributes() error = %v", err)
	}
	if err := s.CancelEditing(); err != nil {
		t.Fatalf("CancelEditing() error = %v", err)
	}
	if got := s.Tree().Blocks()[0].Children[0].Attributes["content"]; got != "Saved" {
		t.Fatalf("rebuilt tree has %v, want saved content", got)
	}
}

type failingStore struct {
	fragment.Store
}

func (failingStore) Persist(context.Context, *fragment.Fragment) (fragment.ID, error) {
	return "", errors.New("read-only database")
}

func TestSavePersistFailure(t *testing.T) {
	f := newFixture(t, failingStore{fragment.NewMemoryStore()})
	s := f.mount(t)
	temporary := s.FragmentID()

	if err := s.StartEditing(); err != nil {
		t.Fatalf("StartEditing() error = %v", err)
	}
	tree := s.Tree()
	if err := tree.ReceiveBlocks([]*block.Node{block.New("core/separator", nil)}); err != nil {
		t.Fatalf("ReceiveBlocks() error = %v", err)
	}
	before := block.CopyAll(tree.Blocks())

	if err := s.Save(context.Background()); !errors.Is(err, fragment.ErrPersistFailure) {
		t.Fatalf("expected ErrPersistFailure, got %v", err)
	}
	if s.FragmentID() != temporary || f.ref.Ref() != string(temporary) {
		t.Fatal("failed save changed fragment identity")
	}
	if !s.IsEditing() || s.Tree() != tree {
		t.Fatal("failed save changed session")
	}
	if diff := cmp.Diff(before, tree.Blocks()); diff != "" {
		t.Fatalf("failed save changed content (-want +got):\n%s", diff)
	}

	committed, err := f.cache.Lookup(temporary)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if diff := cmp.Diff(f.content, committed.Content); diff != "" {
		t.Fatalf("failed save changed committed content (-want +got):\n%s", diff)
	}

	// unsaved edits are still discarded by cancel
	if err := s.CancelEditing(); err != nil {
		t.Fatalf("CancelEditing() error = %v", err)
	}
	if diff := cmp.Diff([]*block.Node{f.content}, s.Tree().Blocks()); diff != "" {
		t.Fatalf("cancel after failed save (-want +got):\n%s", diff)
	}
}

// blockingStore holds Resolve calls until released.
type blockingStore struct {
	fragment.Store
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (s *blockingStore) Resolve(ctx context.Context, id fragment.ID) (*fragment.Fragment, error) {
	s.once.Do(func() { close(s.entered) })
	<-s.release
	return s.Store.Resolve(ctx, id)
}

func TestPlaceholder(t *testing.T) {
	ctx := context.Background()
	backing := fragment.NewMemoryStore()
	id, err := backing.Persist(ctx, &fragment.Fragment{
		ID:      "new",
		Title:   "Stored",
		Content: block.New("core/quote", block.Attributes{"value": "Stored quote"}),
	})
	if err != nil {
		t.Fatalf("Persist() error = %v", err)
	}

	t.Run("not_fetched", func(t *testing.T) {
		f := newFixture(t, backing)
		if err := f.parent.UpdateAttributes(f.ref.ClientID, block.Attributes{block.RefAttribute: string(id)}); err != nil {
			t.Fatalf("UpdateAttributes() error = %v", err)
		}
		s := f.mount(t)
		if !errors.Is(s.Err(), fragment.ErrNotFound) || s.Tree() != nil {
			t.Fatalf("expected placeholder, got %v", s.Err())
		}
		if err := s.StartEditing(); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
		if err := s.Save(ctx); !errors.Is(err, fragment.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}

		if err := s.Load(ctx); err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if s.Err() != nil || s.Tree() == nil {
			t.Fatalf("session not built after load: %v", s.Err())
		}
		if got := s.Tree().Blocks()[0].Name; got != "core/quote" {
			t.Fatalf("unexpected content %q", got)
		}
	})

	t.Run("missing", func(t *testing.T) {
		f := newFixture(t, backing)
		if err := f.parent.UpdateAttributes(f.ref.ClientID, block.Attributes{block.RefAttribute: "does-not-exist"}); err != nil {
			t.Fatalf("UpdateAttributes() error = %v", err)
		}
		s := f.mount(t)
		if err := s.Load(ctx); !errors.Is(err, fragment.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if s.Tree() != nil {
			t.Fatal("missing fragment must stay placeholder")
		}
	})

	t.Run("pending", func(t *testing.T) {
		store := &blockingStore{Store: backing, entered: make(chan struct{}), release: make(chan struct{})}
		f := newFixture(t, store)
		if err := f.parent.UpdateAttributes(f.ref.ClientID, block.Attributes{block.RefAttribute: string(id)}); err != nil {
			t.Fatalf("UpdateAttributes() error = %v", err)
		}

		done := make(chan error)
		go func() {
			_, err := f.cache.Fetch(ctx, id)
			done <- err
		}()
		<-store.entered

		s := f.mount(t)
		if !errors.Is(s.Err(), fragment.ErrResolutionPending) {
			t.Fatalf("expected ErrResolutionPending, got %v", s.Err())
		}
		close(store.release)
		if err := <-done; err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if err := s.Refresh(); err != nil {
			t.Fatalf("Refresh() error = %v", err)
		}
		if s.Err() != nil || s.Tree() == nil {
			t.Fatalf("session not built after fetch: %v", s.Err())
		}
	})
}

func TestSessionSelection(t *testing.T) {
	f := newFixture(t, fragment.NewMemoryStore())
	s := f.mount(t)

	if err := f.parent.Select(f.ref.ClientID); err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if err := s.Tree().Select(s.Tree().Blocks()[0].ClientID); !errors.Is(err, editor.ErrReadOnly) {
		t.Fatalf("locked preview must not be selectable, got %v", err)
	}
	if err := s.StartEditing(); err != nil {
		t.Fatalf("StartEditing() error = %v", err)
	}
	inner := s.Tree().Blocks()[0].Children[1].ClientID
	if err := s.Tree().Select(inner); err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if !f.parent.SelectionRange().Empty() {
		t.Fatal("parent selection must be cleared when child gets selection")
	}
	if err := f.parent.Select(f.parent.Blocks()[0].ClientID); err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if !s.Tree().SelectionRange().Empty() {
		t.Fatal("child selection must be cleared when parent gets selection")
	}

	// after unmount trees are independent again
	s.Unmount()
	if err := s.StartEditing(); !errors.Is(err, ErrUnmounted) {
		t.Fatalf("expected ErrUnmounted, got %v", err)
	}
}
