package selection

import (
	"math/rand/v2"
	"testing"

	"go.uber.org/zap/zaptest"

	"reblock/block"
	"reblock/editor"
)

func TestGuard(t *testing.T) {
	var g Guard
	if g.Consume() {
		t.Fatal("fresh guard must not be armed")
	}
	g.Arm()
	g.Arm()
	if !g.Armed() {
		t.Fatal("guard not armed")
	}
	if !g.Consume() {
		t.Fatal("armed guard not consumed")
	}
	if g.Consume() {
		t.Fatal("guard consumed twice")
	}
}

type contexts struct {
	parent      *editor.Store
	child       *editor.Store
	parentNodes []*block.Node
	childNodes  []*block.Node
}

func newContexts(t *testing.T) *contexts {
	t.Helper()

	log := zaptest.NewLogger(t)
	c := &contexts{
		parentNodes: []*block.Node{
			block.New("core/heading", nil),
			block.NewReference("reusable-1"),
			block.New("core/paragraph", nil),
		},
		childNodes: []*block.Node{
			block.New("core/paragraph", nil),
			block.New("core/buttons", nil, block.New("core/button", nil)),
		},
	}
	var err error
	if c.parent, err = editor.New("document", log, c.parentNodes...); err != nil {
		t.Fatalf("editor.New() error = %v", err)
	}
	if c.child, err = editor.New("fragment", log, c.childNodes...); err != nil {
		t.Fatalf("editor.New() error = %v", err)
	}
	return c
}

func (c *contexts) exclusive() bool {
	return c.parent.SelectionRange().Empty() || c.child.SelectionRange().Empty()
}

func TestArbiter(t *testing.T) {
	t.Run("child_selection_clears_parent", func(t *testing.T) {
		c := newContexts(t)
		a := Bind(c.parent, c.child, zaptest.NewLogger(t))
		defer a.Close()

		if err := c.parent.Select(c.parentNodes[1].ClientID); err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		if err := c.child.Select(c.childNodes[0].ClientID); err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		if !c.parent.SelectionRange().Empty() {
			t.Fatal("parent selection not cleared")
		}
		if c.child.SelectionRange().Start != c.childNodes[0].ClientID {
			t.Fatal("child selection lost while moving into child")
		}
		if a.Pending() {
			t.Fatal("guard left armed")
		}
	})

	t.Run("moving_inside_child", func(t *testing.T) {
		c := newContexts(t)
		a := Bind(c.parent, c.child, zaptest.NewLogger(t))
		defer a.Close()

		if err := c.child.Select(c.childNodes[0].ClientID); err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		if err := c.child.Select(c.childNodes[1].Children[0].ClientID); err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		if c.child.SelectionRange().Start != c.childNodes[1].Children[0].ClientID || a.Pending() {
			t.Fatal("selection inside child disturbed")
		}
	})

	t.Run("parent_selection_clears_child", func(t *testing.T) {
		c := newContexts(t)
		a := Bind(c.parent, c.child, zaptest.NewLogger(t))
		defer a.Close()

		if err := c.child.Select(c.childNodes[0].ClientID); err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		if err := c.parent.Select(c.parentNodes[2].ClientID); err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		if !c.child.SelectionRange().Empty() {
			t.Fatal("child selection not cleared")
		}
		if c.parent.SelectionRange().Start != c.parentNodes[2].ClientID {
			t.Fatal("parent selection lost")
		}
	})

	t.Run("guard_consumed_once", func(t *testing.T) {
		c := newContexts(t)
		a := Bind(c.parent, c.child, zaptest.NewLogger(t))
		defer a.Close()

		if err := c.parent.Select(c.parentNodes[0].ClientID); err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		if err := c.child.SelectRange(c.childNodes[0].ClientID, c.childNodes[1].ClientID); err != nil {
			t.Fatalf("SelectRange() error = %v", err)
		}
		// next parent change is not caused by child, it must clear child
		if err := c.parent.Select(c.parentNodes[2].ClientID); err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		if !c.child.SelectionRange().Empty() {
			t.Fatal("child selection survived parent change")
		}
	})

	t.Run("bind_resolves_conflict", func(t *testing.T) {
		c := newContexts(t)
		if err := c.parent.Select(c.parentNodes[0].ClientID); err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		if err := c.child.Select(c.childNodes[0].ClientID); err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		a := Bind(c.parent, c.child, zaptest.NewLogger(t))
		defer a.Close()
		if !c.exclusive() || c.parent.SelectionRange().Empty() {
			t.Fatal("conflict resolved in favour of child")
		}
	})

	t.Run("close_unbinds", func(t *testing.T) {
		c := newContexts(t)
		a := Bind(c.parent, c.child, zaptest.NewLogger(t))
		a.Close()
		a.Close()

		if err := c.parent.Select(c.parentNodes[0].ClientID); err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		if err := c.child.Select(c.childNodes[0].ClientID); err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		if c.exclusive() {
			t.Fatal("closed arbiter still reacting")
		}
	})
}

func TestArbiterExclusivity(t *testing.T) {
	c := newContexts(t)
	a := Bind(c.parent, c.child, zaptest.NewLogger(t))
	defer a.Close()

	var parentIDs, childIDs []block.ClientID
	block.Walk(c.parentNodes, func(n *block.Node, _ int) bool {
		parentIDs = append(parentIDs, n.ClientID)
		return true
	})
	block.Walk(c.childNodes, func(n *block.Node, _ int) bool {
		childIDs = append(childIDs, n.ClientID)
		return true
	})

	rnd := rand.New(rand.NewPCG(1, 2))
	for i := range 2000 {
		// alternate contexts, sometimes twice in a row
		store, ids := c.parent, parentIDs
		if i%2 == 1 || rnd.IntN(5) == 0 {
			store, ids = c.child, childIDs
		}
		switch rnd.IntN(4) {
		case 0:
			store.ClearSelection()
		case 1:
			start, end := ids[rnd.IntN(len(ids))], ids[rnd.IntN(len(ids))]
			if err := store.SelectRange(start, end); err != nil {
				t.Fatalf("step %d: SelectRange() error = %v", i, err)
			}
		default:
			if err := store.Select(ids[rnd.IntN(len(ids))]); err != nil {
				t.Fatalf("step %d: Select() error = %v", i, err)
			}
		}
		if !c.exclusive() {
			t.Fatalf("step %d: both contexts have selection: parent %+v, child %+v",
				i, c.parent.SelectionRange(), c.child.SelectionRange())
		}
		if a.Pending() {
			t.Fatalf("step %d: guard left armed", i)
		}
	}
}
