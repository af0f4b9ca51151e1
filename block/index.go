package block

import (
	"fmt"

	"go.uber.org/multierr"
)

// Walk visits block and its descendants depth first. When fn returns false
// children of the visited block are skipped.
func (n *Node) Walk(fn func(n *Node, depth int) bool) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(n *Node, depth int) bool, depth int) {
	if n == nil {
		return
	}
	if !fn(n, depth) {
		return
	}
	for _, c := range n.Children {
		c.walk(fn, depth+1)
	}
}

// Walk visits every block in the list, see Node.Walk.
func Walk(nodes []*Node, fn func(n *Node, depth int) bool) {
	for _, n := range nodes {
		n.Walk(fn)
	}
}

// CollectIDs returns set of all client ids in the list including nested
// blocks.
func CollectIDs(nodes []*Node) map[ClientID]struct{} {
	ids := make(map[ClientID]struct{})
	Walk(nodes, func(n *Node, _ int) bool {
		ids[n.ClientID] = struct{}{}
		return true
	})
	return ids
}

// References returns ids of all reference blocks pointing at fragment ref,
// nested ones included, in document order.
func References(nodes []*Node, ref string) []ClientID {
	var ids []ClientID
	Walk(nodes, func(n *Node, _ int) bool {
		if n.IsReference() && n.Ref() == ref {
			ids = append(ids, n.ClientID)
		}
		return true
	})
	return ids
}

// Count returns number of blocks in the list including nested blocks.
func Count(nodes []*Node) int {
	var count int
	Walk(nodes, func(*Node, int) bool {
		count++
		return true
	})
	return count
}

// Validate checks structural invariants of the tree: every block has non
// empty type name and client id, and client ids are unique across the whole
// tree. All detected problems are reported.
func Validate(nodes []*Node) error {
	var (
		err  error
		seen = make(map[ClientID]struct{})
	)
	for i, n := range nodes {
		if n == nil {
			err = multierr.Append(err, fmt.Errorf("%w: nil block at position %d", ErrMalformedBlock, i))
			continue
		}
		n.Walk(func(b *Node, depth int) bool {
			if b.Name == "" {
				err = multierr.Append(err, fmt.Errorf("%w: block %q has no type", ErrMalformedBlock, b.ClientID))
			}
			for j, c := range b.Children {
				if c == nil {
					err = multierr.Append(err, fmt.Errorf("%w: nil child %d of block %q", ErrMalformedBlock, j, b.ClientID))
				}
			}
			if b.ClientID == "" {
				err = multierr.Append(err, fmt.Errorf("%w: block of type %q at depth %d has no id", ErrMalformedBlock, b.Name, depth))
				return true
			}
			if _, exists := seen[b.ClientID]; exists {
				err = multierr.Append(err, fmt.Errorf("%w: %q", ErrIdentifierCollision, b.ClientID))
			}
			seen[b.ClientID] = struct{}{}
			return true
		})
	}
	return err
}

// Overlap returns client ids present in both trees.
func Overlap(a, b []*Node) []ClientID {
	ids := CollectIDs(a)
	var result []ClientID
	Walk(b, func(n *Node, _ int) bool {
		if _, ok := ids[n.ClientID]; ok {
			result = append(result, n.ClientID)
		}
		return true
	})
	return result
}

// AssignMissingIDs gives freshly allocated id to every block without one.
func AssignMissingIDs(nodes []*Node) {
	Walk(nodes, func(n *Node, _ int) bool {
		if n.ClientID == "" {
			n.ClientID = NewClientID()
		}
		return true
	})
}
