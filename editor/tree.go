package editor

import (
	"fmt"
	"slices"

	"go.uber.org/zap"

	"reblock/block"
)

// ReplaceBlocks removes target blocks (with their descendants) and puts nodes
// at position of the first target. Selection touching removed blocks moves to
// the last inserted block.
func (s *Store) ReplaceBlocks(targets []block.ClientID, nodes []*block.Node) error {
	if err := s.writable(); err != nil {
		return err
	}
	if len(targets) == 0 {
		return fmt.Errorf("%w: nothing to replace", ErrBlockNotFound)
	}
	removed, err := s.subtrees(targets)
	if err != nil {
		return err
	}
	parent, index, _ := locate(nil, s.blocks, targets[0])
	if parent != nil {
		if _, gone := removed[parent.ClientID]; gone {
			return fmt.Errorf("%w: insertion point %q is inside replaced block", ErrBlockNotFound, targets[0])
		}
	}
	if err := s.checkInsert(nodes, removed); err != nil {
		return err
	}

	// position among siblings surviving removal
	for _, n := range s.children(parent)[:index] {
		if _, gone := removed[n.ClientID]; gone {
			index--
		}
	}
	s.prune(targets)
	s.insert(parent, index, nodes)
	s.log.Debug("Blocks replaced", zap.Int("removed", len(targets)), zap.Int("inserted", len(nodes)))

	if s.selectionIn(removed) {
		if len(nodes) > 0 {
			last := nodes[len(nodes)-1].ClientID
			s.setSelection(Selection{Start: last, End: last})
		} else {
			s.setSelection(Selection{})
		}
	}
	s.changed()
	return nil
}

// ReceiveBlocks appends nodes at the end of top level content.
func (s *Store) ReceiveBlocks(nodes []*block.Node) error {
	return s.InsertBlocks("", -1, nodes)
}

// InsertBlocks puts nodes into children of parent block (top level when parent
// is empty) at index. Negative or too large index appends.
func (s *Store) InsertBlocks(parentID block.ClientID, index int, nodes []*block.Node) error {
	if err := s.writable(); err != nil {
		return err
	}
	var parent *block.Node
	if parentID != "" {
		if parent = s.find(parentID); parent == nil {
			return fmt.Errorf("%w: %q", ErrBlockNotFound, parentID)
		}
	}
	if err := s.checkInsert(nodes, nil); err != nil {
		return err
	}
	if n := len(s.children(parent)); index < 0 || index > n {
		index = n
	}
	s.insert(parent, index, nodes)
	s.log.Debug("Blocks inserted", zap.Stringer("parent", parentID), zap.Int("index", index), zap.Int("count", len(nodes)))
	s.changed()
	return nil
}

// RemoveBlocks deletes blocks with their descendants. Selection touching
// removed blocks is cleared.
func (s *Store) RemoveBlocks(ids []block.ClientID) error {
	if err := s.writable(); err != nil {
		return err
	}
	removed, err := s.subtrees(ids)
	if err != nil {
		return err
	}
	s.prune(ids)
	s.log.Debug("Blocks removed", zap.Int("count", len(removed)))
	if s.selectionIn(removed) {
		s.setSelection(Selection{})
	}
	s.changed()
	return nil
}

// UpdateAttributes superimposes attrs on block attributes. Attribute with nil
// value is deleted.
func (s *Store) UpdateAttributes(id block.ClientID, attrs block.Attributes) error {
	if err := s.writable(); err != nil {
		return err
	}
	n := s.find(id)
	if n == nil {
		return fmt.Errorf("%w: %q", ErrBlockNotFound, id)
	}
	merged := block.MergeAttributes(n.Attributes, attrs)
	for k, v := range attrs {
		if v == nil {
			delete(merged, k)
		}
	}
	n.Attributes = merged
	s.changed()
	return nil
}

func (s *Store) writable() error {
	if s.readOnly {
		return fmt.Errorf("%w: %s", ErrReadOnly, s.name)
	}
	return nil
}

// subtrees returns ids of blocks and all their descendants.
func (s *Store) subtrees(ids []block.ClientID) (map[block.ClientID]struct{}, error) {
	result := make(map[block.ClientID]struct{})
	for _, id := range ids {
		n := s.find(id)
		if n == nil {
			return nil, fmt.Errorf("%w: %q", ErrBlockNotFound, id)
		}
		for k := range block.CollectIDs([]*block.Node{n}) {
			result[k] = struct{}{}
		}
	}
	return result, nil
}

// checkInsert makes sure nodes could be added to the tree once blocks in
// removed are gone.
func (s *Store) checkInsert(nodes []*block.Node, removed map[block.ClientID]struct{}) error {
	if err := block.Validate(nodes); err != nil {
		return fmt.Errorf("unable to insert blocks: %w", err)
	}
	existing := block.CollectIDs(s.blocks)
	for id := range removed {
		delete(existing, id)
	}
	var problem error
	block.Walk(nodes, func(n *block.Node, _ int) bool {
		if _, ok := existing[n.ClientID]; ok && problem == nil {
			problem = fmt.Errorf("%w: %q already present in %s", ErrIdentifierCollision, n.ClientID, s.name)
		}
		return problem == nil
	})
	return problem
}

func (s *Store) children(parent *block.Node) []*block.Node {
	if parent == nil {
		return s.blocks
	}
	return parent.Children
}

func (s *Store) insert(parent *block.Node, index int, nodes []*block.Node) {
	children := slices.Insert(slices.Clone(s.children(parent)), index, nodes...)
	if parent == nil {
		s.blocks = children
	} else {
		parent.Children = children
	}
}

func (s *Store) prune(ids []block.ClientID) {
	targets := make(map[block.ClientID]struct{}, len(ids))
	for _, id := range ids {
		targets[id] = struct{}{}
	}
	s.blocks = prune(s.blocks, targets)
}

// prune never modifies slices in place, they could be shared with callers.
func prune(nodes []*block.Node, targets map[block.ClientID]struct{}) []*block.Node {
	var result []*block.Node
	for _, n := range nodes {
		if _, ok := targets[n.ClientID]; ok {
			continue
		}
		if len(n.Children) > 0 {
			n.Children = prune(n.Children, targets)
		}
		result = append(result, n)
	}
	return result
}
