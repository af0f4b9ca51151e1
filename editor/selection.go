package editor

import (
	"fmt"

	"go.uber.org/zap"

	"reblock/block"
)

func (s *Store) SelectionRange() Selection {
	return s.selection
}

// Select selects single block.
func (s *Store) Select(id block.ClientID) error {
	return s.SelectRange(id, id)
}

// SelectRange selects blocks from start to end. Locked content could not be
// selected.
func (s *Store) SelectRange(start, end block.ClientID) error {
	if s.readOnly {
		return fmt.Errorf("%w: unable to select in %s", ErrReadOnly, s.name)
	}
	for _, id := range []block.ClientID{start, end} {
		if s.find(id) == nil {
			return fmt.Errorf("%w: %q", ErrBlockNotFound, id)
		}
	}
	s.setSelection(Selection{Start: start, End: end})
	return nil
}

// ClearSelection is always allowed, even for locked content.
func (s *Store) ClearSelection() {
	s.setSelection(Selection{})
}

// OnSelectionChange registers listener called synchronously, in registration
// order, every time selection actually changes. Returned function unregisters
// it.
func (s *Store) OnSelectionChange(fn func(prev, cur Selection)) (cancel func()) {
	return s.selectionListeners.add(fn)
}

func (s *Store) setSelection(sel Selection) {
	if s.selection == sel {
		return
	}
	prev := s.selection
	s.selection = sel
	s.log.Debug("Selection changed",
		zap.Stringer("start", sel.Start), zap.Stringer("end", sel.End),
		zap.Bool("empty", sel.Empty()))

	for _, fn := range s.selectionListeners.snapshot() {
		fn(prev, sel)
	}
}

func (s *Store) selectionIn(ids map[block.ClientID]struct{}) bool {
	if s.selection.Empty() {
		return false
	}
	_, start := ids[s.selection.Start]
	_, end := ids[s.selection.End]
	return start || end
}
