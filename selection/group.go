package selection

import (
	"slices"

	"go.uber.org/zap"

	"reblock/editor"
)

type member struct {
	id     uint64
	host   Host
	cancel func()
}

// Group keeps selection of sibling child contexts exclusive. Arbiter only
// covers a parent and a single child: when parent has nothing selected a
// child taking selection does not touch the parent, so the other children
// have to be cleared by the group.
type Group struct {
	log     *zap.Logger
	seq     uint64
	members []member
}

func NewGroup(log *zap.Logger) *Group {
	return &Group{log: log.Named("selection")}
}

// Add makes host a member of the group until remove is called. Host joining
// with selection while another member has one loses its selection.
func (g *Group) Add(host Host) (remove func()) {
	g.seq++
	id := g.seq
	cancel := host.OnSelectionChange(func(prev, cur editor.Selection) {
		if !prev.Empty() || cur.Empty() {
			return
		}
		g.selected(id)
	})
	g.members = append(g.members, member{id: id, host: host, cancel: cancel})

	if !host.SelectionRange().Empty() && slices.ContainsFunc(g.members, func(m member) bool {
		return m.id != id && !m.host.SelectionRange().Empty()
	}) {
		host.ClearSelection()
	}
	return func() { g.remove(id) }
}

// Len returns number of members.
func (g *Group) Len() int {
	return len(g.members)
}

func (g *Group) selected(id uint64) {
	// clearing may reenter the group through listeners
	for _, m := range slices.Clone(g.members) {
		if m.id == id || m.host.SelectionRange().Empty() {
			continue
		}
		g.log.Debug("Selection moved to sibling context")
		m.host.ClearSelection()
	}
}

func (g *Group) remove(id uint64) {
	i := slices.IndexFunc(g.members, func(m member) bool { return m.id == id })
	if i < 0 {
		return
	}
	g.members[i].cancel()
	g.members = slices.Delete(g.members, i, i+1)
}
