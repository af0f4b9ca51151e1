package editor

import (
	"maps"
	"slices"
	"sort"

	"github.com/maruel/natural"

	"reblock/block"
	"reblock/utils/debug"
)

// Render produces textual view of content. Non editable content is marked as
// locked on every line, nothing in it is interactive.
func Render(nodes []*block.Node, editable bool) string {
	return render(nodes, editable, Selection{})
}

// Render produces textual view of the store content with current
// editability and selection.
func (s *Store) Render() string {
	return render(s.blocks, !s.readOnly, s.selection)
}

func render(nodes []*block.Node, editable bool, sel Selection) string {
	tw := debug.NewTreeWriter()
	if editable {
		tw.Line(0, "Editable content: %d", block.Count(nodes))
	} else {
		tw.Line(0, "Locked content: %d", block.Count(nodes))
	}
	block.Walk(nodes, func(n *block.Node, depth int) bool {
		marker := " "
		switch {
		case !editable:
			marker = "#"
		case n.ClientID == sel.Start || n.ClientID == sel.End:
			marker = ">"
		}
		tw.Line(depth+1, "%s %s", marker, n.Name)
		keys := slices.Collect(maps.Keys(n.Attributes))
		sort.Sort(natural.StringSlice(keys))
		for _, k := range keys {
			tw.Field(depth+3, k, n.Attributes[k])
		}
		return true
	})
	return tw.String()
}
