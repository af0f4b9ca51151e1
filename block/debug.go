package block

import (
	"maps"
	"slices"
	"sort"

	"github.com/maruel/natural"

	"reblock/utils/debug"
)

// String returns a readable tree of the block and its descendants.
// It exists solely for manual inspection during debugging.
func (n *Node) String() string {
	if n == nil {
		return "<nil Block>"
	}
	tw := debug.NewTreeWriter()
	dumpNode(tw, n, 0)
	return tw.String()
}

// Dump returns a readable tree of the list of blocks.
func Dump(nodes []*Node) string {
	tw := debug.NewTreeWriter()
	tw.Line(0, "Blocks: %d", len(nodes))
	for _, n := range nodes {
		dumpNode(tw, n, 1)
	}
	return tw.String()
}

func dumpNode(tw *debug.TreeWriter, n *Node, depth int) {
	if n == nil {
		tw.Line(depth, "<nil Block>")
		return
	}
	tw.Line(depth, "Block[%s] id[%s] children[%d]", n.Name, n.ClientID, len(n.Children))
	keys := slices.Collect(maps.Keys(n.Attributes))
	sort.Sort(natural.StringSlice(keys))
	for _, k := range keys {
		tw.Field(depth+1, k, n.Attributes[k])
	}
	for _, c := range n.Children {
		dumpNode(tw, c, depth+1)
	}
}
