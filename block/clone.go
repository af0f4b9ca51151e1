package block

import (
	"fmt"
	"maps"
)

// Clone creates a deep copy of the block and all its descendants. Every
// resulting block gets newly allocated client id, otherwise result is
// structurally identical.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	return &Node{
		ClientID:   NewClientID(),
		Name:       n.Name,
		Attributes: cloneAttributes(n.Attributes),
		Children:   cloneNodes(n.Children, (*Node).Clone),
	}
}

// Copy creates a deep copy of the block and all its descendants keeping
// client ids. Result is independently mutable and is meant to live in a
// different container than the original.
func (n *Node) Copy() *Node {
	if n == nil {
		return nil
	}
	return &Node{
		ClientID:   n.ClientID,
		Name:       n.Name,
		Attributes: cloneAttributes(n.Attributes),
		Children:   cloneNodes(n.Children, (*Node).Copy),
	}
}

// CloneAll deep clones every block in the list, see Clone.
func CloneAll(nodes []*Node) []*Node {
	return cloneNodes(nodes, (*Node).Clone)
}

// CopyAll deep copies every block in the list, see Copy.
func CopyAll(nodes []*Node) []*Node {
	return cloneNodes(nodes, (*Node).Copy)
}

func cloneNodes(nodes []*Node, fn func(*Node) *Node) []*Node {
	if nodes == nil {
		return nil
	}
	result := make([]*Node, len(nodes))
	for i := range nodes {
		result[i] = fn(nodes[i])
	}
	return result
}

func cloneAttributes(attrs Attributes) Attributes {
	if attrs == nil {
		return nil
	}
	result := make(Attributes, len(attrs))
	for k, v := range attrs {
		result[k] = cloneValue(v)
	}
	return result
}

// MergeAttributes returns new attributes with values from over superimposed on
// top of base. Neither argument is modified.
func MergeAttributes(base, over Attributes) Attributes {
	result := cloneAttributes(base)
	if result == nil {
		result = make(Attributes, len(over))
	}
	maps.Copy(result, cloneAttributes(over))
	return result
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, e := range val {
			result[k] = cloneValue(e)
		}
		return result
	case Attributes:
		return cloneAttributes(val)
	case []any:
		result := make([]any, len(val))
		for i := range val {
			result[i] = cloneValue(val[i])
		}
		return result
	case []string:
		return append([]string(nil), val...)
	case []byte:
		return append([]byte(nil), val...)
	default:
		// scalars are values already
		return val
	}
}

func stringify(v any) string {
	return fmt.Sprint(v)
}
