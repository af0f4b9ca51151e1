// Package block defines the content tree: ordered, recursively nested blocks
// identified by client-local identifiers.
package block

import (
	"errors"

	"github.com/google/uuid"
)

// Well-known block types.
const (
	// TypeReference points at a reusable fragment by its identifier kept in
	// RefAttribute.
	TypeReference = "core/block"
	// TypeGroup is the aggregate container wrapping several blocks converted
	// into a single reusable fragment.
	TypeGroup = "core/group"

	RefAttribute = "ref"
)

var (
	// ErrIdentifierCollision signals that two blocks share a client id. This
	// is an internal invariant violation, allocation never reuses ids.
	ErrIdentifierCollision = errors.New("block: client id collision")
	ErrMalformedBlock      = errors.New("block: malformed block")
	ErrNotReference        = errors.New("block: not a reference")
)

// ClientID identifies a block within an editing session. It is never used as
// storage identity and never persisted as such.
type ClientID string

func (id ClientID) String() string {
	return string(id)
}

// NewClientID allocates fresh identifier.
func NewClientID() ClientID {
	return ClientID(uuid.NewString())
}

// Attributes are block type specific, shape is defined by block type.
type Attributes map[string]any

// Node is a single block, it may contain nested blocks.
type Node struct {
	ClientID   ClientID   `yaml:"id,omitempty"`
	Name       string     `yaml:"type"`
	Attributes Attributes `yaml:"attributes,omitempty"`
	Children   []*Node    `yaml:"children,omitempty"`
}

// New creates block with freshly allocated client id. Attributes are used as
// is, caller should not modify them afterwards.
func New(name string, attrs Attributes, children ...*Node) *Node {
	if attrs == nil {
		attrs = Attributes{}
	}
	return &Node{
		ClientID:   NewClientID(),
		Name:       name,
		Attributes: attrs,
		Children:   children,
	}
}

// NewReference creates reference block pointing to fragment with given id.
func NewReference(ref string) *Node {
	return New(TypeReference, Attributes{RefAttribute: ref})
}

// IsReference reports whether block points at reusable fragment.
func (n *Node) IsReference() bool {
	return n != nil && n.Name == TypeReference
}

// IsGroup reports whether block is an aggregate container.
func (n *Node) IsGroup() bool {
	return n != nil && n.Name == TypeGroup
}

// Ref returns identifier of the referenced fragment, empty string if block is
// not a reference or reference is not set.
func (n *Node) Ref() string {
	if !n.IsReference() {
		return ""
	}
	switch v := n.Attributes[RefAttribute].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		// documents written by hand may carry numeric ids
		return stringify(v)
	}
}
