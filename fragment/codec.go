package fragment

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"reblock/block"
)

// Stored content uses Core Deterministic Encoding, same content always
// produces identical bytes. Client ids are not stored, they are allocated
// again when content is decoded.
var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	if encMode, err = cbor.CoreDetEncOptions().EncMode(); err != nil {
		panic("fragment: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		// attributes are always keyed by strings
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		IntDec:         cbor.IntDecConvertSigned,
	}.DecMode()
	if err != nil {
		panic("fragment: CBOR decoder initialization failed: " + err.Error())
	}
}

type record struct {
	Name       string         `cbor:"type"`
	Attributes map[string]any `cbor:"attrs,omitempty"`
	Children   []record       `cbor:"children,omitempty"`
}

func toRecord(n *block.Node) record {
	r := record{Name: n.Name}
	if len(n.Attributes) > 0 {
		r.Attributes = map[string]any(n.Attributes)
	}
	for _, c := range n.Children {
		r.Children = append(r.Children, toRecord(c))
	}
	return r
}

func (r *record) toNode() *block.Node {
	var children []*block.Node
	for i := range r.Children {
		children = append(children, r.Children[i].toNode())
	}
	return block.New(r.Name, block.Attributes(r.Attributes), children...)
}

func encodeContent(n *block.Node) ([]byte, error) {
	if n == nil {
		return nil, fmt.Errorf("no content to encode")
	}
	data, err := encMode.Marshal(toRecord(n))
	if err != nil {
		return nil, fmt.Errorf("unable to encode fragment content: %w", err)
	}
	return data, nil
}

func decodeContent(data []byte) (*block.Node, error) {
	var r record
	if err := decMode.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unable to decode fragment content: %w", err)
	}
	if r.Name == "" {
		return nil, fmt.Errorf("%w: stored content has no type", block.ErrMalformedBlock)
	}
	return r.toNode(), nil
}
