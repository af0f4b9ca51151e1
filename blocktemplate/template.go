// Package blocktemplate reconciles content trees against required structural
// templates.
package blocktemplate

import (
	"errors"
	"fmt"
	"io"

	yaml "gopkg.in/yaml.v3"

	"reblock/block"
)

var (
	ErrMalformedTemplate = errors.New("template: malformed entry")
	ErrUnknownType       = errors.New("template: unknown block type")
)

// Entry describes block required at a particular position of the tree.
// Attributes are superimposed on top of block type defaults when the block
// has to be synthesized, Inner is the template for synthesized children.
type Entry struct {
	Name       string           `yaml:"type"`
	Attributes block.Attributes `yaml:"attributes,omitempty"`
	Inner      []Entry          `yaml:"inner,omitempty"`
}

// Synchronize walks template and tree position by position. A block whose
// type matches the entry is kept as is, including its children. Any other
// position is filled with a newly synthesized block, blocks past the end of
// the template are dropped. Result always has the length of the template.
// Inputs are not modified.
func Synchronize(tree []*block.Node, template []Entry, types block.Types) ([]*block.Node, error) {
	result := make([]*block.Node, 0, len(template))
	for i := range template {
		if i < len(tree) && tree[i] != nil && tree[i].Name == template[i].Name {
			result = append(result, tree[i])
			continue
		}
		n, err := synthesize(&template[i], types, []int{i})
		if err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, nil
}

// Build synthesizes complete tree from template.
func Build(template []Entry, types block.Types) ([]*block.Node, error) {
	return buildAll(template, types, nil)
}

func buildAll(template []Entry, types block.Types, path []int) ([]*block.Node, error) {
	if len(template) == 0 {
		return nil, nil
	}
	result := make([]*block.Node, len(template))
	for i := range template {
		n, err := synthesize(&template[i], types, append(path[:len(path):len(path)], i))
		if err != nil {
			return nil, err
		}
		result[i] = n
	}
	return result, nil
}

func synthesize(e *Entry, types block.Types, path []int) (*block.Node, error) {
	if e.Name == "" {
		return nil, fmt.Errorf("%w: no block type at %v", ErrMalformedTemplate, path)
	}
	t, ok := types.Lookup(e.Name)
	if !ok {
		return nil, fmt.Errorf("%w: %q at %v", ErrUnknownType, e.Name, path)
	}
	children, err := buildAll(e.Inner, types, path)
	if err != nil {
		return nil, err
	}
	return block.New(e.Name, block.MergeAttributes(t.Defaults(), e.Attributes), children...), nil
}

// Matches reports whether tree already has the shape required by template:
// same length and same block types at every position. Children are checked
// only for entries which define inner template.
func Matches(tree []*block.Node, template []Entry) bool {
	if len(tree) != len(template) {
		return false
	}
	for i := range template {
		if tree[i] == nil || tree[i].Name != template[i].Name {
			return false
		}
		if template[i].Inner != nil && !Matches(tree[i].Children, template[i].Inner) {
			return false
		}
	}
	return true
}

type templateFile struct {
	Template []Entry `yaml:"template"`
}

// ReadTemplate loads template from YAML.
func ReadTemplate(r io.Reader) ([]Entry, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f templateFile
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode template: %w", err)
	}
	return f.Template, nil
}
