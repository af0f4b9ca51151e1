package block

import (
	"errors"
	"fmt"
	"io"

	yaml "gopkg.in/yaml.v3"
)

// document is on-disk representation used by command line tools.
type document struct {
	Blocks []*Node `yaml:"blocks"`
}

// ReadDocument loads list of blocks from YAML. Blocks without id get one.
func ReadDocument(r io.Reader) ([]*Node, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	AssignMissingIDs(doc.Blocks)
	if err := Validate(doc.Blocks); err != nil {
		return nil, fmt.Errorf("invalid document: %w", err)
	}
	return doc.Blocks, nil
}

// WriteDocument stores list of blocks as YAML.
func WriteDocument(w io.Writer, nodes []*Node) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(document{Blocks: nodes}); err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	return enc.Close()
}
