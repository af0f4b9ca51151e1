package debug

import (
	"testing"
)

func TestTreeWriter_Empty(t *testing.T) {
	tw := NewTreeWriter()
	if tw == nil {
		t.Fatal("NewTreeWriter() returned nil")
	}
	if tw.String() != "" {
		t.Error("Expected empty string from new TreeWriter")
	}
}

func TestTreeWriter_Line(t *testing.T) {
	tests := []struct {
		name   string
		depth  int
		format string
		args   []any
		want   string
	}{
		{name: "no depth", depth: 0, format: "root", want: "root\n"},
		{name: "depth 1", depth: 1, format: "child", want: "  child\n"},
		{name: "depth 3", depth: 3, format: "leaf", want: "      leaf\n"},
		{name: "with formatting", depth: 1, format: "Block[%q] children[%d]", args: []any{"core/group", 2}, want: "  Block[\"core/group\"] children[2]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tw := NewTreeWriter()
			tw.Line(tt.depth, tt.format, tt.args...)
			if got := tw.String(); got != tt.want {
				t.Errorf("Line() = %q, want %q", got, tt.want)
			}
		})
	}
}

type stringer struct{}

func (stringer) String() string { return "stringer" }

func TestTreeWriter_Field(t *testing.T) {
	tests := []struct {
		name  string
		depth int
		label string
		value any
		want  string
	}{
		{name: "empty string", label: "content", value: "", want: "content: \"\"\n"},
		{name: "quoted string", depth: 1, label: "content", value: `say "hi"`, want: "  content: \"say \\\"hi\\\"\"\n"},
		{name: "number", label: "level", value: 2, want: "level: 2\n"},
		{name: "bool", depth: 2, label: "locked", value: true, want: "    locked: true\n"},
		{name: "nil", label: "missing", value: nil, want: "missing: <nil>\n"},
		{name: "stringer", label: "id", value: stringer{}, want: "id: \"stringer\"\n"},
		{name: "slice", label: "list", value: []int{1, 2}, want: "list: [1 2]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tw := NewTreeWriter()
			tw.Field(tt.depth, tt.label, tt.value)
			if got := tw.String(); got != tt.want {
				t.Errorf("Field() = %q, want %q", got, tt.want)
			}
		})
	}
}
