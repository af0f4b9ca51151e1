package debug

import (
	"fmt"
	"strconv"
	"strings"
)

// TreeWriter accumulates indented lines for human readable dumps of nested
// structures.
type TreeWriter struct {
	w *strings.Builder
}

func NewTreeWriter() *TreeWriter {
	return &TreeWriter{
		w: &strings.Builder{},
	}
}

func (tw TreeWriter) String() string {
	return tw.w.String()
}

func (tw TreeWriter) indent(depth int) {
	for range depth {
		tw.w.WriteString("  ")
	}
}

func (tw TreeWriter) Line(depth int, format string, args ...any) {
	tw.indent(depth)
	fmt.Fprintf(tw.w, format, args...)
	tw.w.WriteByte('\n')
}

// Field writes "label: value", strings are quoted so that empty and
// whitespace-only values stay visible.
func (tw TreeWriter) Field(depth int, label string, value any) {
	tw.indent(depth)
	tw.w.WriteString(label)
	tw.w.WriteString(": ")
	tw.w.WriteString(encodeValue(value))
	tw.w.WriteByte('\n')
}

func encodeValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "<nil>"
	case string:
		return strconv.Quote(val)
	case fmt.Stringer:
		return strconv.Quote(val.String())
	default:
		return fmt.Sprintf("%v", val)
	}
}
