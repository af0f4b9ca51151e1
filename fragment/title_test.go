package fragment

import (
	"testing"

	"reblock/block"
)

func TestTypeLabel(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"core/group", "Group"},
		{"core/list-item", "List Item"},
		{"acme/call_to_action", "Call To Action"},
		{"paragraph", "Paragraph"},
	}
	for _, tt := range tests {
		if got := TypeLabel(tt.name); got != tt.want {
			t.Errorf("TypeLabel(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestTitleFormatter(t *testing.T) {
	content := block.New(block.TypeGroup, nil, block.New("core/paragraph", nil), block.New("core/paragraph", nil))

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{name: "default", template: "", want: "Untitled group pattern"},
		{name: "values", template: "{{ .Label }} #{{ .ID }} ({{ .Blocks }} blocks)", want: "Group #reusable-4 (3 blocks)"},
		{name: "sprig", template: `{{ .Type | upper | replace "/" "-" }}`, want: "CORE-GROUP"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tf, err := NewTitleFormatter(tt.template)
			if err != nil {
				t.Fatalf("NewTitleFormatter() error = %v", err)
			}
			got, err := tf.Format("reusable-4", content)
			if err != nil {
				t.Fatalf("Format() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Format() = %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := NewTitleFormatter("{{ .Label "); err == nil {
		t.Fatal("expected parse error")
	}
}
