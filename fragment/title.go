package fragment

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"reblock/block"
)

// DefaultTitleTemplate is used when no title template is configured.
const DefaultTitleTemplate = `Untitled {{ .Label | lower }} pattern`

// titleValues holds variables available for title template expansion.
type titleValues struct {
	ID     string
	Type   string
	Label  string
	Blocks int
}

// TitleFormatter produces default titles for new fragments.
type TitleFormatter struct {
	tmpl *template.Template
}

func NewTitleFormatter(text string) (*TitleFormatter, error) {
	if strings.TrimSpace(text) == "" {
		text = DefaultTitleTemplate
	}
	tmpl, err := template.New("title").Funcs(sprig.FuncMap()).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("unable to parse title template: %w", err)
	}
	return &TitleFormatter{tmpl: tmpl}, nil
}

// Format expands title template for fragment with given id and content.
func (tf *TitleFormatter) Format(id ID, content *block.Node) (string, error) {
	values := &titleValues{ID: string(id)}
	if content != nil {
		values.Type = content.Name
		values.Label = TypeLabel(content.Name)
		values.Blocks = block.Count([]*block.Node{content})
	}

	var buf bytes.Buffer
	if err := tf.tmpl.Execute(&buf, values); err != nil {
		return "", fmt.Errorf("unable to expand title template: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// TypeLabel makes human readable label from block type name: namespace is
// dropped and words are title cased.
func TypeLabel(name string) string {
	if _, local, ok := strings.Cut(name, "/"); ok {
		name = local
	}
	name = strings.Join(strings.FieldsFunc(name, func(r rune) bool { return r == '-' || r == '_' }), " ")
	return cases.Title(language.English).String(name)
}
