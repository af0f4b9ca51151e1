package block

import (
	"maps"
	"slices"
	"sort"

	"github.com/maruel/natural"
)

// Type describes default shape of blocks of a particular type.
type Type struct {
	Name       string
	Title      string
	Attributes Attributes
}

// Defaults returns independent copy of default attributes.
func (t Type) Defaults() Attributes {
	return cloneAttributes(t.Attributes)
}

// Types is read-only lookup of block types by name.
type Types interface {
	Lookup(name string) (Type, bool)
}

// Registry is immutable set of known block types.
type Registry struct {
	types map[string]Type
}

// NewRegistry builds registry from the list of types, later entries replace
// earlier ones with the same name.
func NewRegistry(types ...Type) *Registry {
	r := &Registry{types: make(map[string]Type, len(types))}
	for _, t := range types {
		t.Attributes = cloneAttributes(t.Attributes)
		r.types[t.Name] = t
	}
	return r
}

func (r *Registry) Lookup(name string) (Type, bool) {
	if r == nil {
		return Type{}, false
	}
	t, ok := r.types[name]
	return t, ok
}

// Names returns names of all registered types in natural order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := slices.Collect(maps.Keys(r.types))
	sort.Sort(natural.StringSlice(names))
	return names
}

// DefaultRegistry returns registry with core block types.
func DefaultRegistry() *Registry {
	return NewRegistry(
		Type{Name: "core/paragraph", Title: "Paragraph", Attributes: Attributes{"content": "", "dropCap": false}},
		Type{Name: "core/heading", Title: "Heading", Attributes: Attributes{"content": "", "level": 2}},
		Type{Name: "core/image", Title: "Image", Attributes: Attributes{"url": "", "alt": ""}},
		Type{Name: "core/list", Title: "List", Attributes: Attributes{"ordered": false}},
		Type{Name: "core/list-item", Title: "List item", Attributes: Attributes{"content": ""}},
		Type{Name: "core/quote", Title: "Quote", Attributes: Attributes{"citation": ""}},
		Type{Name: "core/columns", Title: "Columns", Attributes: Attributes{}},
		Type{Name: "core/column", Title: "Column", Attributes: Attributes{}},
		Type{Name: "core/buttons", Title: "Buttons", Attributes: Attributes{}},
		Type{Name: "core/button", Title: "Button", Attributes: Attributes{"text": "", "url": ""}},
		Type{Name: "core/separator", Title: "Separator", Attributes: Attributes{}},
		Type{Name: TypeGroup, Title: "Group", Attributes: Attributes{}},
		Type{Name: TypeReference, Title: "Reusable block", Attributes: Attributes{}},
	)
}
