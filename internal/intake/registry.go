// Package intake holds the profile model of the volunteer intake conversation:
// the field registry, value sanitizing, the known-field tracker and the
// completion rule. Everything in here is pure and safe for concurrent use.
package intake

// FieldName identifies one intake field. Only names held by a Registry are
// ever stored or transmitted.
type FieldName string

const (
	FieldFullName     FieldName = "naam"
	FieldPostalCode   FieldName = "postcode"
	FieldWorkType     FieldName = "type_werk"
	FieldAvailability FieldName = "beschikbaarheid"
	FieldContact      FieldName = "contact"
)

// Kind is a bit set of the value shapes a field accepts.
type Kind uint8

const (
	KindString Kind = 1 << iota
	KindNumber
	KindBool
	KindList

	AnyKind = KindString | KindNumber | KindBool | KindList
)

// Field describes one registry entry. A zero Kinds accepts every shape.
type Field struct {
	Name        FieldName
	Description string
	Kinds       Kind
}

func (f Field) accepts(k Kind) bool {
	if f.Kinds == 0 {
		return true
	}
	return f.Kinds&k != 0
}

// Registry is the closed catalogue of fields the intake must collect.
type Registry struct {
	fields []Field
	index  map[FieldName]int
}

// NewRegistry builds a registry in the given order. Later duplicates of a
// name are ignored.
func NewRegistry(fields ...Field) *Registry {
	r := &Registry{index: make(map[FieldName]int, len(fields))}
	for _, f := range fields {
		if f.Name == "" {
			continue
		}
		if _, dup := r.index[f.Name]; dup {
			continue
		}
		r.index[f.Name] = len(r.fields)
		r.fields = append(r.fields, f)
	}
	return r
}

// DefaultRegistry returns the fields collected by the volunteer intake. Its
// fields accept every value shape.
func DefaultRegistry() *Registry {
	return NewRegistry(
		Field{Name: FieldFullName, Description: "volledige naam van de vrijwilliger"},
		Field{Name: FieldPostalCode, Description: "postcode van het woonadres"},
		Field{Name: FieldWorkType, Description: "soort vrijwilligerswerk dat de persoon zoekt"},
		Field{Name: FieldAvailability, Description: "wanneer en hoeveel de persoon beschikbaar is"},
		Field{Name: FieldContact, Description: "voorkeur voor contact (telefoon, e-mail, app)"},
	)
}

// Fields returns a copy of the registry entries in registry order.
func (r *Registry) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// Names returns the field names in registry order.
func (r *Registry) Names() []FieldName {
	out := make([]FieldName, len(r.fields))
	for i, f := range r.fields {
		out[i] = f.Name
	}
	return out
}

func (r *Registry) Len() int {
	return len(r.fields)
}

// Lookup finds a field by its wire name.
func (r *Registry) Lookup(name string) (Field, bool) {
	i, ok := r.index[FieldName(name)]
	if !ok {
		return Field{}, false
	}
	return r.fields[i], true
}

func (r *Registry) Has(name string) bool {
	_, ok := r.index[FieldName(name)]
	return ok
}
