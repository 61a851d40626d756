package intake

// KnownSet is the set of fields considered answered. It only ever grows:
// Advance returns a new, larger set and never mutates its input.
type KnownSet struct {
	registry *Registry
	members  map[FieldName]struct{}
}

// NewKnownSet returns an empty set bound to r.
func (r *Registry) NewKnownSet() KnownSet {
	return KnownSet{registry: r, members: make(map[FieldName]struct{})}
}

// DeriveInitialKnown unions the client-declared names that exist in the
// registry with the fields of current that hold a present value. Unknown
// declared names are ignored.
func (r *Registry) DeriveInitialKnown(clientDeclared []string, current Profile) KnownSet {
	known := r.NewKnownSet()
	for _, name := range clientDeclared {
		if field, ok := r.Lookup(name); ok {
			known.members[field.Name] = struct{}{}
		}
	}
	for name, v := range current {
		if r.Has(string(name)) && IsPresent(v) {
			known.members[name] = struct{}{}
		}
	}
	return known
}

// Advance returns known plus every field of extracted with a present value.
func (r *Registry) Advance(known KnownSet, extracted Profile) KnownSet {
	next := r.NewKnownSet()
	for name := range known.members {
		next.members[name] = struct{}{}
	}
	for name, v := range extracted {
		if r.Has(string(name)) && IsPresent(v) {
			next.members[name] = struct{}{}
		}
	}
	return next
}

func (k KnownSet) Has(name FieldName) bool {
	_, ok := k.members[name]
	return ok
}

func (k KnownSet) Len() int {
	return len(k.members)
}

// Covers reports whether k is a superset of other.
func (k KnownSet) Covers(other KnownSet) bool {
	for name := range other.members {
		if !k.Has(name) {
			return false
		}
	}
	return true
}

// Names lists the members in registry order.
func (k KnownSet) Names() []FieldName {
	out := make([]FieldName, 0, len(k.members))
	if k.registry == nil {
		return out
	}
	for _, f := range k.registry.fields {
		if k.Has(f.Name) {
			out = append(out, f.Name)
		}
	}
	return out
}

// Strings is Names as plain strings, the wire form of the set.
func (k KnownSet) Strings() []string {
	names := k.Names()
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = string(n)
	}
	return out
}
