package intake

// IsComplete is true iff every registry field is in known.
func (r *Registry) IsComplete(known KnownSet) bool {
	for _, f := range r.fields {
		if !known.Has(f.Name) {
			return false
		}
	}
	return true
}

// Missing lists the registry fields not yet in known, in registry order.
func (r *Registry) Missing(known KnownSet) []Field {
	var out []Field
	for _, f := range r.fields {
		if !known.Has(f.Name) {
			out = append(out, f)
		}
	}
	return out
}
