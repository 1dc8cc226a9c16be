package codegen

import "slices"

// Registry is the set of variable names declared so far in one generation
// run. It is a value: Declare returns a new Registry and leaves the receiver
// unchanged.
type Registry struct {
	names []string
}

// Has reports whether name has been declared.
func (r Registry) Has(name string) bool {
	return slices.Contains(r.names, name)
}

// Declare returns a registry that also contains name.
func (r Registry) Declare(name string) Registry {
	if r.Has(name) {
		return r
	}
	return Registry{names: append(slices.Clip(r.names), name)}
}

// Names returns the declared names in declaration order.
func (r Registry) Names() []string {
	return slices.Clone(r.names)
}

// Len returns the number of declared names.
func (r Registry) Len() int {
	return len(r.names)
}
