// Package record holds the value types shared by filters, changes and the
// record collaborators. A record is a flat bag of string properties.
package record

import "maps"

// Properties maps a property name to its value. A nil value is a null; an
// absent key is a property that was never set.
type Properties map[string]*string

// String returns a pointer to s, for building Properties literals.
func String(s string) *string {
	return &s
}

// Get returns the value of name and whether it is set to a non-null value.
func (p Properties) Get(name string) (string, bool) {
	v, ok := p[name]
	if !ok || v == nil {
		return "", false
	}
	return *v, true
}

// Clone returns a shallow copy; values are immutable strings so sharing
// pointers is safe.
func (p Properties) Clone() Properties {
	if p == nil {
		return Properties{}
	}
	return maps.Clone(p)
}

// Ref identifies one record produced by a selection, with the property
// values current at selection time.
type Ref struct {
	ID         string
	Properties Properties
}
