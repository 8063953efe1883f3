package lang

import "encoding/json"

// MarshalJSON implements json.Marshaler for Value. Absent encodes as null,
// a scalar as its datum, and a sequence as an array with each element
// encoded recursively.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(native(v))
}

// MarshalJSON implements json.Marshaler for FlatSequence.
func (f FlatSequence) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Value())
}

// ToMap converts every binding visible in the scope to a native Go map.
// Multi-valued bindings become slices; single values keep their datum type.
func (s *Scope) ToMap() map[string]any {
	names := s.Names()
	result := make(map[string]any, len(names))

	for _, name := range names {
		result[name] = native(s.Resolve(name))
	}

	return result
}

// MarshalJSON implements json.Marshaler for Scope.
func (s *Scope) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.ToMap())
}
