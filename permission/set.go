package permission

import "sort"

// Set is an immutable collection of permission codes. The zero value is empty.
type Set struct {
	codes map[string]struct{}
}

// NewSet builds a set from codes, ignoring empty strings and duplicates.
func NewSet(codes ...string) Set {
	if len(codes) == 0 {
		return Set{}
	}
	m := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		if code == "" {
			continue
		}
		m[code] = struct{}{}
	}
	return Set{codes: m}
}

// Has reports whether code is in the set.
func (s Set) Has(code string) bool {
	_, ok := s.codes[code]
	return ok
}

// Len returns the number of codes.
func (s Set) Len() int {
	return len(s.codes)
}

// Empty reports whether the set grants nothing.
func (s Set) Empty() bool {
	return len(s.codes) == 0
}

// Codes returns the codes in lexical order. The result is a fresh slice.
func (s Set) Codes() []string {
	out := make([]string, 0, len(s.codes))
	for code := range s.codes {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// Equal reports whether both sets hold the same codes.
func (s Set) Equal(other Set) bool {
	if len(s.codes) != len(other.codes) {
		return false
	}
	for code := range s.codes {
		if _, ok := other.codes[code]; !ok {
			return false
		}
	}
	return true
}
