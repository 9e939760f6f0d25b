package version

import (
	"slices"
	"strings"
)

// Set is an ordered (ascending), duplicate-free collection of versions.
// The zero value is an empty set.
type Set struct {
	items []Version
}

// NewSet builds a set from arbitrary input.
func NewSet(vs ...Version) Set {
	items := slices.Clone(vs)
	slices.SortFunc(items, Version.Compare)
	return Set{items: slices.Compact(items)}
}

// Len returns the number of versions in the set.
func (s Set) Len() int { return len(s.items) }

// IsEmpty reports whether the set holds no versions.
func (s Set) IsEmpty() bool { return len(s.items) == 0 }

// Slice returns the versions in ascending order.
func (s Set) Slice() []Version { return slices.Clone(s.items) }

// Descending returns the versions highest first, the order in which
// equally valid candidates are preferred.
func (s Set) Descending() []Version {
	out := slices.Clone(s.items)
	slices.Reverse(out)
	return out
}

// Contains reports membership.
func (s Set) Contains(v Version) bool {
	_, found := slices.BinarySearchFunc(s.items, v, Version.Compare)
	return found
}

// Max returns the highest version; ok is false for an empty set.
func (s Set) Max() (Version, bool) {
	if len(s.items) == 0 {
		return Version{}, false
	}
	return s.items[len(s.items)-1], true
}

// Min returns the lowest version; ok is false for an empty set.
func (s Set) Min() (Version, bool) {
	if len(s.items) == 0 {
		return Version{}, false
	}
	return s.items[0], true
}

// Intersect merges two ordered sets in linear time.
func (s Set) Intersect(o Set) Set {
	out := make([]Version, 0, min(len(s.items), len(o.items)))
	i, j := 0, 0
	for i < len(s.items) && j < len(o.items) {
		switch c := s.items[i].Compare(o.items[j]); {
		case c == 0:
			out = append(out, s.items[i])
			i++
			j++
		case c < 0:
			i++
		default:
			j++
		}
	}
	return Set{items: out}
}

// Filter keeps the versions for which keep returns true.
func (s Set) Filter(keep func(Version) bool) Set {
	out := make([]Version, 0, len(s.items))
	for _, v := range s.items {
		if keep(v) {
			out = append(out, v)
		}
	}
	return Set{items: out}
}

// Equal reports element-wise equality.
func (s Set) Equal(o Set) bool {
	return slices.Equal(s.items, o.items)
}

// String renders the set as "{5.0, 7.0}".
func (s Set) String() string {
	parts := make([]string, len(s.items))
	for i, v := range s.items {
		parts[i] = v.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
