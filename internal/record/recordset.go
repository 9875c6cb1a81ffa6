package record

import "sort"

// Set manages the coalesced collection of Records produced by a loader.
// Two records with the same (fqdn, type) merge their values in declaration
// order; duplicate values are preserved.
type Set struct {
	byKey map[string]*Record
	order []string
}

// NewSet returns an empty, ready to use Set.
func NewSet() *Set {
	return &Set{byKey: make(map[string]*Record)}
}

func setKey(fqdn string, typ Type) string {
	return fqdn + "\x00" + string(typ)
}

// Add inserts r, merging into an existing record with the same (fqdn, type).
func (s *Set) Add(r *Record) {
	key := setKey(r.FQDN(), r.Type)
	if existing, ok := s.byKey[key]; ok {
		existing.Values = append(existing.Values, r.Values...)
		return
	}
	s.byKey[key] = r
	s.order = append(s.order, key)
}

// Len returns the number of distinct (fqdn, type) records.
func (s *Set) Len() int {
	return len(s.byKey)
}

// Get looks up a record by its (fqdn, type) key, as produced by setKey.
func (s *Set) Get(fqdn string, typ Type) (*Record, bool) {
	r, ok := s.byKey[setKey(fqdn, typ)]
	return r, ok
}

// All returns every record, ordered ascending by (fqdn, type) key — the
// same deterministic order the original tool iterates records in.
func (s *Set) All() []*Record {
	keys := make([]string, 0, len(s.byKey))
	for k := range s.byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*Record, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.byKey[k])
	}
	return out
}
