package storage

import (
	"maps"
	"slices"

	"github.com/samber/lo"
)

// Dump is a point-in-time copy of the four tables. Expiration records are not part of it
type Dump struct {
	Strings map[string]string            `json:"strings"`
	Hashes  map[string]map[string]string `json:"hashes"`
	Lists   map[string][]string          `json:"lists"`
	Sets    map[string][]string          `json:"sets"` // members sorted
}

// KeyCount returns the number of keys held by the dump
func (d Dump) KeyCount() int {
	return len(d.Strings) + len(d.Hashes) + len(d.Lists) + len(d.Sets)
}

// Export returns a deep copy of the data. Keys that already expired are left out
func (s *Store) Export() Dump {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.nowMillis()
	alive := func(key string) bool {
		return !s.isExpired(key, now)
	}

	d := Dump{
		Strings: make(map[string]string, len(s.strings)),
		Hashes:  make(map[string]map[string]string, len(s.hashes)),
		Lists:   make(map[string][]string, len(s.lists)),
		Sets:    make(map[string][]string, len(s.sets)),
	}

	for key, v := range s.strings {
		if alive(key) {
			d.Strings[key] = v
		}
	}
	for key, h := range s.hashes {
		if alive(key) {
			d.Hashes[key] = maps.Clone(h)
		}
	}
	for key, l := range s.lists {
		if alive(key) {
			d.Lists[key] = slices.Clone(l)
		}
	}
	for key, set := range s.sets {
		if alive(key) {
			members := lo.Keys(set)
			slices.Sort(members)
			d.Sets[key] = members
		}
	}

	return d
}

// Import replaces the whole keyspace with the content of the dump.
// Empty containers are skipped; a key repeated across tables keeps its first occurrence
// in the order strings, hashes, lists, sets
func (s *Store) Import(d Dump) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.strings = make(map[string]string, len(d.Strings))
	s.hashes = make(map[string]map[string]string, len(d.Hashes))
	s.lists = make(map[string][]string, len(d.Lists))
	s.sets = make(map[string]map[string]struct{}, len(d.Sets))
	s.expires = make(map[string]int64)

	for key, v := range d.Strings {
		s.strings[key] = v
	}
	for key, h := range d.Hashes {
		if len(h) == 0 || s.typeOf(key) != TypeNone {
			continue
		}
		s.hashes[key] = maps.Clone(h)
	}
	for key, l := range d.Lists {
		if len(l) == 0 || s.typeOf(key) != TypeNone {
			continue
		}
		s.lists[key] = slices.Clone(l)
	}
	for key, members := range d.Sets {
		if len(members) == 0 || s.typeOf(key) != TypeNone {
			continue
		}
		s.sets[key] = lo.SliceToMap(members, func(m string) (string, struct{}) {
			return m, struct{}{}
		})
	}
}
