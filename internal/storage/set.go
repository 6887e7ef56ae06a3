package storage

import "github.com/samber/lo"

// SAdd adds members to the set. Returns how many were not already present
func (s *Store) SAdd(key string, members ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.prepare(key, TypeSet); err != nil {
		return 0, err
	}

	set, ok := s.sets[key]
	if !ok {
		set = make(map[string]struct{}, len(members))
		s.sets[key] = set
	}

	var added int64
	for _, m := range members {
		if _, exists := set[m]; !exists {
			set[m] = struct{}{}
			added++
		}
	}

	return added, nil
}

// SRem removes members and drops the key once the set is empty
func (s *Store) SRem(key string, members ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.prepare(key, TypeSet); err != nil {
		return 0, err
	}

	set, ok := s.sets[key]
	if !ok {
		return 0, nil
	}

	var removed int64
	for _, m := range members {
		if _, exists := set[m]; exists {
			delete(set, m)
			removed++
		}
	}

	if len(set) == 0 {
		s.remove(key)
	}

	return removed, nil
}

// SMembers returns all members in no particular order
func (s *Store) SMembers(key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.prepare(key, TypeSet); err != nil {
		return nil, err
	}

	return lo.Keys(s.sets[key]), nil
}

// SCard returns the number of members
func (s *Store) SCard(key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.prepare(key, TypeSet); err != nil {
		return 0, err
	}

	return int64(len(s.sets[key])), nil
}

// SIsMember reports whether member belongs to the set
func (s *Store) SIsMember(key, member string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.prepare(key, TypeSet); err != nil {
		return false, err
	}

	_, ok := s.sets[key][member]
	return ok, nil
}
