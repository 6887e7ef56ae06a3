package storage

import "github.com/samber/lo"

// HSet sets the specified fields to their respective values in the hash stored at key.
// Returns the number of fields that were created
func (s *Store) HSet(key string, fields map[string]string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.prepare(key, TypeHash); err != nil {
		return 0, err
	}

	h, ok := s.hashes[key]
	if !ok {
		h = make(map[string]string, len(fields))
		s.hashes[key] = h
	}

	var created int64
	for field, value := range fields {
		if _, exists := h[field]; !exists {
			created++
		}
		h[field] = value
	}

	return created, nil
}

// HGet returns the value associated with field in the hash stored at key
func (s *Store) HGet(key, field string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.prepare(key, TypeHash); err != nil {
		return "", false, err
	}

	val, ok := s.hashes[key][field]
	return val, ok, nil
}

// HGetAll returns a copy of all fields and values of the hash stored at key
func (s *Store) HGetAll(key string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.prepare(key, TypeHash); err != nil {
		return nil, err
	}

	h := s.hashes[key]
	out := make(map[string]string, len(h))
	for f, v := range h {
		out[f] = v
	}
	return out, nil
}

// HDel removes fields from the hash and drops the key once it is empty
func (s *Store) HDel(key string, fields ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.prepare(key, TypeHash); err != nil {
		return 0, err
	}

	h, ok := s.hashes[key]
	if !ok {
		return 0, nil
	}

	var removed int64
	for _, field := range fields {
		if _, exists := h[field]; exists {
			delete(h, field)
			removed++
		}
	}

	if len(h) == 0 {
		s.remove(key)
	}

	return removed, nil
}

// HExists returns if field is an existing field in the hash stored at key
func (s *Store) HExists(key, field string) (bool, error) {
	_, ok, err := s.HGet(key, field)
	return ok, err
}

// HLen returns the number of fields contained in the hash stored at key
func (s *Store) HLen(key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.prepare(key, TypeHash); err != nil {
		return 0, err
	}

	return int64(len(s.hashes[key])), nil
}

// HKeys returns all field names in the hash stored at key
func (s *Store) HKeys(key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.prepare(key, TypeHash); err != nil {
		return nil, err
	}

	return lo.Keys(s.hashes[key]), nil
}

// HVals returns all values in the hash stored at key
func (s *Store) HVals(key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.prepare(key, TypeHash); err != nil {
		return nil, err
	}

	return lo.Values(s.hashes[key]), nil
}
