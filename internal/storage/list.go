package storage

// LPush inserts values at the head one by one, so "LPUSH k a b" leaves [b a].
// Returns the length of the list after the push
func (s *Store) LPush(key string, values ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.prepare(key, TypeList); err != nil {
		return 0, err
	}

	old := s.lists[key]
	list := make([]string, 0, len(old)+len(values))
	for i := len(values) - 1; i >= 0; i-- {
		list = append(list, values[i])
	}
	list = append(list, old...)
	s.lists[key] = list

	return int64(len(list)), nil
}

// RPush appends values at the tail in the given order
func (s *Store) RPush(key string, values ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.prepare(key, TypeList); err != nil {
		return 0, err
	}

	s.lists[key] = append(s.lists[key], values...)
	return int64(len(s.lists[key])), nil
}

// LPop removes and returns the first element
func (s *Store) LPop(key string) (string, bool, error) {
	return s.pop(key, true)
}

// RPop removes and returns the last element
func (s *Store) RPop(key string) (string, bool, error) {
	return s.pop(key, false)
}

func (s *Store) pop(key string, head bool) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.prepare(key, TypeList); err != nil {
		return "", false, err
	}

	list := s.lists[key]
	if len(list) == 0 {
		return "", false, nil
	}

	var val string
	if head {
		val = list[0]
		list[0] = ""
		list = list[1:]
	} else {
		val = list[len(list)-1]
		list = list[:len(list)-1]
	}

	if len(list) == 0 {
		s.remove(key)
	} else {
		s.lists[key] = list
	}

	return val, true, nil
}

// LRange returns the elements between start and stop inclusive.
// Negative indexes count from the tail (-1 is the last element); out of range indexes are clamped
func (s *Store) LRange(key string, start, stop int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.prepare(key, TypeList); err != nil {
		return nil, err
	}

	list := s.lists[key]
	n := int64(len(list))

	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}

	if start > stop || start >= n {
		return []string{}, nil
	}

	out := make([]string, stop-start+1)
	copy(out, list[start:stop+1])
	return out, nil
}

// LLen returns the length of the list stored at key
func (s *Store) LLen(key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.prepare(key, TypeList); err != nil {
		return 0, err
	}

	return int64(len(s.lists[key])), nil
}
