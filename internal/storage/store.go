package storage

import (
	"sync"
	"time"
)

// Store is a thread-safe typed key-value storage.
// A key lives in exactly one of the four tables; expires holds deadlines for keys of any type
type Store struct {
	strings map[string]string              // key - value
	hashes  map[string]map[string]string   // key - field - value
	lists   map[string][]string            // key - elements, head first
	sets    map[string]map[string]struct{} // key - members
	expires map[string]int64               // key - expires time unix milliseconds
	now     func() time.Time
	mu      sync.RWMutex
}

// Option configures a Store
type Option func(*Store)

// WithClock replaces the wall clock used for expiration
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a new empty Store
func NewStore(opts ...Option) *Store {
	s := &Store{
		strings: make(map[string]string),
		hashes:  make(map[string]map[string]string),
		lists:   make(map[string][]string),
		sets:    make(map[string]map[string]struct{}),
		expires: make(map[string]int64),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Store) nowMillis() int64 {
	return s.now().UnixMilli()
}

// expireIfNeeded drops the key when its deadline has passed. Caller must hold the write lock
func (s *Store) expireIfNeeded(key string) {
	exp, ok := s.expires[key]
	if ok && s.nowMillis() >= exp {
		s.remove(key)
	}
}

// isExpired reports whether the key is past its deadline without touching it. Caller must hold a lock
func (s *Store) isExpired(key string, now int64) bool {
	exp, ok := s.expires[key]
	return ok && now >= exp
}

// remove deletes the key from every table. Caller must hold the write lock
func (s *Store) remove(key string) bool {
	existed := s.typeOf(key) != TypeNone

	delete(s.strings, key)
	delete(s.hashes, key)
	delete(s.lists, key)
	delete(s.sets, key)
	delete(s.expires, key)

	return existed
}

// typeOf returns which table holds the key. Caller must hold a lock
func (s *Store) typeOf(key string) DataType {
	if _, ok := s.strings[key]; ok {
		return TypeString
	}
	if _, ok := s.hashes[key]; ok {
		return TypeHash
	}
	if _, ok := s.lists[key]; ok {
		return TypeList
	}
	if _, ok := s.sets[key]; ok {
		return TypeSet
	}
	return TypeNone
}

// prepare applies lazy expiration and verifies the key is either absent or of the wanted type
func (s *Store) prepare(key string, want DataType) error {
	s.expireIfNeeded(key)

	if t := s.typeOf(key); t != TypeNone && t != want {
		return ErrWrongType
	}
	return nil
}

// Get returns the value and true if the key is found. Otherwise, "", false
func (s *Store) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.prepare(key, TypeString); err != nil {
		return "", false, err
	}

	val, ok := s.strings[key]
	return val, ok, nil
}

// Set writes the value based on the options. Returns true if recording has been performed.
// A plain write clears any previous TTL; KeepTTL retains it
func (s *Store) Set(key, value string, options SetOptions) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	// key exists but is expired, clean it up now so logic below treats it as new
	s.expireIfNeeded(key)
	exists := s.typeOf(key) != TypeNone

	if options.NX && exists {
		return false
	}

	if options.XX && !exists {
		return false
	}

	exp, hadExp := s.expires[key]
	if exists {
		// SET replaces a value of any type
		s.remove(key)
	}
	s.strings[key] = value

	switch {
	case options.KeepTTL:
		// if KEEPTTL is set, we restore the old deadline
		// however, if the key is new (freshly created), KEEPTTL behaves like no TTL
		if hadExp {
			s.expires[key] = exp
		}
	case !options.ExpireAt.IsZero():
		s.expires[key] = options.ExpireAt.UnixMilli()
	case options.TTL != 0:
		s.expires[key] = s.now().Add(options.TTL).UnixMilli()
	}

	return true
}

// Delete deletes keys of any type. Returns the number of keys that existed
func (s *Store) Delete(keys ...string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, key := range keys {
		s.expireIfNeeded(key)
		if s.remove(key) {
			n++
		}
	}
	return n
}

// Exists returns how many of the given keys are alive. Repeated keys are counted every time
func (s *Store) Exists(keys ...string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, key := range keys {
		s.expireIfNeeded(key)
		if s.typeOf(key) != TypeNone {
			n++
		}
	}
	return n
}

// Type returns the kind of value stored at key
func (s *Store) Type(key string) DataType {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireIfNeeded(key)
	return s.typeOf(key)
}

// Expire sets a relative lifetime on an existing key. Returns false if the key does not exist
func (s *Store) Expire(key string, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireIfNeeded(key)
	if s.typeOf(key) == TypeNone {
		return false
	}

	s.expires[key] = s.now().Add(ttl).UnixMilli()
	return true
}

// Expiry returns the remaining lifetime and status as ExpiryStatus
func (s *Store) Expiry(key string) (time.Duration, ExpiryStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireIfNeeded(key)

	// key does not exist
	if s.typeOf(key) == TypeNone {
		return 0, ExpNotFound
	}

	exp, hasExp := s.expires[key]
	// key without TTL
	if !hasExp {
		return 0, ExpNoTimeout
	}

	return time.Duration(exp-s.nowMillis()) * time.Millisecond, ExpActive
}

// Persist removes the expiration date of the key, making it eternal.
// Returns 1 if successful, 0 if the key was not found or had no TTL
func (s *Store) Persist(key string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireIfNeeded(key)

	if _, hasExp := s.expires[key]; !hasExp {
		return 0
	}

	delete(s.expires, key)
	return 1
}

// Len returns the number of live keys across all types
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.nowMillis()
	n := len(s.strings) + len(s.hashes) + len(s.lists) + len(s.sets)

	for key := range s.expires {
		if s.isExpired(key, now) {
			n--
		}
	}
	return n
}

// Flush removes every key
func (s *Store) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.strings = make(map[string]string)
	s.hashes = make(map[string]map[string]string)
	s.lists = make(map[string][]string)
	s.sets = make(map[string]map[string]struct{})
	s.expires = make(map[string]int64)
}
