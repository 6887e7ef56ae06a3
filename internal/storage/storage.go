package storage

import (
	"errors"
	"time"
)

// ErrWrongType is returned when a command targets a key that holds another kind of value
var ErrWrongType = errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")

type ExpiryStatus int

const (
	// ExpNotFound means that the key does not exist
	ExpNotFound ExpiryStatus = -2
	// ExpNoTimeout means that the key exists, but it does not have a TTL
	ExpNoTimeout ExpiryStatus = -1
	// ExpActive means that the key has an active lifetime
	ExpActive ExpiryStatus = 1
)

type SetOptions struct {
	TTL      time.Duration // key lifetime
	ExpireAt time.Time     // absolute deadline, takes precedence over TTL when set
	KeepTTL  bool          // if true, retain the existing TTL (ignore TTL field)
	NX       bool          // only set if the key does not exist
	XX       bool          // only set if the key already exists
}

// Storage is a common interface for working with the typed keyspace.
// Every method applies lazy expiration to the keys it touches before doing anything else
type Storage interface {
	// Get returns the value and true if the key is found. Otherwise, "", false
	Get(key string) (string, bool, error)

	// Set writes the value based on the options. Returns true if recording has been performed
	Set(key, value string, options SetOptions) bool

	// Delete deletes keys of any type. Returns the number of keys that existed
	Delete(keys ...string) int64

	// Exists returns how many of the given keys are alive
	Exists(keys ...string) int64

	// Type returns the kind of value stored at key
	Type(key string) DataType

	// Expire sets a relative lifetime on an existing key. Returns false if the key does not exist
	Expire(key string, ttl time.Duration) bool

	// Expiry returns the remaining lifetime and status as ExpiryStatus
	Expiry(key string) (time.Duration, ExpiryStatus)

	// Persist removes the expiration date of the key, making it eternal.
	// Returns 1 if successful, 0 if the key was not found or had no TTL
	Persist(key string) int64

	// HSet sets the specified fields to their respective values in the hash stored at key
	HSet(key string, fields map[string]string) (int64, error)

	// HGet returns the value associated with field in the hash stored at key
	HGet(key, field string) (string, bool, error)

	// HGetAll returns all fields and values of the hash stored at key
	HGetAll(key string) (map[string]string, error)

	// HDel removes fields from the hash and drops the key once it is empty
	HDel(key string, fields ...string) (int64, error)

	// HExists returns if field is an existing field in the hash stored at key
	HExists(key, field string) (bool, error)

	// HLen returns the number of fields contained in the hash stored at key
	HLen(key string) (int64, error)

	// HKeys returns all field names in the hash stored at key
	HKeys(key string) ([]string, error)

	// HVals returns all values in the hash stored at key
	HVals(key string) ([]string, error)

	LPush(key string, values ...string) (int64, error)
	RPush(key string, values ...string) (int64, error)
	LPop(key string) (string, bool, error)
	RPop(key string) (string, bool, error)
	LRange(key string, start, stop int64) ([]string, error)
	LLen(key string) (int64, error)

	SAdd(key string, members ...string) (int64, error)
	SRem(key string, members ...string) (int64, error)
	SMembers(key string) ([]string, error)
	SCard(key string) (int64, error)
	SIsMember(key, member string) (bool, error)

	// Len returns the number of live keys across all types
	Len() int

	// Flush removes every key
	Flush()

	// Export returns a deep copy of the data, without expiration records
	Export() Dump

	// Import replaces the whole keyspace with the content of the dump
	Import(d Dump)
}
