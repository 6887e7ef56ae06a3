package storage

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock for expiration tests
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestStore_SetGetDelete(t *testing.T) {
	s := NewStore()

	assert.True(t, s.Set("k", "v", SetOptions{}))

	val, ok, err := s.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", val)

	assert.Equal(t, int64(0), s.Delete("missing"))
	assert.Equal(t, int64(1), s.Delete("k"))

	_, ok, err = s.Get("k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_DeleteCountsEveryType(t *testing.T) {
	s := NewStore()

	s.Set("s", "v", SetOptions{})
	_, _ = s.HSet("h", map[string]string{"f": "v"})
	_, _ = s.RPush("l", "a")
	_, _ = s.SAdd("z", "m")

	assert.Equal(t, int64(4), s.Delete("s", "h", "l", "z", "nope"))
	assert.Equal(t, 0, s.Len())
}

func TestStore_SetOptions(t *testing.T) {
	s := NewStore()

	assert.True(t, s.Set("k", "v1", SetOptions{NX: true}))
	assert.False(t, s.Set("k", "v2", SetOptions{NX: true}))
	assert.False(t, s.Set("other", "v", SetOptions{XX: true}))
	assert.True(t, s.Set("k", "v3", SetOptions{XX: true}))

	val, _, _ := s.Get("k")
	assert.Equal(t, "v3", val)
	assert.Equal(t, int64(0), s.Exists("other"))
}

func TestStore_ExpireAndTTL(t *testing.T) {
	clock := newFakeClock()
	s := NewStore(WithClock(clock.Now))

	assert.False(t, s.Expire("missing", time.Second))

	s.Set("k", "v", SetOptions{})
	_, status := s.Expiry("k")
	assert.Equal(t, ExpNoTimeout, status)

	require.True(t, s.Expire("k", 10*time.Second))

	remaining, status := s.Expiry("k")
	assert.Equal(t, ExpActive, status)
	assert.Equal(t, 10*time.Second, remaining)

	clock.Advance(3500 * time.Millisecond)
	remaining, _ = s.Expiry("k")
	assert.Equal(t, int64(6), int64(remaining/time.Second), "ttl is floored to whole seconds")

	clock.Advance(6500 * time.Millisecond)
	_, status = s.Expiry("k")
	assert.Equal(t, ExpNotFound, status, "deadline reached means expired")

	_, ok, err := s.Get("k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestStore_ExpiredKeyBehavesAsAbsent(t *testing.T) {
	clock := newFakeClock()
	s := NewStore(WithClock(clock.Now))

	_, _ = s.RPush("l", "a", "b")
	_, _ = s.SAdd("z", "a")
	_, _ = s.HSet("h", map[string]string{"f": "v"})
	s.Set("s", "v", SetOptions{TTL: time.Second})
	s.Expire("l", time.Second)
	s.Expire("z", time.Second)
	s.Expire("h", time.Second)

	assert.Equal(t, 4, s.Len())
	clock.Advance(time.Second)
	assert.Equal(t, 0, s.Len())

	n, err := s.LLen("l")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	card, err := s.SCard("z")
	require.NoError(t, err)
	assert.Equal(t, int64(0), card)

	all, err := s.HGetAll("h")
	require.NoError(t, err)
	assert.Empty(t, all)

	assert.Equal(t, int64(0), s.Delete("s"))
	assert.Equal(t, int64(0), s.Persist("s"))

	// a new write after expiry starts without the stale deadline
	_, _ = s.RPush("l", "fresh")
	_, status := s.Expiry("l")
	assert.Equal(t, ExpNoTimeout, status)
}

func TestStore_SetClearsTTLUnlessKeepTTL(t *testing.T) {
	clock := newFakeClock()
	s := NewStore(WithClock(clock.Now))

	s.Set("k", "v1", SetOptions{TTL: 100 * time.Second})
	s.Set("k", "v2", SetOptions{KeepTTL: true})

	remaining, status := s.Expiry("k")
	assert.Equal(t, ExpActive, status)
	assert.Equal(t, 100*time.Second, remaining)

	s.Set("k", "v3", SetOptions{})
	_, status = s.Expiry("k")
	assert.Equal(t, ExpNoTimeout, status, "plain SET drops the previous deadline")

	s.Set("fresh", "v", SetOptions{KeepTTL: true})
	_, status = s.Expiry("fresh")
	assert.Equal(t, ExpNoTimeout, status)
}

func TestStore_SetExpireAt(t *testing.T) {
	clock := newFakeClock()
	s := NewStore(WithClock(clock.Now))

	s.Set("k", "v", SetOptions{ExpireAt: clock.Now().Add(2 * time.Second)})
	remaining, status := s.Expiry("k")
	assert.Equal(t, ExpActive, status)
	assert.Equal(t, 2*time.Second, remaining)
}

func TestStore_Persist(t *testing.T) {
	s := NewStore()

	assert.Equal(t, int64(0), s.Persist("missing"))

	s.Set("k", "v", SetOptions{TTL: time.Minute})
	assert.Equal(t, int64(1), s.Persist("k"))
	assert.Equal(t, int64(0), s.Persist("k"))

	_, status := s.Expiry("k")
	assert.Equal(t, ExpNoTimeout, status)
}

func TestStore_Hash(t *testing.T) {
	s := NewStore()

	n, err := s.HSet("h", map[string]string{"f": "1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.HSet("h", map[string]string{"f": "2"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n, "updating a field is not a creation")

	val, ok, err := s.HGet("h", "f")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2", val)

	_, ok, _ = s.HGet("h", "nope")
	assert.False(t, ok)
	_, ok, _ = s.HGet("nope", "f")
	assert.False(t, ok)

	_, _ = s.HSet("h", map[string]string{"g": "3"})
	all, err := s.HGetAll("h")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"f": "2", "g": "3"}, all)

	hlen, _ := s.HLen("h")
	assert.Equal(t, int64(2), hlen)

	keys, _ := s.HKeys("h")
	assert.ElementsMatch(t, []string{"f", "g"}, keys)
	vals, _ := s.HVals("h")
	assert.ElementsMatch(t, []string{"2", "3"}, vals)

	exists, _ := s.HExists("h", "g")
	assert.True(t, exists)

	removed, err := s.HDel("h", "f", "missing")
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	removed, _ = s.HDel("h", "g")
	assert.Equal(t, int64(1), removed)
	assert.Equal(t, TypeNone, s.Type("h"), "hash is dropped with its last field")

	all, err = s.HGetAll("h")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestStore_ListPushOrder(t *testing.T) {
	s := NewStore()

	n, err := s.LPush("l", "a", "b")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err := s.LRange("l", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, got)

	n, err = s.RPush("r", "a", "b")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, _ = s.LRange("r", 0, -1)
	assert.Equal(t, []string{"a", "b"}, got)

	n, _ = s.LPush("r", "z")
	assert.Equal(t, int64(3), n)
	got, _ = s.LRange("r", 0, -1)
	assert.Equal(t, []string{"z", "a", "b"}, got)
}

func TestStore_LRange(t *testing.T) {
	s := NewStore()
	_, _ = s.RPush("l", "a", "b", "c")

	tests := []struct {
		name        string
		start, stop int64
		want        []string
	}{
		{"whole list", 0, -1, []string{"a", "b", "c"}},
		{"clamped both sides", -100, 100, []string{"a", "b", "c"}},
		{"middle", 1, 1, []string{"b"}},
		{"negative window", -2, -1, []string{"b", "c"}},
		{"start past end", 5, 10, []string{}},
		{"start after stop", 2, 1, []string{}},
		{"stop before head", 0, -10, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.LRange("l", tt.start, tt.stop)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	got, err := s.LRange("missing", 0, -1)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_ListPop(t *testing.T) {
	s := NewStore()

	_, ok, err := s.LPop("l")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _ = s.RPush("l", "a", "b", "c")

	val, ok, _ := s.LPop("l")
	assert.True(t, ok)
	assert.Equal(t, "a", val)

	val, ok, _ = s.RPop("l")
	assert.True(t, ok)
	assert.Equal(t, "c", val)

	val, _, _ = s.RPop("l")
	assert.Equal(t, "b", val)

	assert.Equal(t, TypeNone, s.Type("l"), "list is dropped once emptied")
	_, ok, _ = s.RPop("l")
	assert.False(t, ok)
}

func TestStore_Set(t *testing.T) {
	s := NewStore()

	n, err := s.SAdd("z", "a", "a", "b")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n, "duplicates within one call count once")

	n, _ = s.SAdd("z", "a")
	assert.Equal(t, int64(0), n)

	members, err := s.SMembers("z")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, members)

	ok, _ := s.SIsMember("z", "b")
	assert.True(t, ok)

	removed, err := s.SRem("z", "a", "x")
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	removed, _ = s.SRem("z", "b")
	assert.Equal(t, int64(1), removed)
	assert.Equal(t, TypeNone, s.Type("z"))

	members, err = s.SMembers("z")
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestStore_WrongType(t *testing.T) {
	s := NewStore()
	s.Set("str", "v", SetOptions{})
	_, _ = s.RPush("list", "a")

	_, err := s.LPush("str", "a")
	assert.ErrorIs(t, err, ErrWrongType)

	_, err = s.SAdd("str", "a")
	assert.ErrorIs(t, err, ErrWrongType)

	_, err = s.HSet("list", map[string]string{"f": "v"})
	assert.ErrorIs(t, err, ErrWrongType)

	_, _, err = s.Get("list")
	assert.ErrorIs(t, err, ErrWrongType)

	// the rejected writes did not create shadow entries
	assert.Equal(t, TypeString, s.Type("str"))
	assert.Equal(t, 2, s.Len())

	// SET replaces a value of any type
	s.Set("list", "now a string", SetOptions{})
	assert.Equal(t, TypeString, s.Type("list"))
	n, err := s.LLen("list")
	assert.ErrorIs(t, err, ErrWrongType)
	assert.Equal(t, int64(0), n)
}

func TestStore_ExportImport(t *testing.T) {
	s := NewStore()
	s.Set("s", "v", SetOptions{TTL: time.Hour})
	_, _ = s.HSet("h", map[string]string{"a": "1", "b": "2"})
	_, _ = s.RPush("l", "x", "y", "x")
	_, _ = s.SAdd("z", "m2", "m1")

	dump := s.Export()
	assert.Equal(t, 4, dump.KeyCount())
	assert.Equal(t, []string{"m1", "m2"}, dump.Sets["z"])

	// export is a deep copy
	_, _ = s.RPush("l", "later")
	assert.Len(t, dump.Lists["l"], 3)

	fresh := NewStore()
	fresh.Set("stale", "x", SetOptions{})
	fresh.Import(dump)

	assert.Equal(t, dump, fresh.Export())
	assert.Equal(t, int64(0), fresh.Exists("stale"))

	_, status := fresh.Expiry("s")
	assert.Equal(t, ExpNoTimeout, status, "deadlines are not restored")
}

func TestStore_ImportSkipsEmptyAndDuplicates(t *testing.T) {
	s := NewStore()
	s.Import(Dump{
		Strings: map[string]string{"k": "v"},
		Lists:   map[string][]string{"k": {"a"}, "empty": {}},
		Sets:    map[string][]string{"z": {"a", "a"}},
	})

	assert.Equal(t, TypeString, s.Type("k"))
	assert.Equal(t, TypeNone, s.Type("empty"))
	card, _ := s.SCard("z")
	assert.Equal(t, int64(1), card)
}

func TestStore_Flush(t *testing.T) {
	s := NewStore()
	s.Set("a", "1", SetOptions{TTL: time.Minute})
	_, _ = s.SAdd("b", "1")

	s.Flush()

	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Export().Strings)
}

func TestStore_Concurrency(t *testing.T) {
	s := NewStore()
	const workers = 50
	const opsPerWorker = 2000

	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func(workerID int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

			for j := 0; j < opsPerWorker; j++ {
				key := fmt.Sprintf("key-%d", r.Intn(50))
				val := fmt.Sprintf("val-%d", r.Intn(20))

				// pushes and pops are balanced and members come from a small pool,
				// so containers stay small however long the test runs
				switch r.Intn(9) {
				case 0:
					s.Set(key, val, SetOptions{})
				case 1:
					_, _, _ = s.Get(key)
				case 2:
					s.Delete(key)
				case 3:
					_, _ = s.SAdd("set-"+key, val)
				case 4:
					_, _ = s.SRem("set-"+key, val)
				case 5:
					_, _ = s.RPush("list-"+key, val)
				case 6:
					_, _, _ = s.LPop("list-" + key)
				case 7:
					s.Expire(key, time.Millisecond)
					_ = s.Len()
				case 8:
					if r.Intn(100) == 0 {
						_ = s.Export()
					} else {
						_, _ = s.LRange("list-"+key, 0, -1)
					}
				}
			}
		}(i)
	}

	wg.Wait()

	for key, list := range s.Export().Lists {
		assert.NotEmpty(t, list, key)
	}
}

func FuzzStore(f *testing.F) {
	s := NewStore()

	f.Add("key1", "val1")
	f.Add("special", "!@#$%^&*()")

	f.Fuzz(func(t *testing.T, key string, val string) {
		s.Set(key, val, SetOptions{})

		v, ok, err := s.Get(key)
		if err != nil || !ok || v != val {
			t.Errorf("Get failed after Set: key=%q, val=%q", key, val)
		}
	})
}

func FuzzLRangeMatchesSlice(f *testing.F) {
	f.Add(int64(0), int64(-1))
	f.Add(int64(-100), int64(100))
	f.Add(int64(3), int64(1))

	items := []string{"a", "b", "c", "d", "e"}

	f.Fuzz(func(t *testing.T, start, stop int64) {
		s := NewStore()
		_, _ = s.RPush("l", items...)

		got, err := s.LRange("l", start, stop)
		if err != nil {
			t.Fatal(err)
		}

		// every returned element must be a contiguous, ordered window of the list
		if len(got) > len(items) {
			t.Fatalf("got %d elements from a list of %d", len(got), len(items))
		}
		if len(got) > 0 {
			first := sort.SearchStrings(items, got[0])
			for i, v := range got {
				if items[first+i] != v {
					t.Fatalf("window broken at %d: %v", i, got)
				}
			}
		}
	})
}
