package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ══════════════════════════════════════════════════════════════════════════════
// KEYS & TTLs
// ══════════════════════════════════════════════════════════════════════════════

const (
	PrefixCourse = "natibo:course:"
	PrefixLock   = "natibo:lock:"
)

const (
	// TTLCourseCache is how long a course snapshot stays cached.
	TTLCourseCache = 10 * time.Minute

	// TTLCourseLock bounds how long a crashed writer can hold a course.
	TTLCourseLock = 30 * time.Second

	// TTLTombstone is how long an invalidated key refuses new writes. It only has
	// to outlive a reader that loaded the value before the invalidation.
	TTLTombstone = 30 * time.Second
)

// CourseKey returns the cache key of a course.
func CourseKey(courseID string) string {
	return PrefixCourse + courseID
}

// LockKey returns the lock key of a resource.
func LockKey(resource string) string {
	return PrefixLock + resource
}

// ══════════════════════════════════════════════════════════════════════════════
// CACHE
// ══════════════════════════════════════════════════════════════════════════════

// formatVersion is bumped whenever the cached snapshot layout changes. Entries
// written with another version read as misses.
const formatVersion = 2

var (
	// ErrCacheMiss is returned when the key is absent or holds an outdated entry.
	ErrCacheMiss = errors.New("cache: key not found")

	// ErrCacheSerialization is returned when a value cannot be encoded or decoded.
	ErrCacheSerialization = errors.New("cache: serialization failed")

	// ErrCacheKeyEmpty is returned when an empty key is provided.
	ErrCacheKeyEmpty = errors.New("cache: key cannot be empty")

	errOutdatedFormat = fmt.Errorf("%w: outdated format", ErrCacheMiss)
)

// entry is the stored form of a cached value. Rev orders writes of the same
// key; Gone marks a tombstone left by Tombstone.
type entry struct {
	Version  int             `json:"v"`
	Rev      int64           `json:"rev,omitempty"`
	Gone     bool            `json:"gone,omitempty"`
	StoredAt time.Time       `json:"at"`
	Data     json.RawMessage `json:"d,omitempty"`
}

// setIfNewerScript writes ARGV[1] unless the key holds a tombstone or an entry of
// the same format with a higher revision.
//
// KEYS[1] key, ARGV[1] payload, ARGV[2] revision, ARGV[3] ttl in ms (0 keeps
// the key), ARGV[4] format version.
var setIfNewerScript = redis.NewScript(`
local cur = redis.call("GET", KEYS[1])
if cur then
	local ok, e = pcall(cjson.decode, cur)
	if ok and type(e) == "table" and tonumber(e["v"]) == tonumber(ARGV[4]) then
		if e["gone"] == true then
			return 0
		end
		local rev = tonumber(e["rev"]) or 0
		if rev > tonumber(ARGV[2]) then
			return 0
		end
	end
end
if tonumber(ARGV[3]) > 0 then
	redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[3])
else
	redis.call("SET", KEYS[1], ARGV[1])
end
return 1
`)

// Cache stores JSON values with a TTL, ordered by a per-key revision.
type Cache struct {
	client  *redis.Client
	version int
}

// NewCache wraps a client.
func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client, version: formatVersion}
}

// Ping checks if Redis is reachable.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// SetIfNewer stores value under revision rev unless the key already holds a
// higher revision or a tombstone. Reports whether the value was written.
func (c *Cache) SetIfNewer(ctx context.Context, key string, value any, rev int64, ttl time.Duration) (bool, error) {
	if key == "" {
		return false, ErrCacheKeyEmpty
	}
	if ttl < 0 {
		ttl = 0
	}

	data, err := encodeEntry(entry{Version: c.version, Rev: rev}, value)
	if err != nil {
		return false, err
	}
	written, err := setIfNewerScript.Run(ctx, c.client, []string{key},
		data, rev, ttl.Milliseconds(), c.version).Int()
	if err != nil {
		return false, err
	}
	return written == 1, nil
}

// Tombstone replaces the key with a marker that reads as a miss and refuses
// SetIfNewer until it expires.
func (c *Cache) Tombstone(ctx context.Context, key string, ttl time.Duration) error {
	if key == "" {
		return ErrCacheKeyEmpty
	}
	if ttl <= 0 {
		ttl = TTLTombstone
	}

	data, err := encodeEntry(entry{Version: c.version, Gone: true}, nil)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}

// Get decodes the value stored at key into dest. Entries written in another
// format are dropped and reported as ErrCacheMiss.
func (c *Cache) Get(ctx context.Context, key string, dest any) error {
	if key == "" {
		return ErrCacheKeyEmpty
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return err
	}

	err = decodeEntry(c.version, raw, dest)
	if errors.Is(err, errOutdatedFormat) {
		_ = c.client.Del(ctx, key).Err()
	}
	return err
}

func encodeEntry(e entry, value any) ([]byte, error) {
	if !e.Gone {
		data, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCacheSerialization, err)
		}
		e.Data = data
	}
	e.StoredAt = time.Now().UTC()
	out, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCacheSerialization, err)
	}
	return out, nil
}

func decodeEntry(version int, raw []byte, dest any) error {
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return fmt.Errorf("%w: %w", ErrCacheSerialization, err)
	}
	if e.Version != version {
		return errOutdatedFormat
	}
	if e.Gone || len(e.Data) == 0 {
		return ErrCacheMiss
	}
	if err := json.Unmarshal(e.Data, dest); err != nil {
		return fmt.Errorf("%w: %w", ErrCacheSerialization, err)
	}
	return nil
}
