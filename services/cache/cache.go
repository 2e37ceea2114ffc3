package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	"github.com/webtor-io/lazymap"
	bolt "go.etcd.io/bbolt"

	"github.com/vodkit/vodkit/services/common"
	"github.com/vodkit/vodkit/services/userdata"
)

// KeyPassword holds the transient login credential. It is keyed
// independently of memoized call results and must expire fast.
const (
	KeyPassword = "password"

	PasswordTTL = 60 * time.Second
)

// hotTTL bounds the in-process read-through layer. Disk entries carry the
// authoritative expiry; the hot layer only dedupes reads within one run.
const hotTTL = time.Minute

var bucketCache = []byte("cache")

type entry struct {
	Expires int64           `json:"expires"`
	Value   json.RawMessage `json:"value"`
}

// Cache memoizes expensive remote calls for a configured duration. Entries
// live in their own bucket of the userdata db; a read past expiry is
// equivalent to absence. When disabled it bypasses reads and writes without
// changing call signatures.
type Cache struct {
	db      *bolt.DB
	enabled bool
	hot     *lazymap.LazyMap[[]byte]
}

func New(c *cli.Context, data *userdata.Store) (*Cache, error) {
	return NewWith(data.DB(), c.BoolT(common.UseCacheFlag))
}

func NewWith(db *bolt.DB, enabled bool) (*Cache, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCache)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "create cache bucket")
	}
	return &Cache{
		db:      db,
		enabled: enabled,
		hot: lazymap.New[[]byte](&lazymap.Config{
			Expire:      hotTTL,
			ErrorExpire: 5 * time.Second,
		}),
	}, nil
}

func (c *Cache) Enabled() bool {
	return c.enabled
}

// Key derives a cache key from a function identity and its call arguments
func Key(fn string, args ...any) string {
	if len(args) == 0 {
		return fn
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return fn
	}
	sum := sha1.Sum(raw)
	return fn + ":" + hex.EncodeToString(sum[:6])
}

// GetJSON reads a live entry into v and reports whether one was found.
// Expired entries are dropped on read.
func (c *Cache) GetJSON(key string, v any) bool {
	if !c.enabled {
		return false
	}
	raw, ok := c.read(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		log.WithError(err).WithField("key", key).Warn("dropping undecodable cache entry")
		_ = c.Delete(key)
		return false
	}
	return true
}

func (c *Cache) read(key string) (json.RawMessage, bool) {
	var raw []byte
	_ = c.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketCache).Get([]byte(key)); v != nil {
			raw = append(raw, v...)
		}
		return nil
	})
	if raw == nil {
		return nil, false
	}
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		_ = c.Delete(key)
		return nil, false
	}
	if time.Now().Unix() >= e.Expires {
		_ = c.Delete(key)
		return nil, false
	}
	return e.Value, true
}

// SetJSON stores v under key for ttl. A no-op while caching is disabled.
func (c *Cache) SetJSON(key string, v any, ttl time.Duration) error {
	if !c.enabled {
		return nil
	}
	value, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encode cache entry %s", key)
	}
	raw, err := json.Marshal(entry{
		Expires: time.Now().Add(ttl).Unix(),
		Value:   value,
	})
	if err != nil {
		return errors.Wrapf(err, "encode cache envelope %s", key)
	}
	err = c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCache).Put([]byte(key), raw)
	})
	return errors.Wrapf(err, "store cache entry %s", key)
}

func (c *Cache) Delete(key string) error {
	err := c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCache).Delete([]byte(key))
	})
	return errors.Wrapf(err, "delete cache entry %s", key)
}

// Clear drops every cache entry
func (c *Cache) Clear() error {
	err := c.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketCache); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketCache)
		return err
	})
	return errors.Wrap(err, "clear cache")
}

// Memoize returns the cached result for key, computing and storing it via
// fn on a miss. Concurrent callers of the same key within one process share
// a single computation. With caching disabled fn always runs.
func Memoize[T any](c *Cache, key string, ttl time.Duration, fn func() (T, error)) (T, error) {
	var zero T
	if !c.enabled {
		return fn()
	}
	compute := func() ([]byte, error) {
		if raw, ok := c.read(key); ok {
			return raw, nil
		}
		v, err := fn()
		if err != nil {
			return nil, err
		}
		if err := c.SetJSON(key, v, ttl); err != nil {
			log.WithError(err).WithField("key", key).Warn("failed to store cache entry")
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, errors.Wrapf(err, "encode result %s", key)
		}
		return raw, nil
	}

	var (
		raw []byte
		err error
	)
	if ttl < hotTTL {
		// Short-lived entries skip the hot layer so its fixed window can
		// never outlive the entry.
		raw, err = compute()
	} else {
		raw, err = c.hot.Get(key, compute)
	}
	if err != nil {
		return zero, err
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, errors.Wrapf(err, "decode cached result %s", key)
	}
	return out, nil
}
