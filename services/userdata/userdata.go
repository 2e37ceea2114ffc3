package userdata

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli"
	bolt "go.etcd.io/bbolt"

	"github.com/vodkit/vodkit/services/common"
)

// Well-known keys of the persisted identity record
const (
	KeyAccessToken = "access_token"
	KeyDeviceID    = "device_id"
	KeyUserID      = "user_id"
	KeyUsername    = "username"
	KeyProfileID   = "profile_id"
	KeyHidden      = "hidden"
)

var bucketUserdata = []byte("userdata")

// Store is a durable key-value store for tokens, device ids and per-user
// lists. Values are opaque strings or string lists; keys are namespaced by
// service name so the two clients never collide.
type Store struct {
	db *bolt.DB
}

func New(c *cli.Context) (*Store, error) {
	return NewAt(c.String(common.DataDirFlag))
}

func NewAt(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "create data dir")
	}
	db, err := bolt.Open(filepath.Join(dir, "vodkit.db"), 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "open userdata db")
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketUserdata)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create userdata bucket")
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle so other services can keep their own
// buckets in the same file.
func (s *Store) DB() *bolt.DB {
	return s.db
}

func storeKey(service, key string) []byte {
	return []byte(service + ":" + key)
}

// Get returns the stored value or def when the key is absent
func (s *Store) Get(service, key, def string) string {
	var out []byte
	_ = s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketUserdata).Get(storeKey(service, key)); v != nil {
			out = append(out, v...)
		}
		return nil
	})
	if out == nil {
		return def
	}
	return string(out)
}

func (s *Store) Set(service, key, value string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketUserdata).Put(storeKey(service, key), []byte(value))
	})
	return errors.Wrapf(err, "set %s", key)
}

func (s *Store) Delete(service, key string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketUserdata).Delete(storeKey(service, key))
	})
	return errors.Wrapf(err, "delete %s", key)
}

// GetList returns the stored string list, or nil when absent or unreadable
func (s *Store) GetList(service, key string) []string {
	raw := s.Get(service, key, "")
	if raw == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

func (s *Store) SetList(service, key string, values []string) error {
	raw, err := json.Marshal(values)
	if err != nil {
		return errors.Wrapf(err, "encode %s", key)
	}
	return s.Set(service, key, string(raw))
}
