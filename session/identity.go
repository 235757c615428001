/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package session

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Seednode/trexboard/ranking"
	"go.etcd.io/bbolt"
)

// DefaultNameKey is the key a single local player's name is stored under.
const DefaultNameKey = "trex.playerName"

const namesBucket = "names"

// ErrStorageUnavailable is returned by name stores that cannot persist.
var ErrStorageUnavailable = errors.New("name storage unavailable")

// NameStore persists one player name.
type NameStore interface {
	Load() (string, error)
	Save(name string) error
}

// Identity is the player's name as seen by a session. When the backing store
// fails it keeps working from memory for the rest of the session.
type Identity struct {
	store    NameStore
	name     string
	degraded bool
}

// LoadIdentity reads the stored name. A nil store or a failing read yields an
// empty, memory-only identity.
func LoadIdentity(store NameStore) *Identity {
	id := &Identity{store: store}

	if store == nil {
		id.degraded = true
		return id
	}

	name, err := store.Load()
	if err != nil {
		id.degraded = true
		return id
	}
	id.name = ranking.NormalizeName(name)

	return id
}

// Name returns the current player name, which may be empty.
func (id *Identity) Name() string {
	return id.name
}

// Degraded reports whether the name only lives in memory.
func (id *Identity) Degraded() bool {
	return id.degraded
}

// Set normalizes and records name. Empty names are ignored. The result reports
// whether the name reached durable storage.
func (id *Identity) Set(name string) bool {
	name = ranking.NormalizeName(name)
	if name == "" {
		return false
	}

	id.name = name

	if id.degraded {
		return false
	}
	if err := id.store.Save(name); err != nil {
		id.degraded = true
		return false
	}

	return true
}

// MemoryNames is a NameStore that forgets everything on exit.
type MemoryNames struct {
	mu   sync.Mutex
	name string
}

func (m *MemoryNames) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.name, nil
}

func (m *MemoryNames) Save(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.name = name
	return nil
}

// BoltNames keeps player names in a BoltDB file, one key per player.
type BoltNames struct {
	db *bbolt.DB
}

// OpenBoltNames opens (or creates) the name database at path.
func OpenBoltNames(path string) (*BoltNames, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("names path is required")
	}

	db, err := bbolt.Open(filepath.Clean(path), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open names db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(namesBucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create names bucket: %w", err)
	}

	return &BoltNames{db: db}, nil
}

// Close closes the underlying database.
func (b *BoltNames) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// For returns the NameStore for one key, usually a player id.
func (b *BoltNames) For(key string) NameStore {
	return boltName{db: b.db, key: key}
}

type boltName struct {
	db  *bbolt.DB
	key string
}

func (n boltName) Load() (string, error) {
	if n.db == nil || n.key == "" {
		return "", ErrStorageUnavailable
	}

	var name string
	err := n.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(namesBucket))
		if bucket == nil {
			return ErrStorageUnavailable
		}
		name = string(bucket.Get([]byte(n.key)))
		return nil
	})

	return name, err
}

func (n boltName) Save(name string) error {
	if n.db == nil || n.key == "" {
		return ErrStorageUnavailable
	}

	return n.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(namesBucket))
		if bucket == nil {
			return ErrStorageUnavailable
		}
		return bucket.Put([]byte(n.key), []byte(name))
	})
}
