package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mmcdole/estate/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketBlobs    = []byte("blobs")
	bucketListings = []byte("listings")
)

// blobRecord is the on-disk form of a payload
type blobRecord struct {
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

// SessionStore implements domain.Store using BoltDB.
// The database is truncated on open and deleted on close.
type SessionStore struct {
	db     *bolt.DB
	dbPath string
	mu     sync.RWMutex // Protects memory cache

	// In-memory cache for hot-path reads (promoted on access).
	// Blobs only live here in memory-only mode.
	cache map[string][]byte
}

// NewSessionStore opens a session store under baseDir.
// An empty baseDir selects memory-only mode.
func NewSessionStore(baseDir string) (*SessionStore, error) {
	if baseDir == "" {
		return &SessionStore{cache: make(map[string][]byte)}, nil
	}

	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(baseDir, "session.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	s := &SessionStore{db: db, dbPath: dbPath, cache: make(map[string][]byte)}

	// Start every session empty: a crashed session may have left data behind
	if err := db.Update(resetBuckets); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database and removes its file
func (s *SessionStore) Close() error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return err
	}
	if err := os.Remove(s.dbPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session db: %w", err)
	}
	return nil
}

// === Generic helpers ===

func (s *SessionStore) promotes(bucket []byte) bool {
	return s.db == nil || !bytes.Equal(bucket, bucketBlobs)
}

func (s *SessionStore) get(bucket []byte, key string, dest interface{}) bool {
	cacheKey := string(bucket) + ":" + key

	// Check memory cache first
	s.mu.RLock()
	if data, ok := s.cache[cacheKey]; ok {
		s.mu.RUnlock()
		return json.Unmarshal(data, dest) == nil
	}
	s.mu.RUnlock()

	if s.db == nil {
		return false
	}

	var data []byte
	s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})

	if data == nil {
		return false
	}

	if s.promotes(bucket) {
		s.mu.Lock()
		s.cache[cacheKey] = data
		s.mu.Unlock()
	}

	return json.Unmarshal(data, dest) == nil
}

func (s *SessionStore) set(bucket []byte, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	if s.promotes(bucket) {
		s.mu.Lock()
		s.cache[string(bucket)+":"+key] = data
		s.mu.Unlock()
	}

	if s.db == nil {
		return nil // Memory-only mode
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), data)
	})
}

func (s *SessionStore) delete(bucket []byte, key string) {
	s.mu.Lock()
	delete(s.cache, string(bucket)+":"+key)
	s.mu.Unlock()

	if s.db == nil {
		return
	}

	s.db.Update(func(tx *bolt.Tx) error {
		if b := tx.Bucket(bucket); b != nil {
			b.Delete([]byte(key))
		}
		return nil
	})
}

// === Blobs ===

func (s *SessionStore) GetBlob(key string) (domain.Payload, bool) {
	var rec blobRecord
	if !s.get(bucketBlobs, key, &rec) {
		return domain.Payload{}, false
	}
	return domain.Payload{ContentType: rec.ContentType, Data: rec.Data}, true
}

func (s *SessionStore) SaveBlob(key string, p domain.Payload) error {
	return s.set(bucketBlobs, key, blobRecord{ContentType: p.ContentType, Data: p.Data})
}

func (s *SessionStore) DeleteBlob(key string) {
	s.delete(bucketBlobs, key)
}

// === Listings ===

func (s *SessionStore) GetListings() ([]domain.Listing, bool) {
	var listings []domain.Listing
	ok := s.get(bucketListings, "list", &listings)
	return listings, ok
}

func (s *SessionStore) SaveListings(listings []domain.Listing) error {
	return s.set(bucketListings, "list", listings)
}

// === Invalidation ===

func (s *SessionStore) InvalidateListings() {
	s.delete(bucketListings, "list")
}

// resetBuckets drops and recreates every bucket
func resetBuckets(tx *bolt.Tx) error {
	for _, bucket := range [][]byte{bucketBlobs, bucketListings} {
		if tx.Bucket(bucket) != nil {
			if err := tx.DeleteBucket(bucket); err != nil {
				return err
			}
		}
		if _, err := tx.CreateBucket(bucket); err != nil {
			return err
		}
	}
	return nil
}
