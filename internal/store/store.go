package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	bolt "go.etcd.io/bbolt"

	"github.com/mmcdole/importwatch/internal/domain"
)

// Bucket names
var (
	bucketCollections = []byte("collections")
	bucketDocuments   = []byte("documents")

	allBuckets = [][]byte{bucketCollections, bucketDocuments}
)

// entry wraps a cached value with the time it was written
type entry[T any] struct {
	Value   T         `json:"value"`
	SavedAt time.Time `json:"savedAt"`
}

// CacheStore implements domain.Store using BoltDB with an in-memory
// promotion cache. Without a directory it runs memory-only.
type CacheStore struct {
	db     *bolt.DB
	maxAge time.Duration // 0 keeps entries until invalidated
	now    func() time.Time

	mu    sync.RWMutex // Protects memory cache
	cache map[string][]byte
}

// Open opens the cache for one backend project. An empty baseCacheDir
// selects memory-only mode.
func Open(baseCacheDir, endpoint, projectID string, maxAge time.Duration) (*CacheStore, error) {
	s := &CacheStore{maxAge: maxAge, now: time.Now, cache: make(map[string][]byte)}
	if baseCacheDir == "" {
		return s, nil
	}

	dir := filepath.Join(baseCacheDir, hashServer(endpoint, projectID))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := bolt.Open(filepath.Join(dir, "cache.db"), 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	s.db = db
	return s, nil
}

func hashServer(endpoint, projectID string) string {
	normalized := strings.TrimRight(strings.ToLower(endpoint), "/") + "#" + projectID
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:6])
}

func (s *CacheStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func refKey(ref domain.ResourceRef) string {
	return ref.DatabaseID + ":" + ref.CollectionID
}

// === Generic helpers ===

func (s *CacheStore) read(bucket []byte, key string) []byte {
	cacheKey := string(bucket) + ":" + key

	s.mu.RLock()
	if data, ok := s.cache[cacheKey]; ok {
		s.mu.RUnlock()
		return data
	}
	s.mu.RUnlock()

	if s.db == nil {
		return nil
	}

	var data []byte
	_ = s.db.View(func(tx *bolt.Tx) error {
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
		return nil
	}

	// Promote to memory cache
	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()
	return data
}

func get[T any](s *CacheStore, bucket []byte, key string) (T, bool) {
	var e entry[T]
	data := s.read(bucket, key)
	if data == nil || sonic.Unmarshal(data, &e) != nil {
		return e.Value, false
	}
	if s.maxAge > 0 && s.now().Sub(e.SavedAt) > s.maxAge {
		s.delete(bucket, key)
		var zero T
		return zero, false
	}
	return e.Value, true
}

func set[T any](s *CacheStore, bucket []byte, key string, value T) error {
	data, err := sonic.Marshal(entry[T]{Value: value, SavedAt: s.now()})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.cache[string(bucket)+":"+key] = data
	s.mu.Unlock()

	if s.db == nil {
		return nil // Memory-only mode
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), data)
	})
}

func (s *CacheStore) delete(bucket []byte, key string) {
	s.mu.Lock()
	delete(s.cache, string(bucket)+":"+key)
	s.mu.Unlock()

	if s.db == nil {
		return
	}

	_ = s.db.Update(func(tx *bolt.Tx) error {
		if b := tx.Bucket(bucket); b != nil {
			return b.Delete([]byte(key))
		}
		return nil
	})
}

// clear empties the given buckets
func (s *CacheStore) clear(buckets ...[]byte) {
	s.mu.Lock()
	for k := range s.cache {
		for _, bucket := range buckets {
			if strings.HasPrefix(k, string(bucket)+":") {
				delete(s.cache, k)
			}
		}
	}
	s.mu.Unlock()

	if s.db == nil {
		return
	}

	_ = s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range buckets {
			b := tx.Bucket(bucket)
			if b == nil {
				continue
			}
			c := b.Cursor()
			for k, _ := c.First(); k != nil; k, _ = c.Next() {
				if err := b.Delete(k); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// === Collections ===

func (s *CacheStore) GetCollectionName(ref domain.ResourceRef) (string, bool) {
	return get[string](s, bucketCollections, refKey(ref))
}

func (s *CacheStore) SaveCollectionName(ref domain.ResourceRef, name string) error {
	return set(s, bucketCollections, refKey(ref), name)
}

// === Documents ===

func (s *CacheStore) GetDocumentCount(ref domain.ResourceRef) (int, bool) {
	return get[int](s, bucketDocuments, refKey(ref))
}

func (s *CacheStore) SaveDocumentCount(ref domain.ResourceRef, count int) error {
	return set(s, bucketDocuments, refKey(ref), count)
}

// === Invalidation ===

// InvalidateCollection drops everything cached for one collection
func (s *CacheStore) InvalidateCollection(ref domain.ResourceRef) {
	s.delete(bucketCollections, refKey(ref))
	s.delete(bucketDocuments, refKey(ref))
}

// InvalidateDocuments drops every cached document view
func (s *CacheStore) InvalidateDocuments() {
	s.clear(bucketDocuments)
}

func (s *CacheStore) InvalidateAll() {
	s.clear(allBuckets...)
}
