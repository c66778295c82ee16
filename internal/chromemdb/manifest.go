package chromemdb

import (
	"encoding/binary"
	"sort"
	"sync"
	"time"

	"go.etcd.io/bbolt"
)

// manifest remembers which record ids each collection holds, in insertion order.
type manifest interface {
	ids(collection string) ([]string, error)
	append(collection string, ids []string) error
	drop(collection string) error
	close() error
}

// boltManifest keeps one bucket per collection mapping id -> sequence number.
type boltManifest struct {
	db *bbolt.DB
}

func newBoltManifest(path string) (*boltManifest, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, err
	}
	return &boltManifest{db: db}, nil
}

func (m *boltManifest) ids(collection string) ([]string, error) {
	type entry struct {
		id  string
		seq uint64
	}
	var entries []entry
	err := m.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			entries = append(entries, entry{id: string(k), seq: binary.BigEndian.Uint64(v)})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.id
	}
	return out, nil
}

func (m *boltManifest) append(collection string, ids []string) error {
	return m.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(collection))
		if err != nil {
			return err
		}
		for _, id := range ids {
			seq, err := b.NextSequence()
			if err != nil {
				return err
			}
			v := make([]byte, 8)
			binary.BigEndian.PutUint64(v, seq)
			if err := b.Put([]byte(id), v); err != nil {
				return err
			}
		}
		return nil
	})
}

func (m *boltManifest) drop(collection string) error {
	return m.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket([]byte(collection)) == nil {
			return nil
		}
		return tx.DeleteBucket([]byte(collection))
	})
}

func (m *boltManifest) close() error {
	return m.db.Close()
}

type memoryManifest struct {
	mu          sync.RWMutex
	collections map[string][]string
}

func newMemoryManifest() *memoryManifest {
	return &memoryManifest{collections: make(map[string][]string)}
}

func (m *memoryManifest) ids(collection string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.collections[collection]...), nil
}

func (m *memoryManifest) append(collection string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[collection] = append(m.collections[collection], ids...)
	return nil
}

func (m *memoryManifest) drop(collection string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.collections, collection)
	return nil
}

func (m *memoryManifest) close() error { return nil }
