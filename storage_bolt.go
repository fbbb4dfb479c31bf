package lfas

import (
	"bytes"

	bolt "go.etcd.io/bbolt"
)

// boltBucket is the single top-level bucket all keys live in. The
// "idx/"/"meta/" prefixes described in the on-disk layout map onto plain
// keys within this one bucket rather than separate buckets, so that a
// single ScanPrefix implementation covers both key spaces uniformly.
var boltBucket = []byte("lfas")

// BoltStorage is the persistent Storage backend: a memory-mapped,
// copy-on-write B+-tree with single-writer/many-reader, fully ACID
// batches, implemented on top of go.etcd.io/bbolt — the idiomatic
// pure-Go embedded store built on the same design LMDB popularized.
type BoltStorage struct {
	db *bolt.DB
}

// OpenBoltStorage opens (creating if necessary) a bbolt database at
// path. mapSize is advisory: bbolt grows its mmap region on demand, so
// it is used only as an initial size hint via bolt.Options.InitialMmapSize.
func OpenBoltStorage(path string, mapSize int64) (*BoltStorage, error) {
	opts := &bolt.Options{
		InitialMmapSize: int(mapSize),
	}
	db, err := bolt.Open(path, 0600, opts)
	if err != nil {
		return nil, NewStorageError("open", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, NewStorageError("create bucket", err)
	}

	return &BoltStorage{db: db}, nil
}

func (s *BoltStorage) Get(key []byte) ([]byte, bool, error) {
	var value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(boltBucket).Get(key)
		if v != nil {
			value = make([]byte, len(v))
			copy(value, v)
		}
		return nil
	})
	if err != nil {
		return nil, false, NewStorageError("get", err)
	}
	return value, value != nil, nil
}

func (s *BoltStorage) PutBatch(entries []KV) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(boltBucket)
		for _, e := range entries {
			if err := b.Put(e.Key, e.Value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return NewStorageError("put_batch", err)
	}
	return nil
}

func (s *BoltStorage) ScanPrefix(prefix []byte, fn func(key, value []byte) error) error {
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(boltBucket).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			if err := fn(k, v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return NewStorageError("scan_prefix", err)
	}
	return nil
}

func (s *BoltStorage) BeginRead() (ReadTxn, error) {
	tx, err := s.db.Begin(false)
	if err != nil {
		return nil, NewStorageError("begin_read", err)
	}
	return &boltReadTxn{tx: tx}, nil
}

func (s *BoltStorage) Sync() error {
	if err := s.db.Sync(); err != nil {
		return NewStorageError("sync", err)
	}
	return nil
}

func (s *BoltStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return NewStorageError("close", err)
	}
	return nil
}

type boltReadTxn struct {
	tx *bolt.Tx
}

func (t *boltReadTxn) Get(key []byte) ([]byte, bool, error) {
	v := t.tx.Bucket(boltBucket).Get(key)
	if v == nil {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (t *boltReadTxn) ScanPrefix(prefix []byte, fn func(key, value []byte) error) error {
	c := t.tx.Bucket(boltBucket).Cursor()
	for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		if err := fn(k, v); err != nil {
			return err
		}
	}
	return nil
}

func (t *boltReadTxn) Discard() {
	_ = t.tx.Rollback()
}
