package lfas

import (
	"path/filepath"
	"testing"
)

func TestBoltStoragePutGetScan(t *testing.T) {
	dir := t.TempDir()
	storage, err := OpenBoltStorage(filepath.Join(dir, "data.db"), 1024*1024)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer storage.Close()

	if err := storage.PutBatch([]KV{
		{Key: []byte("idx/0/a"), Value: []byte("1")},
		{Key: []byte("idx/0/b"), Value: []byte("2")},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	v, ok, err := storage.Get([]byte("idx/0/a"))
	if err != nil || !ok || string(v) != "1" {
		t.Fatalf("unexpected get result: %v %v %v", v, ok, err)
	}

	var keys []string
	err = storage.ScanPrefix([]byte("idx/0/"), func(key, value []byte) error {
		keys = append(keys, string(key))
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %v", keys)
	}
}

func TestBoltStorageReopenPersists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.db")

	storage, err := OpenBoltStorage(path, 1024*1024)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := storage.PutBatch([]KV{{Key: []byte("k"), Value: []byte("v")}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := storage.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reopened, err := OpenBoltStorage(path, 1024*1024)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer reopened.Close()

	v, ok, err := reopened.Get([]byte("k"))
	if err != nil || !ok || string(v) != "v" {
		t.Fatalf("expected persisted value, got %v %v %v", v, ok, err)
	}
}

func TestBoltStorageBeginReadSnapshot(t *testing.T) {
	dir := t.TempDir()
	storage, err := OpenBoltStorage(filepath.Join(dir, "data.db"), 1024*1024)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer storage.Close()

	_ = storage.PutBatch([]KV{{Key: []byte("k"), Value: []byte("v1")}})

	txn, err := storage.BeginRead()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer txn.Discard()

	_ = storage.PutBatch([]KV{{Key: []byte("k"), Value: []byte("v2")}})

	v, ok, err := txn.Get([]byte("k"))
	if err != nil || !ok || string(v) != "v1" {
		t.Fatalf("expected snapshot value v1, got %v %v %v", v, ok, err)
	}
}
