package lfas

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMetadataStoreRecordFieldLength(t *testing.T) {
	m := NewMetadataStore()

	d0 := m.ReserveDocID()
	m.RecordFieldLength(d0, FieldStreet, 5)

	d1 := m.ReserveDocID()
	m.RecordFieldLength(d1, FieldStreet, 3)

	if m.DocCount(FieldStreet) != 2 {
		t.Fatalf("expected doc_count 2, got %d", m.DocCount(FieldStreet))
	}
	if got := m.AvgLength(FieldStreet); got != 4 {
		t.Fatalf("expected avg_length 4, got %v", got)
	}
	if m.FieldLength(FieldStreet, d0) != 5 {
		t.Fatalf("expected field length 5 for doc0, got %d", m.FieldLength(FieldStreet, d0))
	}
}

func TestMetadataStoreAvgLengthZeroWhenNoDocs(t *testing.T) {
	m := NewMetadataStore()
	if got := m.AvgLength(FieldCity); got != 0 {
		t.Fatalf("expected 0 avg length for empty field, got %v", got)
	}
}

func TestMetadataStoreWriteFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metadata.bin")

	m := NewMetadataStore()
	d0 := m.ReserveDocID()
	m.RecordFieldLength(d0, FieldStreet, 5)
	d1 := m.ReserveDocID()
	m.RecordFieldLength(d1, FieldStreet, 3)
	m.RecordFieldLength(d1, FieldCity, 2)

	if err := m.WriteFile(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded, err := LoadMetadataStore(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if loaded.DocCount(FieldStreet) != 2 {
		t.Fatalf("expected doc_count 2 after reload, got %d", loaded.DocCount(FieldStreet))
	}
	if loaded.NextDocID() != m.NextDocID() {
		t.Fatalf("expected next_doc_id %d, got %d", m.NextDocID(), loaded.NextDocID())
	}
	if loaded.FieldLength(FieldCity, d1) != 2 {
		t.Fatalf("expected field length 2 for city/doc1, got %d", loaded.FieldLength(FieldCity, d1))
	}
}

func TestLoadMetadataStoreMissingFileReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	m, err := LoadMetadataStore(filepath.Join(dir, "missing.bin"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.NextDocID() != 0 {
		t.Fatalf("expected fresh store, got next_doc_id %d", m.NextDocID())
	}
}

func TestMetadataStoreMirrorEntriesRoundTripThroughTxn(t *testing.T) {
	m := NewMetadataStore()
	d0 := m.ReserveDocID()
	m.RecordFieldLength(d0, FieldStreet, 5)
	d1 := m.ReserveDocID()
	m.RecordFieldLength(d1, FieldStreet, 3)

	storage := NewMemoryStorage()
	if err := storage.PutBatch(m.MirrorEntries()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	txn, err := storage.BeginRead()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer txn.Discard()

	docCount, totalLength, err := readFieldStats(txn, FieldStreet)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if docCount != 2 || totalLength != 8 {
		t.Fatalf("expected doc_count=2 total_length=8, got %d/%d", docCount, totalLength)
	}

	length, err := readFieldLength(txn, FieldStreet, d0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if length != 5 {
		t.Fatalf("expected field length 5 for doc0, got %d", length)
	}

	missing, err := readFieldLength(txn, FieldCity, d0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if missing != 0 {
		t.Fatalf("expected 0 length for a field never recorded, got %d", missing)
	}
}

func TestLoadMetadataStoreRejectsBadMagic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metadata.bin")
	if err := os.WriteFile(path, []byte("not-a-real-metadata-file"), 0600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := LoadMetadataStore(path); err == nil {
		t.Fatal("expected corruption error for bad magic")
	}
}
