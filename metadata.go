package lfas

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// metadataMagic identifies a metadata.bin snapshot produced by this
// engine.
var metadataMagic = [5]byte{'L', 'F', 'A', 'S', 0x01}

const metadataVersion uint32 = 1

// fieldMetadata holds the length statistics for one field.
type fieldMetadata struct {
	docCount      uint32
	totalLength   uint64
	perDocLength  []uint32 // dense, indexed by doc_id; 0 if field absent
}

// MetadataStore tracks, per field, document count, total token length,
// average length, and a dense per-document length vector — the
// statistics BM25F's length normalization needs.
type MetadataStore struct {
	mu         sync.RWMutex
	fields     map[FieldTag]*fieldMetadata
	nextDocID  DocID
}

// NewMetadataStore returns an empty metadata store.
func NewMetadataStore() *MetadataStore {
	m := &MetadataStore{fields: make(map[FieldTag]*fieldMetadata)}
	for _, tag := range AllFieldTags() {
		m.fields[tag] = &fieldMetadata{}
	}
	return m
}

// ReserveDocID allocates and returns the next document id, growing each
// field's per-doc-length vector to cover it.
func (m *MetadataStore) ReserveDocID() DocID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextDocID
	m.nextDocID++
	for _, fm := range m.fields {
		fm.perDocLength = append(fm.perDocLength, 0)
	}
	return id
}

// RecordFieldLength sets the length of field for docID and updates the
// running doc_count/total_length for that field.
func (m *MetadataStore) RecordFieldLength(docID DocID, field FieldTag, length int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fm := m.fields[field]
	if int(docID) >= len(fm.perDocLength) {
		return
	}
	if length > 0 && fm.perDocLength[docID] == 0 {
		fm.docCount++
	}
	fm.totalLength += uint64(length)
	fm.perDocLength[docID] = uint32(length)
}

// DocCount returns the number of documents that contributed at least
// one token to field.
func (m *MetadataStore) DocCount(field FieldTag) uint32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fields[field].docCount
}

// AvgLength returns the average per-document length of field, or 0 if
// no document has ever contributed to it.
func (m *MetadataStore) AvgLength(field FieldTag) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fm := m.fields[field]
	if fm.docCount == 0 {
		return 0
	}
	return float64(fm.totalLength) / float64(fm.docCount)
}

// FieldLength returns the length of field for docID.
func (m *MetadataStore) FieldLength(field FieldTag, docID DocID) uint32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fm := m.fields[field]
	if int(docID) >= len(fm.perDocLength) {
		return 0
	}
	return fm.perDocLength[docID]
}

// NextDocID returns the id that would be assigned to the next document
// added, without reserving it.
func (m *MetadataStore) NextDocID() DocID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nextDocID
}

// MirrorEntries builds the meta/-prefixed KV mirror of every field's
// length statistics, for the caller to write in the same batch as a
// Flush. This is what lets Search's single read transaction cover
// metadata reads alongside posting lookups, instead of racing against
// the live, mutex-guarded store.
func (m *MetadataStore) MirrorEntries() []KV {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]KV, 0, len(m.fields))
	for _, tag := range AllFieldTags() {
		fm := m.fields[tag]

		var stats bytes.Buffer
		writeU32(&stats, fm.docCount)
		writeU64(&stats, fm.totalLength)
		entries = append(entries, KV{Key: metaStatsKey(tag), Value: stats.Bytes()})

		for docID, length := range fm.perDocLength {
			if length == 0 {
				continue
			}
			var buf [4]byte
			binary.LittleEndian.PutUint32(buf[:], length)
			entries = append(entries, KV{Key: metaLengthKey(tag, DocID(docID)), Value: buf[:]})
		}
	}
	return entries
}

// readFieldStats reads a field's doc_count/total_length mirror out of
// txn's snapshot, returning zeros if the field has never been flushed.
func readFieldStats(txn ReadTxn, field FieldTag) (docCount uint32, totalLength uint64, err error) {
	data, found, err := txn.Get(metaStatsKey(field))
	if err != nil {
		return 0, 0, NewStorageError("read field stats", err)
	}
	if !found {
		return 0, 0, nil
	}
	r := bytes.NewReader(data)
	docCount, err = readU32(r)
	if err != nil {
		return 0, 0, &CorruptionError{Message: "meta stats truncated reading doc_count", Wrapped: err}
	}
	totalLength, err = readU64(r)
	if err != nil {
		return 0, 0, &CorruptionError{Message: "meta stats truncated reading total_length", Wrapped: err}
	}
	return docCount, totalLength, nil
}

// readFieldLength reads one document's length mirror for field out of
// txn's snapshot, returning 0 if absent (field never flushed for that
// document).
func readFieldLength(txn ReadTxn, field FieldTag, docID DocID) (uint32, error) {
	data, found, err := txn.Get(metaLengthKey(field, docID))
	if err != nil {
		return 0, NewStorageError("read field length", err)
	}
	if !found {
		return 0, nil
	}
	if len(data) != 4 {
		return 0, &CorruptionError{Message: "meta length mirror has unexpected size"}
	}
	return binary.LittleEndian.Uint32(data), nil
}

// WriteFile atomically persists the metadata snapshot to path (via a
// temp file + rename, so a crash mid-write never leaves a partial
// metadata.bin in place).
func (m *MetadataStore) WriteFile(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var buf bytes.Buffer
	buf.Write(metadataMagic[:])
	writeU32(&buf, metadataVersion)

	for _, tag := range AllFieldTags() {
		fm := m.fields[tag]
		buf.WriteByte(byte(tag))
		writeU32(&buf, fm.docCount)
		writeU64(&buf, fm.totalLength)
		writeU32(&buf, uint32(len(fm.perDocLength)))
		for _, l := range fm.perDocLength {
			writeU32(&buf, l)
		}
	}
	writeU32(&buf, uint32(m.nextDocID))

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0600); err != nil {
		return NewStorageError("write metadata", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return NewStorageError("rename metadata", err)
	}
	return nil
}

// LoadMetadataStore reads a metadata.bin snapshot written by WriteFile.
// A missing file is not an error: it returns a fresh, empty store, the
// state of a newly created index.
func LoadMetadataStore(path string) (*MetadataStore, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewMetadataStore(), nil
	}
	if err != nil {
		return nil, NewStorageError("read metadata", err)
	}

	r := bytes.NewReader(data)

	var magic [5]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil || magic != metadataMagic {
		return nil, &CorruptionError{Message: fmt.Sprintf("metadata.bin magic mismatch: got %v", magic)}
	}

	version, err := readU32(r)
	if err != nil {
		return nil, &CorruptionError{Message: "metadata.bin truncated reading version", Wrapped: err}
	}
	if version != metadataVersion {
		return nil, &CorruptionError{Message: fmt.Sprintf("unsupported metadata.bin version %d", version)}
	}

	m := NewMetadataStore()
	for i := 0; i < len(AllFieldTags()); i++ {
		tagByte, err := r.ReadByte()
		if err != nil {
			return nil, &CorruptionError{Message: "metadata.bin truncated reading field tag", Wrapped: err}
		}
		tag := FieldTag(tagByte)
		if !tag.Valid() {
			return nil, &CorruptionError{Message: fmt.Sprintf("metadata.bin has unknown field tag %d", tagByte)}
		}

		docCount, err := readU32(r)
		if err != nil {
			return nil, &CorruptionError{Message: "metadata.bin truncated reading doc_count", Wrapped: err}
		}
		totalLength, err := readU64(r)
		if err != nil {
			return nil, &CorruptionError{Message: "metadata.bin truncated reading total_length", Wrapped: err}
		}
		n, err := readU32(r)
		if err != nil {
			return nil, &CorruptionError{Message: "metadata.bin truncated reading per_doc_length count", Wrapped: err}
		}
		perDoc := make([]uint32, n)
		for j := range perDoc {
			v, err := readU32(r)
			if err != nil {
				return nil, &CorruptionError{Message: "metadata.bin truncated reading per_doc_length vector", Wrapped: err}
			}
			perDoc[j] = v
		}

		m.fields[tag] = &fieldMetadata{docCount: docCount, totalLength: totalLength, perDocLength: perDoc}
	}

	nextDocID, err := readU32(r)
	if err != nil {
		return nil, &CorruptionError{Message: "metadata.bin truncated reading next_doc_id", Wrapped: err}
	}
	m.nextDocID = DocID(nextDocID)

	return m, nil
}

// metadataFilePath is the conventional filename for a metadata snapshot
// within an engine's storage directory.
func metadataFilePath(storageDir string) string {
	return filepath.Join(storageDir, "metadata.bin")
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	buf.Write(tmp[:])
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	buf.Write(tmp[:])
}

func readU32(r *bytes.Reader) (uint32, error) {
	var tmp [4]byte
	if _, err := io.ReadFull(r, tmp[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(tmp[:]), nil
}

func readU64(r *bytes.Reader) (uint64, error) {
	var tmp [8]byte
	if _, err := io.ReadFull(r, tmp[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(tmp[:]), nil
}
