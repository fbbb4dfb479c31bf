package lfas

import (
	"sort"
)

// pendingKey identifies one (field, term) posting list with buffered,
// not-yet-flushed additions.
type pendingKey struct {
	field FieldTag
	term  string
}

// InvertedIndex maps (field, term) to a Postings list, backed by a
// Storage implementation. Additions are buffered in memory and merged
// into the on-disk representation only on Flush, the same
// accumulate-then-batch discipline the original implementation's
// add_batch used before a single storage write.
type InvertedIndex struct {
	storage Storage
	buffer  map[pendingKey]*Postings
}

// NewInvertedIndex wraps storage with write buffering.
func NewInvertedIndex(storage Storage) *InvertedIndex {
	return &InvertedIndex{
		storage: storage,
		buffer:  make(map[pendingKey]*Postings),
	}
}

// Append buffers one (doc_id, field, token, tf) occurrence. It does not
// touch storage; call Flush to persist.
func (idx *InvertedIndex) Append(docID DocID, field FieldTag, token string, tf uint32) {
	key := pendingKey{field: field, term: token}
	p, ok := idx.buffer[key]
	if !ok {
		p = NewPostings()
		idx.buffer[key] = p
	}
	p.Add(docID, tf)
}

// PendingCount returns the number of buffered (field, term, doc_id)
// additions, used by the engine to decide when to auto-flush.
func (idx *InvertedIndex) PendingCount() int {
	n := 0
	for _, p := range idx.buffer {
		n += len(p.entries)
	}
	return n
}

// Flush merges every buffered posting list against its existing on-disk
// counterpart and writes the result as a single storage batch. No
// duplicate (field, term, doc_id) triple is ever written: sortByDocID
// sums term frequencies for a doc_id that recurs within the buffer, and
// Merge sums them for any doc_id present in both the buffer and the
// existing list.
func (idx *InvertedIndex) Flush() error {
	if len(idx.buffer) == 0 {
		return nil
	}

	keys := make([]pendingKey, 0, len(idx.buffer))
	for k := range idx.buffer {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].field != keys[j].field {
			return keys[i].field < keys[j].field
		}
		return keys[i].term < keys[j].term
	})

	entries := make([]KV, 0, len(keys))
	for _, k := range keys {
		buffered := idx.buffer[k]
		buffered.sortByDocID()

		existingBytes, found, err := idx.storage.Get(postingKey(k.field, k.term))
		if err != nil {
			return NewStorageError("flush get", err)
		}

		merged := buffered
		if found {
			existing, err := DeserializePostings(existingBytes)
			if err != nil {
				return err
			}
			merged = existing.Merge(buffered)
		}

		entries = append(entries, KV{Key: postingKey(k.field, k.term), Value: merged.Serialize()})
	}

	if err := idx.storage.PutBatch(entries); err != nil {
		return NewStorageError("flush put_batch", err)
	}

	idx.buffer = make(map[pendingKey]*Postings)
	return nil
}

// Lookup returns the posting list for (field, token) within txn, or an
// empty Postings if absent.
func Lookup(txn ReadTxn, field FieldTag, token string) (*Postings, error) {
	data, found, err := txn.Get(postingKey(field, token))
	if err != nil {
		return nil, NewStorageError("lookup", err)
	}
	if !found {
		return NewPostings(), nil
	}
	return DeserializePostings(data)
}

// sortByDocID sorts entries by doc_id and folds entries that share a
// doc_id into one, summing their term frequencies, so a buffered
// posting list is sorted and duplicate-free before merging.
func (p *Postings) sortByDocID() {
	sort.Slice(p.entries, func(i, j int) bool { return p.entries[i].docID < p.entries[j].docID })
	folded := p.entries[:0]
	for _, e := range p.entries {
		if n := len(folded); n > 0 && folded[n-1].docID == e.docID {
			folded[n-1].tf += e.tf
			continue
		}
		folded = append(folded, e)
	}
	p.entries = folded
	p.bitmap.Clear()
	for _, e := range p.entries {
		p.bitmap.Add(uint32(e.docID))
	}
}
