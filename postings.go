package lfas

import (
	"encoding/binary"
	"fmt"

	"github.com/RoaringBitmap/roaring"
)

// postingEntry is one (doc_id, tf) pair within a posting list, kept in
// doc_id order.
type postingEntry struct {
	docID DocID
	tf    uint32
}

// Postings is the per-term posting list: a compressed set of document
// ids plus, for each, the term frequency in that field. Grounded on the
// bitmap-plus-frequency-map shape this engine's domain's original
// implementation used, adapted here to a dense sorted entry slice backed
// by a roaring.Bitmap for fast set operations.
type Postings struct {
	bitmap  *roaring.Bitmap
	entries []postingEntry
}

// NewPostings returns an empty posting list.
func NewPostings() *Postings {
	return &Postings{bitmap: roaring.New()}
}

// Add appends an occurrence. Callers are responsible for calling Add in
// doc_id order and at most once per doc_id; Merge is the supported way
// to combine overlapping posting lists.
func (p *Postings) Add(docID DocID, tf uint32) {
	p.bitmap.Add(uint32(docID))
	p.entries = append(p.entries, postingEntry{docID: docID, tf: tf})
}

// DocFrequency returns the number of documents containing this term in
// this field.
func (p *Postings) DocFrequency() int {
	return int(p.bitmap.GetCardinality())
}

// Bitmap returns the underlying document-id bitmap. Callers must not
// mutate the returned bitmap.
func (p *Postings) Bitmap() *roaring.Bitmap {
	return p.bitmap
}

// TermFrequency returns the term frequency for docID, or 0 if absent.
func (p *Postings) TermFrequency(docID DocID) uint32 {
	for _, e := range p.entries {
		if e.docID == docID {
			return e.tf
		}
		if e.docID > docID {
			break
		}
	}
	return 0
}

// Iter calls fn for every (doc_id, tf) pair in ascending doc_id order.
func (p *Postings) Iter(fn func(docID DocID, tf uint32)) {
	for _, e := range p.entries {
		fn(e.docID, e.tf)
	}
}

// Merge combines other into p, summing term frequencies for doc_ids
// present in both, and returns a new Postings with entries sorted by
// doc_id. p and other must each already be internally sorted and
// duplicate-free.
func (p *Postings) Merge(other *Postings) *Postings {
	merged := NewPostings()
	i, j := 0, 0
	for i < len(p.entries) || j < len(other.entries) {
		switch {
		case j >= len(other.entries) || (i < len(p.entries) && p.entries[i].docID < other.entries[j].docID):
			merged.Add(p.entries[i].docID, p.entries[i].tf)
			i++
		case i >= len(p.entries) || other.entries[j].docID < p.entries[i].docID:
			merged.Add(other.entries[j].docID, other.entries[j].tf)
			j++
		default:
			merged.Add(p.entries[i].docID, p.entries[i].tf+other.entries[j].tf)
			i++
			j++
		}
	}
	return merged
}

// Serialize encodes the posting list as: u32 LE entry count, N u32 LE
// doc_ids ascending, N u32 LE term frequencies in the same order. The
// bitmap is not serialized directly; it is rebuilt from the doc_id
// vector on Deserialize.
func (p *Postings) Serialize() []byte {
	n := len(p.entries)
	buf := make([]byte, 4+8*n)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(n))
	for i, e := range p.entries {
		binary.LittleEndian.PutUint32(buf[4+4*i:8+4*i], uint32(e.docID))
	}
	base := 4 + 4*n
	for i, e := range p.entries {
		binary.LittleEndian.PutUint32(buf[base+4*i:base+4+4*i], e.tf)
	}
	return buf
}

// DeserializePostings decodes a byte string produced by Serialize,
// returning a CorruptionError if the data is truncated or malformed.
func DeserializePostings(data []byte) (*Postings, error) {
	if len(data) < 4 {
		return nil, &CorruptionError{Message: "posting list truncated before count field"}
	}
	n := int(binary.LittleEndian.Uint32(data[0:4]))
	want := 4 + 8*n
	if len(data) != want {
		return nil, &CorruptionError{Message: fmt.Sprintf("posting list length mismatch: want %d bytes for %d entries, got %d", want, n, len(data))}
	}

	p := NewPostings()
	p.entries = make([]postingEntry, n)
	base := 4 + 4*n
	var prev DocID
	for i := 0; i < n; i++ {
		docID := DocID(binary.LittleEndian.Uint32(data[4+4*i : 8+4*i]))
		if i > 0 && docID <= prev {
			return nil, &CorruptionError{Message: "posting list doc_ids not strictly increasing"}
		}
		tf := binary.LittleEndian.Uint32(data[base+4*i : base+4+4*i])
		p.entries[i] = postingEntry{docID: docID, tf: tf}
		p.bitmap.Add(uint32(docID))
		prev = docID
	}
	return p, nil
}
