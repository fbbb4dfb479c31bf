package lfas

import (
	"reflect"
	"testing"
)

func TestPostingsAddAndIter(t *testing.T) {
	p := NewPostings()
	p.Add(1, 3)
	p.Add(5, 1)
	p.Add(9, 2)

	var gotDocs []DocID
	var gotTFs []uint32
	p.Iter(func(docID DocID, tf uint32) {
		gotDocs = append(gotDocs, docID)
		gotTFs = append(gotTFs, tf)
	})

	if !reflect.DeepEqual(gotDocs, []DocID{1, 5, 9}) {
		t.Fatalf("unexpected doc order: %v", gotDocs)
	}
	if !reflect.DeepEqual(gotTFs, []uint32{3, 1, 2}) {
		t.Fatalf("unexpected tfs: %v", gotTFs)
	}
	if p.DocFrequency() != 3 {
		t.Fatalf("expected df 3, got %d", p.DocFrequency())
	}
}

func TestPostingsTermFrequency(t *testing.T) {
	p := NewPostings()
	p.Add(1, 3)
	p.Add(5, 7)

	if got := p.TermFrequency(5); got != 7 {
		t.Fatalf("expected tf 7, got %d", got)
	}
	if got := p.TermFrequency(99); got != 0 {
		t.Fatalf("expected tf 0 for absent doc, got %d", got)
	}
}

func TestPostingsSerializeRoundTrip(t *testing.T) {
	p := NewPostings()
	p.Add(1, 3)
	p.Add(5, 1)
	p.Add(9, 2)

	data := p.Serialize()
	got, err := DeserializePostings(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.DocFrequency() != p.DocFrequency() {
		t.Fatalf("df mismatch after round-trip: %d vs %d", got.DocFrequency(), p.DocFrequency())
	}
	if !reflect.DeepEqual(got.Serialize(), data) {
		t.Fatalf("serialize(deserialize(x)) != x")
	}
}

func TestDeserializePostingsRejectsTruncated(t *testing.T) {
	if _, err := DeserializePostings([]byte{1, 2}); err == nil {
		t.Fatal("expected error for truncated data")
	}
}

func TestDeserializePostingsRejectsNonIncreasingDocIDs(t *testing.T) {
	p := NewPostings()
	p.entries = []postingEntry{{docID: 5, tf: 1}, {docID: 5, tf: 2}}
	data := p.Serialize()
	if _, err := DeserializePostings(data); err == nil {
		t.Fatal("expected error for non-increasing doc_ids")
	}
}

func TestPostingsMergeSumsOverlappingFrequencies(t *testing.T) {
	a := NewPostings()
	a.Add(1, 2)
	a.Add(3, 4)

	b := NewPostings()
	b.Add(1, 5)
	b.Add(2, 1)

	merged := a.Merge(b)

	if got := merged.TermFrequency(1); got != 7 {
		t.Fatalf("expected merged tf(1)=7, got %d", got)
	}
	if got := merged.TermFrequency(2); got != 1 {
		t.Fatalf("expected merged tf(2)=1, got %d", got)
	}
	if got := merged.TermFrequency(3); got != 4 {
		t.Fatalf("expected merged tf(3)=4, got %d", got)
	}
	if merged.DocFrequency() != 3 {
		t.Fatalf("expected merged df=3, got %d", merged.DocFrequency())
	}
}
