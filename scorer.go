package lfas

import "math"

// queryTerm is one (field, token) pair drawn from a tokenized query,
// paired with the posting list for that term so the scorer never
// re-looks it up.
type queryTerm struct {
	field    FieldTag
	postings *Postings
}

// Scorer computes BM25F scores. Grounded on this engine's domain's
// canonical BM25F formula: per-field weighted, length-normalized term
// frequency combined with a Robertson/Sparck-Jones IDF, summed across
// query fields.
type Scorer struct {
	k1      float64
	weights map[FieldTag]float64
	bValues map[FieldTag]float64
}

// NewScorer builds a Scorer from a Config's field weights/b values.
func NewScorer(cfg *Config) *Scorer {
	weights := make(map[FieldTag]float64)
	bValues := make(map[FieldTag]float64)
	for _, tag := range AllFieldTags() {
		weights[tag] = cfg.weightFor(tag)
		bValues[tag] = cfg.bFor(tag)
	}
	return &Scorer{k1: cfg.K1, weights: weights, bValues: bValues}
}

// idf computes the Robertson/Sparck-Jones inverse document frequency
// for a term with document frequency df, out of nf total documents
// carrying that field, clamped at 0.
func idf(nf uint32, df int) float64 {
	if nf == 0 {
		return 0
	}
	v := math.Log((float64(nf)-float64(df)+0.5)/(float64(df)+0.5) + 1)
	if v < 0 {
		return 0
	}
	return v
}

// lengthNorm computes B(d,f) = (1-b) + b*len/avglen, treating avglen==0
// as 1 to avoid division by zero (no document has ever contributed to
// this field).
func lengthNorm(b float64, length uint32, avgLength float64) float64 {
	if avgLength == 0 {
		return 1
	}
	return (1 - b) + b*float64(length)/avgLength
}

// Score computes the BM25F score of docID against terms, the set of
// (field, postings) pairs derived from tokenizing every field of a
// query. Every length statistic is read through txn, the same read
// transaction Round 1 and Round 2 share, so a concurrent Flush can
// never make two Score calls within one Search see different
// doc_count/avg_length/field_length answers for the same field.
func (s *Scorer) Score(txn ReadTxn, docID DocID, terms []queryTerm) (float64, error) {
	var total float64
	for _, qt := range terms {
		tf := qt.postings.TermFrequency(docID)
		if tf == 0 {
			continue
		}

		field := qt.field
		nf, totalLength, err := readFieldStats(txn, field)
		if err != nil {
			return 0, err
		}
		df := qt.postings.DocFrequency()
		avgLen := 0.0
		if nf > 0 {
			avgLen = float64(totalLength) / float64(nf)
		}
		length, err := readFieldLength(txn, field, docID)
		if err != nil {
			return 0, err
		}

		weightedTF := s.weights[field] * float64(tf) / lengthNorm(s.bValues[field], length, avgLen)
		total += idf(nf, df) * weightedTF / (s.k1 + weightedTF)
	}
	return total, nil
}
