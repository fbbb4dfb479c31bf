// Package lfas implements a persistent, field-aware full-text search
// engine specialized for structured postal-address records.
//
// Documents are structured records with a fixed set of named fields
// (street, neighborhood, city, state, postal code, house number, and
// so on). Queries supply text for some subset of those same fields.
// Retrieval runs in two rounds: a cheap first round narrows the corpus
// to a candidate set using only highly selective "distinctive" tokens
// (postal codes, house numbers, state codes, address-type bigrams),
// and a second round scores the candidates with BM25F, a per-field
// weighted and length-normalized variant of Okapi BM25.
//
// The on-disk representation is a compact inverted index (one posting
// list per (field, term) pair, each a sorted doc-id vector with
// parallel term frequencies) backed by an embedded key/value store,
// plus a metadata snapshot tracking per-field document counts and
// length statistics that BM25F's normalization needs.
//
// A typical embedding caller looks like:
//
//	cfg := lfas.DefaultConfig("/var/lib/myapp/search")
//	engine, err := lfas.Open(cfg)
//	if err != nil {
//	    return err
//	}
//	defer engine.Close()
//
//	docID, err := engine.AddDocument(lfas.NewRecord(map[lfas.FieldTag]string{
//	    lfas.FieldStreet:     "Rua das Flores",
//	    lfas.FieldNumber:     "123",
//	    lfas.FieldCity:       "São Paulo",
//	    lfas.FieldState:      "SP",
//	    lfas.FieldPostalCode: "01310-100",
//	}))
//
//	hits, err := engine.SearchComplex(ctx, map[lfas.FieldTag]string{
//	    lfas.FieldStreet: "Rua das Flores",
//	    lfas.FieldCity:   "Sao Paulo",
//	}, 10, 1000)
package lfas
