package lfas

import (
	"container/heap"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/RoaringBitmap/roaring"
)

// dataFileName is the bbolt database file within an engine's storage
// directory.
const dataFileName = "data.db"

// Engine orchestrates indexing and the two-round BM25F retrieval
// algorithm over a Storage backend, an InvertedIndex, and a
// MetadataStore.
type Engine struct {
	mu sync.Mutex

	cfg      *Config
	storage  Storage
	index    *InvertedIndex
	metadata *MetadataStore
	scorer   *Scorer
	log      *slog.Logger

	storageDir string
}

// Open opens (creating if necessary) an engine rooted at cfg.StoragePath,
// loading any existing metadata snapshot.
func Open(cfg *Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.StoragePath, 0700); err != nil {
		return nil, NewStorageError("mkdir storage path", err)
	}

	storage, err := OpenBoltStorage(filepath.Join(cfg.StoragePath, dataFileName), cfg.MapSize)
	if err != nil {
		return nil, err
	}

	metadata, err := LoadMetadataStore(metadataFilePath(cfg.StoragePath))
	if err != nil {
		_ = storage.Close()
		return nil, err
	}

	log := newLogger(cfg.LogLevel)
	log.Info("engine opened", "storage_path", cfg.StoragePath, "next_doc_id", metadata.NextDocID())

	return &Engine{
		cfg:        cfg,
		storage:    storage,
		index:      NewInvertedIndex(storage),
		metadata:   metadata,
		scorer:     NewScorer(cfg),
		log:        log,
		storageDir: cfg.StoragePath,
	}, nil
}

// OpenInMemory opens an engine backed by MemoryStorage, for tests and
// short-lived callers that don't need persistence.
func OpenInMemory(cfg *Config) (*Engine, error) {
	if err := cfg.validateCore(); err != nil {
		return nil, err
	}
	storage := NewMemoryStorage()
	metadata := NewMetadataStore()
	log := newLogger(cfg.LogLevel)
	return &Engine{
		cfg:      cfg,
		storage:  storage,
		index:    NewInvertedIndex(storage),
		metadata: metadata,
		scorer:   NewScorer(cfg),
		log:      log,
	}, nil
}

// AddDocument indexes record and returns its assigned doc_id. A second
// call with an identical payload is accepted as a distinct document; no
// deduplication is performed.
//
// The auto-flush check runs against the buffer as it stood *before*
// this call, so a flush failure is surfaced before record's doc_id is
// reserved or its postings/lengths are recorded: a rejected document
// never touches metadata, and the engine is left in its last good
// state.
func (e *Engine) AddDocument(record Record) (DocID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.index.PendingCount() >= e.cfg.BatchSize {
		if err := e.flushLocked(); err != nil {
			return 0, err
		}
	}

	docID := e.metadata.ReserveDocID()
	e.indexRecordLocked(docID, record)

	return docID, nil
}

// AddDocumentsBulk indexes every record in order, returning their
// assigned doc_ids.
func (e *Engine) AddDocumentsBulk(records []Record) ([]DocID, error) {
	ids := make([]DocID, 0, len(records))
	for _, r := range records {
		id, err := e.AddDocument(r)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// indexRecordLocked tokenizes every field of record and buffers the
// resulting postings, updating per-field length statistics. Caller must
// hold e.mu.
func (e *Engine) indexRecordLocked(docID DocID, record Record) {
	for _, field := range AllFieldTags() {
		text := record.Get(field)
		if text == "" {
			continue
		}

		tokens := Tokenize(field, text)

		length := 0
		for tok, tf := range tokens.TF {
			e.index.Append(docID, field, tok, uint32(tf))
			length += tf
		}
		e.metadata.RecordFieldLength(docID, field, length)
	}
}

// Flush persists every buffered index addition and rewrites the
// metadata snapshot.
func (e *Engine) Flush() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.flushLocked()
}

func (e *Engine) flushLocked() error {
	if err := e.index.Flush(); err != nil {
		return err
	}
	if err := e.storage.PutBatch(e.metadata.MirrorEntries()); err != nil {
		return NewStorageError("flush metadata mirror", err)
	}
	if e.storageDir != "" {
		if err := e.metadata.WriteFile(metadataFilePath(e.storageDir)); err != nil {
			return err
		}
	}
	if err := e.storage.Sync(); err != nil {
		return err
	}
	e.log.Debug("flush complete", "next_doc_id", e.metadata.NextDocID())
	return nil
}

// Close flushes any pending writes and releases the storage backend.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.flushLocked(); err != nil {
		return err
	}
	return e.storage.Close()
}

// Search runs the two-round BM25F retrieval algorithm for query.
func (e *Engine) Search(ctx context.Context, query Query) ([]ScoredDoc, error) {
	return e.SearchComplex(ctx, query.Fields, query.TopK, query.BlockingK)
}

// SearchComplex is the primary search entry point, taking the query's
// field->text map directly.
func (e *Engine) SearchComplex(ctx context.Context, fields map[FieldTag]string, topK, blockingK int) ([]ScoredDoc, error) {
	if len(fields) == 0 {
		return nil, &QueryError{Message: "query must supply at least one field"}
	}
	if topK <= 0 {
		return nil, &QueryError{Message: "top_k must be positive"}
	}
	if blockingK <= 0 {
		return nil, &QueryError{Message: "blocking_k must be positive"}
	}

	txn, err := e.storage.BeginRead()
	if err != nil {
		return nil, err
	}
	defer txn.Discard()

	distinctiveByField := make(map[FieldTag][]string)
	allByField := make(map[FieldTag]Tokens)
	hasDistinctive := false
	for field, text := range fields {
		toks := Tokenize(field, text)
		allByField[field] = toks
		if len(toks.Distinctive) > 0 {
			distinctiveByField[field] = toks.Distinctive
			hasDistinctive = true
		}
	}

	var candidates *roaring.Bitmap
	if hasDistinctive {
		candidates, err = e.round1(ctx, txn, distinctiveByField, blockingK)
		if err != nil {
			return nil, err
		}
		if candidates.IsEmpty() {
			return nil, nil
		}
	}

	return e.round2(ctx, txn, allByField, candidates, topK)
}

// round1 builds the candidate set by unioning the bitmaps of every
// distinctive token's posting list, truncating to blockingK documents
// ranked by the number of distinctive-token posting lists they appear
// in (ties broken by lower doc_id) when the union exceeds that bound.
func (e *Engine) round1(ctx context.Context, txn ReadTxn, distinctiveByField map[FieldTag][]string, blockingK int) (*roaring.Bitmap, error) {
	hits := make(map[DocID]int)

	for field, tokens := range distinctiveByField {
		for _, tok := range tokens {
			if err := ctx.Err(); err != nil {
				return nil, ErrCancelled
			}
			postings, err := Lookup(txn, field, tok)
			if err != nil {
				return nil, err
			}
			postings.Iter(func(docID DocID, _ uint32) {
				hits[docID]++
			})
		}
	}

	if len(hits) <= blockingK {
		bm := roaring.New()
		for docID := range hits {
			bm.Add(uint32(docID))
		}
		return bm, nil
	}

	ranked := make([]hitRank, 0, len(hits))
	for docID, h := range hits {
		ranked = append(ranked, hitRank{docID: docID, hits: h})
	}
	sortByHitsDesc(ranked)

	bm := roaring.New()
	for i := 0; i < blockingK && i < len(ranked); i++ {
		bm.Add(uint32(ranked[i].docID))
	}
	return bm, nil
}

// round2 scores every candidate (or every known document, if candidates
// is nil because Round 1 was skipped) against the full query token set
// and returns the top-K by score, descending, ties broken by lower
// doc_id.
func (e *Engine) round2(ctx context.Context, txn ReadTxn, allByField map[FieldTag]Tokens, candidates *roaring.Bitmap, topK int) ([]ScoredDoc, error) {
	terms := make([]queryTerm, 0)
	for field, toks := range allByField {
		for _, tok := range toks.All {
			postings, err := Lookup(txn, field, tok)
			if err != nil {
				return nil, err
			}
			if postings.DocFrequency() > 0 {
				terms = append(terms, queryTerm{field: field, postings: postings})
			}
		}
	}

	h := &scoreHeap{}
	heap.Init(h)

	var scoreErr error
	scoreOne := func(docID DocID) {
		score, err := e.scorer.Score(txn, docID, terms)
		if err != nil {
			scoreErr = err
			return
		}
		if score <= 0 {
			return
		}
		if h.Len() < topK {
			heap.Push(h, ScoredDoc{DocID: docID, Score: score})
			return
		}
		if worse(h.items[0], ScoredDoc{DocID: docID, Score: score}) {
			heap.Pop(h)
			heap.Push(h, ScoredDoc{DocID: docID, Score: score})
		}
	}

	if candidates != nil {
		it := candidates.Iterator()
		for it.HasNext() {
			if err := ctx.Err(); err != nil {
				return nil, ErrCancelled
			}
			scoreOne(DocID(it.Next()))
			if scoreErr != nil {
				return nil, scoreErr
			}
		}
	} else {
		next := e.metadata.NextDocID()
		for id := DocID(0); id < next; id++ {
			if err := ctx.Err(); err != nil {
				return nil, ErrCancelled
			}
			scoreOne(id)
			if scoreErr != nil {
				return nil, scoreErr
			}
		}
	}

	out := make([]ScoredDoc, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(ScoredDoc)
	}
	return out, nil
}

// worse reports whether candidate should evict current from the
// bounded top-K heap: a strictly higher score wins, and among equal
// scores the lower doc_id wins (so current, with the higher doc_id, is
// "worse" and gets evicted).
func worse(current, candidate ScoredDoc) bool {
	if candidate.Score != current.Score {
		return candidate.Score > current.Score
	}
	return candidate.DocID < current.DocID
}

// hitRank pairs a candidate doc_id with the number of distinctive-token
// posting lists it appeared in, for Round 1 truncation.
type hitRank struct {
	docID DocID
	hits  int
}

func sortByHitsDesc(items []hitRank) {
	for i := 1; i < len(items); i++ {
		for j := i; j > 0; j-- {
			a, b := items[j-1], items[j]
			if a.hits < b.hits || (a.hits == b.hits && a.docID > b.docID) {
				items[j-1], items[j] = items[j], items[j-1]
			} else {
				break
			}
		}
	}
}

// newLogger builds the engine's slog.Logger at the configured level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
