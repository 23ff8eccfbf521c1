package ngram

import (
	"context"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/sparsegram"
	"github.com/hupe1980/sparsegram/internal/hash"
	"github.com/hupe1980/sparsegram/lexical"
)

// MemoryIndex is an in-memory sparse n-gram index.
type MemoryIndex struct {
	mu       sync.RWMutex
	builder  *sparsegram.Builder
	postings map[string]*roaring.Bitmap
	docs     map[lexical.DocID][]byte
	live     *roaring.Bitmap
	closed   bool

	logger      *sparsegram.Logger
	metrics     sparsegram.MetricsCollector
	concurrency int
}

// Ensure MemoryIndex implements lexical.Index
var _ lexical.Index = (*MemoryIndex)(nil)

// New creates a MemoryIndex that extracts n-grams with builder.
// A nil builder means sparsegram.MustNew().
func New(builder *sparsegram.Builder, optFns ...Option) *MemoryIndex {
	if builder == nil {
		builder = sparsegram.MustNew()
	}
	o := applyOptions(optFns)

	return &MemoryIndex{
		builder:     builder,
		postings:    make(map[string]*roaring.Bitmap),
		docs:        make(map[lexical.DocID][]byte),
		live:        roaring.New(),
		logger:      o.logger,
		metrics:     o.metrics,
		concurrency: o.concurrency,
	}
}

// Builder returns the n-gram builder the index was created with.
func (idx *MemoryIndex) Builder() *sparsegram.Builder { return idx.builder }

// Stats describes index contents.
type Stats struct {
	// Documents is the number of live documents.
	Documents int
	// Ngrams is the number of distinct posting keys.
	Ngrams int
	// Postings is the total number of (n-gram, document) pairs.
	Postings uint64
}

// Stats returns current index statistics.
func (idx *MemoryIndex) Stats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	s := Stats{
		Documents: len(idx.docs),
		Ngrams:    len(idx.postings),
	}
	for _, bm := range idx.postings {
		s.Postings += bm.GetCardinality()
	}
	return s
}

// Len returns the number of live documents.
func (idx *MemoryIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.docs)
}

// Add indexes text under id. The text is copied.
func (idx *MemoryIndex) Add(id lexical.DocID, text []byte) error {
	start := time.Now()
	keys := idx.extract(text)

	idx.mu.Lock()
	err := idx.addLocked(id, text, keys)
	idx.mu.Unlock()

	idx.metrics.RecordAdd(len(keys), time.Since(start), err)
	idx.logger.LogAdd(context.Background(), id, len(keys), err)
	return err
}

func (idx *MemoryIndex) addLocked(id lexical.DocID, text []byte, keys []string) error {
	if idx.closed {
		return lexical.ErrClosed
	}
	if _, ok := idx.docs[id]; ok {
		idx.deleteLocked(id)
	}

	idx.docs[id] = append([]byte(nil), text...)
	idx.live.Add(id)

	for _, k := range keys {
		bm, ok := idx.postings[k]
		if !ok {
			bm = roaring.New()
			idx.postings[k] = bm
		}
		bm.Add(id)
	}
	return nil
}

// Delete removes a document. Unknown ids are ignored.
func (idx *MemoryIndex) Delete(id lexical.DocID) error {
	start := time.Now()

	idx.mu.Lock()
	var err error
	if idx.closed {
		err = lexical.ErrClosed
	} else {
		idx.deleteLocked(id)
	}
	idx.mu.Unlock()

	idx.metrics.RecordDelete(time.Since(start), err)
	idx.logger.LogDelete(context.Background(), id, err)
	return err
}

func (idx *MemoryIndex) deleteLocked(id lexical.DocID) {
	text, ok := idx.docs[id]
	if !ok {
		return
	}

	// Documents are immutable, so re-extraction yields the keys added.
	for _, k := range idx.extract(text) {
		bm, ok := idx.postings[k]
		if !ok {
			continue
		}
		bm.Remove(id)
		if bm.IsEmpty() {
			delete(idx.postings, k)
		}
	}

	delete(idx.docs, id)
	idx.live.Remove(id)
}

// Close releases index memory. Later calls fail with lexical.ErrClosed.
func (idx *MemoryIndex) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return nil
	}
	idx.closed = true
	idx.postings = nil
	idx.docs = nil
	idx.live = nil
	return nil
}

// extract returns the distinct posting keys of text.
func (idx *MemoryIndex) extract(text []byte) []string {
	var keys []string
	seen := make(map[string]struct{})
	fold := idx.builder.CaseInsensitive()
	var buf []byte

	idx.builder.BuildAllNgrams(text, func(s sparsegram.Span) {
		b := s.Bytes(text)
		if fold {
			buf = foldInto(buf[:0], b)
			b = buf
		}
		if _, ok := seen[string(b)]; ok {
			return
		}
		k := string(b)
		seen[k] = struct{}{}
		keys = append(keys, k)
	})
	return keys
}

// queryKeys returns the distinct covering keys of query.
func (idx *MemoryIndex) queryKeys(query []byte) []string {
	var keys []string
	fold := idx.builder.CaseInsensitive()

	idx.builder.BuildCoveringNgrams(query, func(s sparsegram.Span) {
		b := s.Bytes(query)
		if fold {
			b = foldInto(nil, b)
		}
		k := string(b)
		for _, have := range keys {
			if have == k {
				return
			}
		}
		keys = append(keys, k)
	})
	return keys
}

func foldInto(dst, src []byte) []byte {
	for _, c := range src {
		dst = append(dst, hash.FoldASCII(c))
	}
	return dst
}
