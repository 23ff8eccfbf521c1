package ngram

import (
	"bytes"
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/sparsegram/internal/hash"
	"github.com/hupe1980/sparsegram/lexical"
)

// Search returns the ids of every document containing query, ascending.
// An empty query matches all documents.
func (idx *MemoryIndex) Search(query []byte) ([]lexical.DocID, error) {
	return idx.SearchContext(context.Background(), query)
}

// SearchContext is Search with cancellation between candidate checks.
func (idx *MemoryIndex) SearchContext(ctx context.Context, query []byte) ([]lexical.DocID, error) {
	start := time.Now()
	keys := idx.queryKeys(query)

	ids, candidates, err := idx.search(ctx, query, keys)

	idx.metrics.RecordSearch(candidates, len(ids), time.Since(start), err)
	idx.logger.LogSearch(ctx, len(keys), candidates, len(ids), err)
	return ids, err
}

func (idx *MemoryIndex) search(ctx context.Context, query []byte, keys []string) ([]lexical.DocID, int, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.closed {
		return nil, 0, lexical.ErrClosed
	}

	cands := idx.candidatesLocked(keys)
	if cands.IsEmpty() {
		return []lexical.DocID{}, 0, nil
	}

	match := bytes.Contains
	if idx.builder.CaseInsensitive() {
		query = foldInto(nil, query)
		match = containsFold
	}

	ids := make([]lexical.DocID, 0, cands.GetCardinality())
	it := cands.Iterator()
	for n := 0; it.HasNext(); n++ {
		if n&255 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, int(cands.GetCardinality()), err
			}
		}
		id := it.Next()
		if match(idx.docs[id], query) {
			ids = append(ids, id)
		}
	}
	return ids, int(cands.GetCardinality()), nil
}

// candidatesLocked intersects the posting lists of keys, smallest first.
// Without keys every live document is a candidate.
func (idx *MemoryIndex) candidatesLocked(keys []string) *roaring.Bitmap {
	if len(keys) == 0 {
		return idx.live.Clone()
	}

	lists := make([]*roaring.Bitmap, 0, len(keys))
	for _, k := range keys {
		bm, ok := idx.postings[k]
		if !ok {
			return roaring.New()
		}
		lists = append(lists, bm)
	}
	slices.SortFunc(lists, func(a, b *roaring.Bitmap) int {
		return cmp.Compare(a.GetCardinality(), b.GetCardinality())
	})

	out := lists[0].Clone()
	for _, bm := range lists[1:] {
		out.And(bm)
		if out.IsEmpty() {
			break
		}
	}
	return out
}

// containsFold reports whether doc contains the already folded query,
// ignoring ASCII case.
func containsFold(doc, query []byte) bool {
	n := len(query)
	if n == 0 {
		return true
	}
	for i := 0; i+n <= len(doc); i++ {
		if hash.FoldASCII(doc[i]) != query[0] {
			continue
		}
		j := 1
		for j < n && hash.FoldASCII(doc[i+j]) == query[j] {
			j++
		}
		if j == n {
			return true
		}
	}
	return false
}
