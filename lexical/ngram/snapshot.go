package ngram

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/sparsegram/lexical"
)

// ErrInconsistentSnapshot is returned by Restore when postings and
// documents disagree.
var ErrInconsistentSnapshot = errors.New("inconsistent snapshot")

// Posting is the document set of one n-gram key.
type Posting struct {
	Key  []byte
	Docs *roaring.Bitmap
}

// Snapshot is a point-in-time copy of index contents. Documents are sorted
// by ID and postings by key.
type Snapshot struct {
	Documents []Document
	Postings  []Posting
}

// Snapshot exports the index. Bitmaps are cloned; document text is shared
// and must be treated as read-only.
func (idx *MemoryIndex) Snapshot() (*Snapshot, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.closed {
		return nil, lexical.ErrClosed
	}

	snap := &Snapshot{
		Documents: make([]Document, 0, len(idx.docs)),
		Postings:  make([]Posting, 0, len(idx.postings)),
	}
	for _, id := range slices.Sorted(maps.Keys(idx.docs)) {
		snap.Documents = append(snap.Documents, Document{ID: id, Text: idx.docs[id]})
	}
	for _, k := range slices.Sorted(maps.Keys(idx.postings)) {
		snap.Postings = append(snap.Postings, Posting{Key: []byte(k), Docs: idx.postings[k].Clone()})
	}
	return snap, nil
}

// Restore replaces index contents with snap. Document text and bitmaps are
// copied, so snap may alias memory that is released afterwards.
func (idx *MemoryIndex) Restore(snap *Snapshot) error {
	docs := make(map[lexical.DocID][]byte, len(snap.Documents))
	live := roaring.New()
	for _, d := range snap.Documents {
		if _, dup := docs[d.ID]; dup {
			return fmt.Errorf("%w: duplicate document %d", ErrInconsistentSnapshot, d.ID)
		}
		docs[d.ID] = append([]byte(nil), d.Text...)
		live.Add(d.ID)
	}

	postings := make(map[string]*roaring.Bitmap, len(snap.Postings))
	for _, p := range snap.Postings {
		if p.Docs == nil || p.Docs.IsEmpty() {
			continue
		}
		if p.Docs.AndCardinality(live) != p.Docs.GetCardinality() {
			return fmt.Errorf("%w: posting %q references unknown documents", ErrInconsistentSnapshot, p.Key)
		}
		postings[string(p.Key)] = p.Docs.Clone()
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return lexical.ErrClosed
	}
	idx.docs = docs
	idx.postings = postings
	idx.live = live
	return nil
}
