package ngram

import (
	"context"
	"time"

	"github.com/hupe1980/sparsegram/lexical"
	"golang.org/x/sync/errgroup"
)

// Document is a text to index under ID.
type Document struct {
	ID   lexical.DocID
	Text []byte
}

// AddBatch indexes docs. N-grams are extracted concurrently; the index is
// then updated in one critical section in slice order, so a later document
// replaces an earlier one with the same ID.
//
// If ctx is canceled before extraction finishes nothing is added.
func (idx *MemoryIndex) AddBatch(ctx context.Context, docs []Document) error {
	start := time.Now()

	extracted := make([][]string, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.concurrency)

	for i := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			extracted[i] = idx.extract(docs[i].Text)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		idx.metrics.RecordBatchAdd(len(docs), len(docs), time.Since(start))
		idx.logger.LogBatchAdd(ctx, len(docs), len(docs))
		return err
	}

	idx.mu.Lock()
	var err error
	for i, d := range docs {
		if err = idx.addLocked(d.ID, d.Text, extracted[i]); err != nil {
			break
		}
	}
	idx.mu.Unlock()

	failed := 0
	if err != nil {
		failed = len(docs)
	}
	idx.metrics.RecordBatchAdd(len(docs), failed, time.Since(start))
	idx.logger.LogBatchAdd(ctx, len(docs), failed)
	return err
}
