// Package ngram provides an in-memory substring index over sparse n-grams.
//
// Documents are indexed under every sparse n-gram they contain. A query is
// reduced to its covering n-grams, their posting bitmaps are intersected to
// find candidates, and each candidate is verified against the literal query.
// Verification makes results exact; the n-grams only prune.
//
//	b := sparsegram.MustNew(sparsegram.WithMaxNgramSize(16))
//	idx := ngram.New(b)
//	_ = idx.Add(1, []byte("func main() {}"))
//	ids, _ := idx.Search([]byte("main("))
package ngram
