// Package sparsegram generates sparse n-grams for substring indexing.
//
// A sparse n-gram is a variable-length byte span whose two boundary bigrams
// carry hash values that are more extreme than every bigram strictly inside
// it. The choice depends only on local content, so a document and any query
// that occurs inside it agree on the spans covering the shared bytes.
//
// # Two Emitters
//
// BuildAllNgrams produces every such span of a document. It is used at index
// time and yields at most 2*(n-1)-2 spans for n bytes of text.
//
// BuildCoveringNgrams produces a minimal set of spans, each bounded by the
// configured maximum length, that together cover a query. Every covering span
// of a query that occurs in a document is also one of the document's spans,
// so posting lists keyed by span bytes can be intersected to find candidates.
//
// # Quick Start
//
//	b, err := sparsegram.New(
//		sparsegram.WithMaxNgramSize(16),
//		sparsegram.WithLineBreaks(),
//	)
//	if err != nil {
//		return err
//	}
//
//	text := []byte("hello world")
//	for s := range b.AllNgrams(text) {
//		fmt.Println(s.Text(text))
//	}
//
// # Configuration
//
//   - WithMaxNgramSize bounds covering spans (default 32, minimum 3)
//   - WithCaseInsensitive folds ASCII letters before hashing (default on)
//   - WithExtremum anchors spans at minimal (default) or maximal hashes
//   - WithHardBreaks keeps spans from crossing separator bytes
//   - WithHashFunc swaps the bigram fingerprint
//
// Builders are immutable and safe for concurrent use.
//
// # Indexing
//
// The lexical/ngram package builds an in-memory substring index on top of
// these emitters, the persistence package snapshots it, and the blobstore
// packages carry snapshots to local disk, S3 or MinIO.
package sparsegram
