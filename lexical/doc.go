// Package lexical defines the interface for substring search indexes.
//
// # Built-in Implementation
//
// The ngram subpackage provides an index over sparse n-grams:
//
//	import "github.com/hupe1980/sparsegram/lexical/ngram"
//
//	idx := ngram.New(sparsegram.MustNew())
//	_ = idx.Add(1, []byte("hello world"))
//	ids, _ := idx.Search([]byte("o wor"))
//
// # Custom Implementations
//
// Implement the Index interface for custom substring search:
//
//	type Index interface {
//	    Add(id DocID, text []byte) error
//	    Delete(id DocID) error
//	    Search(query []byte) ([]DocID, error)
//	    Close() error
//	}
package lexical
