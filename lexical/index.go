package lexical

import "errors"

// ErrClosed is returned by operations on a closed index.
var ErrClosed = errors.New("index closed")

// DocID identifies a document within an index.
type DocID = uint32

// Index is the interface for a substring search index.
type Index interface {
	// Add indexes text under id, replacing any previous document with that id.
	Add(id DocID, text []byte) error
	// Delete removes a document from the index.
	Delete(id DocID) error
	// Search returns the ids of all documents containing query, ascending.
	Search(query []byte) ([]DocID, error)
	// Close closes the index.
	Close() error
}
