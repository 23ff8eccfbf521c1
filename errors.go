package sparsegram

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is the parent of every construction-time failure.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ErrInvalidNgramSize indicates an n-gram length bound below MinNgramSize.
//
// It unwraps to ErrInvalidConfig.
type ErrInvalidNgramSize struct {
	Size int
}

func (e *ErrInvalidNgramSize) Error() string {
	return fmt.Sprintf("invalid max ngram size: %d (minimum %d)", e.Size, MinNgramSize)
}

func (e *ErrInvalidNgramSize) Unwrap() error { return ErrInvalidConfig }

// ErrInvalidExtremum indicates an unknown comparator direction.
//
// It unwraps to ErrInvalidConfig.
type ErrInvalidExtremum struct {
	Extremum Extremum
}

func (e *ErrInvalidExtremum) Error() string {
	return fmt.Sprintf("invalid extremum: %d", e.Extremum)
}

func (e *ErrInvalidExtremum) Unwrap() error { return ErrInvalidConfig }
