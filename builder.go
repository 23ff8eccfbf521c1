package sparsegram

import (
	"github.com/hupe1980/sparsegram/internal/hash"
	"github.com/hupe1980/sparsegram/internal/scan"
)

const (
	// MinNgramSize is the shortest possible n-gram: one bigram plus one
	// boundary byte.
	MinNgramSize = 3

	// DefaultMaxNgramSize bounds covering n-grams unless configured otherwise.
	DefaultMaxNgramSize = 32
)

// Extremum selects which bigram hashes anchor a span.
type Extremum = scan.Direction

const (
	// Minimum anchors spans at locally minimal hashes (default).
	Minimum = scan.Minimum
	// Maximum anchors spans at locally maximal hashes.
	Maximum = scan.Maximum
)

// Builder generates sparse n-grams.
//
// A Builder is immutable after New and safe for concurrent use: every call
// owns its scan state, so independent texts can be processed from many
// goroutines with one shared Builder.
type Builder struct {
	maxNgramSize    int
	caseInsensitive bool
	extremum        Extremum
	breaks          *scan.BreakSet
	customHash      bool
	scanner         *scan.Scanner
	logger          *Logger
}

// New constructs a Builder.
//
// It fails with *ErrInvalidNgramSize if the configured max n-gram size is
// below MinNgramSize, and with *ErrInvalidExtremum for an unknown direction.
func New(optFns ...Option) (*Builder, error) {
	o := applyOptions(optFns)

	if o.maxNgramSize < MinNgramSize {
		return nil, &ErrInvalidNgramSize{Size: o.maxNgramSize}
	}
	if o.extremum != Minimum && o.extremum != Maximum {
		return nil, &ErrInvalidExtremum{Extremum: o.extremum}
	}

	b := &Builder{
		maxNgramSize:    o.maxNgramSize,
		caseInsensitive: o.caseInsensitive,
		extremum:        o.extremum,
		customHash:      o.hash != nil,
		logger:          o.logger,
	}

	if len(o.breaks) > 0 {
		b.breaks = new(scan.BreakSet)
		for _, c := range o.breaks {
			b.breaks[c] = true
		}
	}

	b.scanner = scan.New(scan.Config{
		Direction: o.extremum,
		Hash:      bigramHash(o.hash, o.caseInsensitive),
		Breaks:    b.breaks,
	})

	b.logger.Debug("sparse ngram builder configured",
		"max_ngram_size", b.maxNgramSize,
		"case_insensitive", b.caseInsensitive,
		"extremum", b.extremum.String(),
		"hard_breaks", len(o.breaks),
		"custom_hash", b.customHash,
	)

	return b, nil
}

// MustNew is like New but panics on error.
func MustNew(optFns ...Option) *Builder {
	b, err := New(optFns...)
	if err != nil {
		panic(err)
	}
	return b
}

func bigramHash(fn func(c0, c1 byte) uint32, fold bool) scan.HashFunc {
	switch {
	case fn == nil && fold:
		return hash.BigramFold
	case fn == nil:
		return hash.Bigram
	case fold:
		return func(c0, c1 byte) uint32 {
			return fn(hash.FoldASCII(c0), hash.FoldASCII(c1))
		}
	default:
		return fn
	}
}

// MaxNgramSize returns the covering length bound.
func (b *Builder) MaxNgramSize() int { return b.maxNgramSize }

// CaseInsensitive reports whether ASCII case is folded before hashing.
func (b *Builder) CaseInsensitive() bool { return b.caseInsensitive }

// Extremum returns the comparator direction.
func (b *Builder) Extremum() Extremum { return b.extremum }

// IsHardBreak reports whether c is a configured separator.
func (b *Builder) IsHardBreak(c byte) bool {
	return b.breaks != nil && b.breaks[c]
}

// HardBreaks returns the configured separators in ascending order.
func (b *Builder) HardBreaks() []byte {
	if b.breaks == nil {
		return nil
	}
	var seps []byte
	for c, ok := range b.breaks {
		if ok {
			seps = append(seps, byte(c))
		}
	}
	return seps
}

// CustomHash reports whether the builder was configured with WithHashFunc.
func (b *Builder) CustomHash() bool { return b.customHash }

// Signature identifies the configuration that decides which spans
// BuildAllNgrams produces. Two builders with equal signatures index text
// identically. The covering bound is not part of it.
//
// Builders with a custom hash function share one signature per folding and
// direction, since the function itself cannot be fingerprinted.
func (b *Builder) Signature() uint32 {
	var flags byte
	if b.caseInsensitive {
		flags |= 1
	}
	if b.customHash {
		flags |= 2
	}
	buf := make([]byte, 4, 4+32)
	buf[0], buf[1], buf[2] = 1, flags, byte(b.extremum)
	var breaks [32]byte
	if b.breaks != nil {
		for c, ok := range b.breaks {
			if ok {
				breaks[c/8] |= 1 << (c % 8)
			}
		}
	}
	return hash.CRC32C(append(buf, breaks[:]...))
}

// BuildAllNgrams calls consumer once for every maximal extremum span of text.
//
// Spans arrive in scan order (non-decreasing End, not sorted by Start), are
// at least MinNgramSize long and are not bounded above. CollectAllNgrams
// returns them ordered by start offset. Text shorter than MinNgramSize produces
// nothing. At most 2*(len(text)-1)-2 spans are emitted.
//
// The consumer cannot stop the scan; it runs to completion over text.
func (b *Builder) BuildAllNgrams(text []byte, consumer Consumer) {
	b.scanner.All(text, func(start, end int) {
		consumer(Span{Start: start, End: end})
	})
}

// BuildCoveringNgrams calls consumer for a minimal subset of the spans
// BuildAllNgrams would produce, each at most MaxNgramSize long, that jointly
// cover text. At most len(text)-2 spans are emitted.
//
// Spans arrive in scan order, not sorted by start offset: the spans still
// pending at the end of a segment are emitted right to left. Use
// CollectCoveringNgrams for spans ordered by start.
func (b *Builder) BuildCoveringNgrams(text []byte, consumer Consumer) {
	b.scanner.Covering(text, b.maxNgramSize, func(start, end int) {
		consumer(Span{Start: start, End: end})
	})
}

// CoveringOptions overrides the covering bound for a single call.
type CoveringOptions struct {
	// MaxNgramLength bounds every emitted span. Zero means the builder's
	// MaxNgramSize.
	MaxNgramLength int
}

// Validate checks the options without running a scan.
func (o CoveringOptions) Validate() error {
	if o.MaxNgramLength != 0 && o.MaxNgramLength < MinNgramSize {
		return &ErrInvalidNgramSize{Size: o.MaxNgramLength}
	}
	return nil
}

// BuildCoveringNgramsWith is BuildCoveringNgrams with a per-call bound.
// Invalid options are rejected before anything is emitted.
func (b *Builder) BuildCoveringNgramsWith(text []byte, consumer Consumer, opts CoveringOptions) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	maxLen := opts.MaxNgramLength
	if maxLen == 0 {
		maxLen = b.maxNgramSize
	}
	b.scanner.Covering(text, maxLen, func(start, end int) {
		consumer(Span{Start: start, End: end})
	})
	return nil
}
