package sparsegram

import (
	"log/slog"
)

type options struct {
	maxNgramSize    int
	caseInsensitive bool
	extremum        Extremum
	breaks          []byte
	hash            func(c0, c1 byte) uint32
	logger          *Logger
}

// Option configures a Builder.
type Option func(*options)

// WithMaxNgramSize sets the length bound for covering n-grams.
// Values below MinNgramSize make New fail.
//
// Real queries rarely need more than 16 to 32 bytes; longer literals are
// covered by several n-grams anyway.
func WithMaxNgramSize(n int) Option {
	return func(o *options) {
		o.maxNgramSize = n
	}
}

// WithCaseInsensitive folds ASCII letters before hashing, so "Hello" and
// "hello" produce the same spans.
func WithCaseInsensitive(enabled bool) Option {
	return func(o *options) {
		o.caseInsensitive = enabled
	}
}

// WithExtremum selects whether spans are anchored at locally minimal
// (default) or maximal bigram hashes.
func WithExtremum(e Extremum) Option {
	return func(o *options) {
		o.extremum = e
	}
}

// WithHardBreaks marks separator bytes that no n-gram may contain.
// The text is scanned as independent segments between separators.
//
// Example:
//
//	b, _ := sparsegram.New(sparsegram.WithHardBreaks('\n', '\r', 0))
func WithHardBreaks(seps ...byte) Option {
	return func(o *options) {
		o.breaks = append(o.breaks, seps...)
	}
}

// WithLineBreaks is WithHardBreaks('\n', '\r').
func WithLineBreaks() Option {
	return WithHardBreaks('\n', '\r')
}

// WithHashFunc replaces the bigram hash. fn must be pure and deterministic.
// Case folding is applied before fn is called.
//
// If nil is passed, the built-in fingerprint is used.
func WithHashFunc(fn func(c0, c1 byte) uint32) Option {
	return func(o *options) {
		o.hash = fn
	}
}

// WithLogger configures structured logging.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		maxNgramSize:    DefaultMaxNgramSize,
		caseInsensitive: true,
		extremum:        Minimum,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	return o
}
