// Package scan implements the monotonic extremum scan behind sparse n-grams.
//
// A single left-to-right pass over the bigram hashes keeps a stack of
// candidates that have not yet been beaten by a more extreme hash. When a new
// bigram beats the top of the stack, the top's maximal span is known and is
// emitted. Every span is bounded by the nearest strictly more extreme bigram on
// each side, so the same substring produces the same anchors wherever it occurs.
//
// All emits every such span (at most 2n-2 for n bigrams). Covering emits a
// length-bounded subset that still covers the input, using a deque so that old
// candidates can be evicted from the front once their span would exceed the
// bound.
//
// Scanner values are immutable after New and may be shared between
// goroutines. Each call owns its stack.
package scan
