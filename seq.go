package sparsegram

import (
	"cmp"
	"iter"
	"slices"
)

// AllNgrams returns the spans of BuildAllNgrams as a sequence.
//
// Breaking out of the range loop stops delivery, but the underlying scan
// still runs to the end of text.
func (b *Builder) AllNgrams(text []byte) iter.Seq[Span] {
	return func(yield func(Span) bool) {
		b.BuildAllNgrams(text, stoppable(yield))
	}
}

// CoveringNgrams returns the spans of BuildCoveringNgrams as a sequence.
func (b *Builder) CoveringNgrams(text []byte) iter.Seq[Span] {
	return func(yield func(Span) bool) {
		b.BuildCoveringNgrams(text, stoppable(yield))
	}
}

func stoppable(yield func(Span) bool) Consumer {
	done := false
	return func(s Span) {
		if done {
			return
		}
		done = !yield(s)
	}
}

// CollectAllNgrams materializes BuildAllNgrams sorted by (Start, End).
func (b *Builder) CollectAllNgrams(text []byte) []Span {
	spans := make([]Span, 0, 2*len(text))
	b.BuildAllNgrams(text, func(s Span) { spans = append(spans, s) })
	sortSpans(spans)
	return spans
}

// CollectCoveringNgrams materializes BuildCoveringNgrams sorted by (Start, End).
func (b *Builder) CollectCoveringNgrams(text []byte) []Span {
	var spans []Span
	b.BuildCoveringNgrams(text, func(s Span) { spans = append(spans, s) })
	sortSpans(spans)
	return spans
}

func sortSpans(spans []Span) {
	slices.SortFunc(spans, func(a, b Span) int {
		if c := cmp.Compare(a.Start, b.Start); c != 0 {
			return c
		}
		return cmp.Compare(a.End, b.End)
	})
}
