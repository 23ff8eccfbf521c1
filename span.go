package sparsegram

import "fmt"

// Span is a half-open byte range [Start, End) into caller-owned text.
//
// A Span borrows nothing: it stays meaningful for as long as the caller keeps
// the text it was produced from.
type Span struct {
	Start int
	End   int
}

// Len returns the span length in bytes.
func (s Span) Len() int { return s.End - s.Start }

// Bytes returns the sub-slice of text covered by s. The result aliases text,
// copy it if it must outlive the buffer.
func (s Span) Bytes(text []byte) []byte {
	return text[s.Start:s.End:s.End]
}

// Text returns the covered substring as a string copy.
func (s Span) Text(text []byte) string {
	return string(text[s.Start:s.End])
}

func (s Span) String() string {
	return fmt.Sprintf("[%d,%d)", s.Start, s.End)
}

// Consumer receives spans synchronously from inside the scan loop.
// It must not block.
type Consumer func(Span)
