package scan

import (
	"github.com/gammazero/deque"
)

// Direction selects which extremum anchors a span.
type Direction uint8

const (
	// Minimum anchors spans at locally minimal hashes: a candidate is popped
	// when a strictly smaller hash arrives.
	Minimum Direction = iota
	// Maximum anchors spans at locally maximal hashes.
	Maximum
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case Minimum:
		return "minimum"
	case Maximum:
		return "maximum"
	default:
		return "unknown"
	}
}

// HashFunc maps an ordered byte pair to a priority.
type HashFunc func(c0, c1 byte) uint32

// BreakSet marks bytes that end a segment. Spans never contain a break byte.
type BreakSet [256]bool

// Emit receives the half-open span [start, end).
type Emit func(start, end int)

// Config parameterizes a Scanner.
type Config struct {
	Direction Direction
	Hash      HashFunc
	// Breaks is optional. Nil disables segmentation.
	Breaks *BreakSet
}

type candidate struct {
	hash  uint32
	start int
}

// Scanner runs the extremum scan. The zero value is not usable, see New.
type Scanner struct {
	cfg Config
}

// New returns a Scanner for cfg. cfg.Hash must not be nil.
func New(cfg Config) *Scanner {
	if cfg.Hash == nil {
		panic("scan: nil hash function")
	}
	return &Scanner{cfg: cfg}
}

// beats reports whether a is strictly more extreme than b.
func (s *Scanner) beats(a, b uint32) bool {
	if s.cfg.Direction == Maximum {
		return a > b
	}
	return a < b
}

// segments calls fn for every maximal break-free range [lo, hi) of text.
func (s *Scanner) segments(text []byte, fn func(lo, hi int)) {
	if s.cfg.Breaks == nil {
		fn(0, len(text))
		return
	}
	lo := 0
	for i, c := range text {
		if s.cfg.Breaks[c] {
			if i-lo >= 3 {
				fn(lo, i)
			}
			lo = i + 1
		}
	}
	if len(text)-lo >= 3 {
		fn(lo, len(text))
	}
}

// All emits every maximal extremum span of text in scan order, that is with
// non-decreasing end offset.
func (s *Scanner) All(text []byte, emit Emit) {
	var stack []candidate
	s.segments(text, func(lo, hi int) {
		stack = s.all(text[:hi], lo, stack[:0], emit)
	})
}

func (s *Scanner) all(text []byte, lo int, stack []candidate, emit Emit) []candidate {
	for i := lo; i+2 <= len(text); i++ {
		p := candidate{hash: s.cfg.Hash(text[i], text[i+1]), start: i}
		for len(stack) > 0 && s.beats(p.hash, stack[len(stack)-1].hash) {
			emit(stack[len(stack)-1].start, i+2)
			// Equal hashes form one run anchored at its left-most entry.
			for len(stack) > 1 && stack[len(stack)-1].hash == stack[len(stack)-2].hash {
				stack = stack[:len(stack)-1]
			}
			stack = stack[:len(stack)-1]
		}
		if len(stack) > 0 {
			emit(stack[len(stack)-1].start, i+2)
		}
		stack = append(stack, p)
	}
	return stack
}

// Covering emits a subset of All whose spans are at most maxLen bytes long
// and jointly cover every segment of text. maxLen must be at least 3.
func (s *Scanner) Covering(text []byte, maxLen int, emit Emit) {
	if maxLen < 3 {
		panic("scan: covering length below 3")
	}
	var dq deque.Deque[candidate]
	s.segments(text, func(lo, hi int) {
		dq.Clear()
		s.covering(text[:hi], lo, maxLen, &dq, emit)
	})
}

func (s *Scanner) covering(text []byte, lo, maxLen int, dq *deque.Deque[candidate], emit Emit) {
	for i := lo; i+2 <= len(text); i++ {
		p := candidate{hash: s.cfg.Hash(text[i], text[i+1]), start: i}

		// Front eviction keeps every span within maxLen.
		if dq.Len() > 1 && i-dq.Front().start+3 >= maxLen {
			emit(dq.Front().start, dq.At(1).start+2)
			dq.PopFront()
		}

		for dq.Len() > 0 && s.beats(p.hash, dq.Back().hash) {
			if dq.Front().hash == dq.Back().hash {
				// The whole deque is one equal-hash run: glue it pairwise so
				// the run stays covered once it is popped.
				emit(dq.Back().start, i+2)
				drainPairs(dq, emit)
			}
			dq.PopBack()
		}
		dq.PushBack(p)
	}
	drainPairs(dq, emit)
}

// drainPairs emits adjacent candidate pairs from the back until one remains.
func drainPairs(dq *deque.Deque[candidate], emit Emit) {
	for dq.Len() > 1 {
		end := dq.PopBack().start + 2
		emit(dq.Back().start, end)
	}
}
