package sparsegram

import (
	"bytes"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func texts(text []byte, spans []Span) []string {
	out := make([]string, 0, len(spans))
	for _, s := range spans {
		out = append(out, s.Text(text))
	}
	return out
}

func collectAll(b *Builder, text []byte) []Span {
	var out []Span
	b.BuildAllNgrams(text, func(s Span) { out = append(out, s) })
	return out
}

func collectCovering(b *Builder, text []byte) []Span {
	var out []Span
	b.BuildCoveringNgrams(text, func(s Span) { out = append(out, s) })
	return out
}

func TestNew_Defaults(t *testing.T) {
	b, err := New()
	require.NoError(t, err)

	assert.Equal(t, DefaultMaxNgramSize, b.MaxNgramSize())
	assert.True(t, b.CaseInsensitive())
	assert.Equal(t, Minimum, b.Extremum())
	assert.False(t, b.IsHardBreak('\n'))
}

func TestNew_InvalidNgramSize(t *testing.T) {
	for _, n := range []int{-1, 0, 1, 2} {
		_, err := New(WithMaxNgramSize(n))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidConfig))

		var sizeErr *ErrInvalidNgramSize
		require.ErrorAs(t, err, &sizeErr)
		assert.Equal(t, n, sizeErr.Size)
	}

	b, err := New(WithMaxNgramSize(MinNgramSize))
	require.NoError(t, err)
	assert.Equal(t, MinNgramSize, b.MaxNgramSize())
}

func TestNew_InvalidExtremum(t *testing.T) {
	_, err := New(WithExtremum(Extremum(7)))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	var extErr *ErrInvalidExtremum
	assert.ErrorAs(t, err, &extErr)
}

func TestMustNew_Panics(t *testing.T) {
	assert.Panics(t, func() { MustNew(WithMaxNgramSize(2)) })
	assert.NotPanics(t, func() { MustNew() })
}

func TestBuildAllNgrams_HelloWorld(t *testing.T) {
	b := MustNew()
	text := []byte("hello world")

	got := collectAll(b, text)
	assert.Equal(t, []Span{
		{0, 3}, {1, 4}, {2, 5}, {3, 6}, {2, 6}, {1, 6}, {0, 6}, {4, 7},
		{5, 8}, {6, 9}, {5, 9}, {7, 10}, {8, 11}, {7, 11}, {5, 11}, {4, 11},
	}, got)
}

func TestBuildCoveringNgrams_HelloWorld(t *testing.T) {
	b := MustNew()
	text := []byte("hello world")

	got := collectCovering(b, text)
	assert.Equal(t, []string{"hello ", "o world"}, texts(text, got))
}

func TestBuildCoveringNgrams_Bound(t *testing.T) {
	text := []byte("the quick brown fox jumps over the lazy dog")
	for _, max := range []int{3, 4, 5, 8, 16} {
		b := MustNew(WithMaxNgramSize(max))

		covered := make([]bool, len(text))
		for _, s := range collectCovering(b, text) {
			assert.GreaterOrEqual(t, s.Len(), MinNgramSize)
			assert.LessOrEqual(t, s.Len(), max)
			for i := s.Start; i < s.End; i++ {
				covered[i] = true
			}
		}
		for i, ok := range covered {
			assert.True(t, ok, "max=%d byte %d uncovered", max, i)
		}
	}
}

func TestBuilder_CoveringSubsetOfAll(t *testing.T) {
	b := MustNew(WithMaxNgramSize(8))
	doc := []byte("func (b *Builder) BuildCoveringNgrams(text []byte, consumer Consumer)")

	all := make(map[string]struct{})
	for _, s := range collectAll(b, doc) {
		all[s.Text(doc)] = struct{}{}
	}

	for _, q := range []string{"Builder", "Covering", "text []byte", "consumer Consumer"} {
		query := []byte(q)
		for _, s := range collectCovering(b, query) {
			assert.Contains(t, all, s.Text(query), "query %q", q)
		}
	}
}

func TestBuilder_CaseInsensitive(t *testing.T) {
	b := MustNew()
	assert.Equal(t, collectAll(b, []byte("Hello World")), collectAll(b, []byte("hello world")))

	cs := MustNew(WithCaseInsensitive(false))
	text := []byte("Hello World")
	got := collectAll(cs, text)
	// Unfolded 'H' and 'W' change the extrema, so "Hello " and "o World"
	// are no longer spans.
	assert.ElementsMatch(t, []string{
		" Wo", " Wor", " World", "Hel", "Wor", "ell", "ello ",
		"llo", "llo ", "lo ", "o W", "orl", "orld", "rld",
	}, dedupe(texts(text, got)))
	assert.NotEqual(t, collectAll(cs, text), collectAll(cs, []byte("hello world")))
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, s := range in {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

func TestBuilder_HardBreaks(t *testing.T) {
	b := MustNew(WithLineBreaks())
	assert.True(t, b.IsHardBreak('\n'))
	assert.True(t, b.IsHardBreak('\r'))
	assert.False(t, b.IsHardBreak(' '))

	text := []byte("hello\nworld")
	for _, s := range collectAll(b, text) {
		assert.NotContains(t, s.Text(text), "\n")
	}
	assert.ElementsMatch(t, []string{"ell", "hel", "llo", "orld", "wor"}, texts(text, collectCovering(b, text)))

	short := []byte("ab\ncd\nxyz")
	assert.Equal(t, []Span{{6, 9}}, collectAll(b, short))
	assert.Equal(t, []Span{{6, 9}}, collectCovering(b, short))
}

func TestBuilder_HashFunc(t *testing.T) {
	b := MustNew(WithHashFunc(func(c0, c1 byte) uint32 { return 42 }))
	text := []byte("abcdef")

	assert.Equal(t, []Span{{0, 3}, {1, 4}, {2, 5}, {3, 6}}, collectAll(b, text))
	assert.Equal(t, []Span{{3, 6}, {2, 5}, {1, 4}, {0, 3}}, collectCovering(b, text))
}

func TestBuilder_HashFuncSeesFoldedBytes(t *testing.T) {
	seen := make(map[byte]bool)
	b := MustNew(WithHashFunc(func(c0, c1 byte) uint32 {
		seen[c0], seen[c1] = true, true
		return uint32(c0)<<8 | uint32(c1)
	}))
	b.BuildAllNgrams([]byte("ABCD"), func(Span) {})

	assert.True(t, seen['a'])
	assert.False(t, seen['A'])
}

func TestBuilder_ShortText(t *testing.T) {
	b := MustNew()
	for _, in := range []string{"", "a", "ab"} {
		assert.Empty(t, collectAll(b, []byte(in)))
		assert.Empty(t, collectCovering(b, []byte(in)))
	}
	assert.Equal(t, []Span{{0, 3}}, collectAll(b, []byte("abc")))
	assert.Equal(t, []Span{{0, 3}}, collectCovering(b, []byte("abc")))
}

func TestBuilder_Signature(t *testing.T) {
	base := MustNew().Signature()

	assert.Equal(t, base, MustNew().Signature())
	assert.Equal(t, base, MustNew(WithMaxNgramSize(8)).Signature())

	assert.NotEqual(t, base, MustNew(WithCaseInsensitive(false)).Signature())
	assert.NotEqual(t, base, MustNew(WithExtremum(Maximum)).Signature())
	assert.NotEqual(t, base, MustNew(WithLineBreaks()).Signature())
	assert.NotEqual(t, MustNew(WithHardBreaks('\n')).Signature(), MustNew(WithHardBreaks('\r')).Signature())
	assert.NotEqual(t, base, MustNew(WithHashFunc(func(c0, c1 byte) uint32 { return 0 })).Signature())
}

func TestBuilder_Accessors(t *testing.T) {
	b := MustNew(WithHardBreaks('\r', '\n', 0))
	assert.Equal(t, []byte{0, '\n', '\r'}, b.HardBreaks())
	assert.False(t, b.CustomHash())

	assert.Nil(t, MustNew().HardBreaks())
	assert.True(t, MustNew(WithHashFunc(func(c0, c1 byte) uint32 { return 1 })).CustomHash())
}

func TestBuildCoveringNgramsWith(t *testing.T) {
	b := MustNew()
	text := []byte("abcdef")

	var got []Span
	err := b.BuildCoveringNgramsWith(text, func(s Span) { got = append(got, s) }, CoveringOptions{MaxNgramLength: 3})
	require.NoError(t, err)
	for _, s := range got {
		assert.Equal(t, 3, s.Len())
	}

	var def []Span
	require.NoError(t, b.BuildCoveringNgramsWith(text, func(s Span) { def = append(def, s) }, CoveringOptions{}))
	assert.Equal(t, collectCovering(b, text), def)

	called := false
	err = b.BuildCoveringNgramsWith(text, func(Span) { called = true }, CoveringOptions{MaxNgramLength: 2})
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.False(t, called)
}

func TestBuilder_Concurrent(t *testing.T) {
	b := MustNew(WithMaxNgramSize(6))
	text := []byte("concurrent use of a shared builder must be deterministic")
	want := collectAll(b, text)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				assert.Equal(t, want, collectAll(b, text))
			}
		}()
	}
	wg.Wait()
}

func TestBuilder_Logger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := New(WithLogger(logger), WithMaxNgramSize(12))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "sparse ngram builder configured")
	assert.Contains(t, buf.String(), "max_ngram_size=12")
}

func TestSpan(t *testing.T) {
	text := []byte("hello world")
	s := Span{Start: 4, End: 11}

	assert.Equal(t, 7, s.Len())
	assert.Equal(t, "o world", s.Text(text))
	assert.Equal(t, []byte("o world"), s.Bytes(text))
	assert.Equal(t, "[4,11)", s.String())

	// Appending to Bytes must not clobber the caller's text.
	_ = append(Span{Start: 0, End: 5}.Bytes(text), 'X')
	assert.Equal(t, "hello world", string(text))
}
