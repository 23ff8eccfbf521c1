package ngram

import (
	"bytes"
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/hupe1980/sparsegram"
	"github.com/hupe1980/sparsegram/lexical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIndex(t *testing.T, opts ...sparsegram.Option) *MemoryIndex {
	t.Helper()
	b, err := sparsegram.New(opts...)
	require.NoError(t, err)
	idx := New(b)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestMemoryIndex_Basic(t *testing.T) {
	idx := newIndex(t)

	docs := map[lexical.DocID]string{
		1: "the quick brown fox",
		2: "jumped over the lazy dog",
		3: "quick brown dogs",
		4: "fox and dog",
	}
	for id, text := range docs {
		require.NoError(t, idx.Add(id, []byte(text)))
	}
	assert.Equal(t, 4, idx.Len())

	tests := []struct {
		query string
		want  []lexical.DocID
	}{
		{"fox", []lexical.DocID{1, 4}},
		{"quick brown", []lexical.DocID{1, 3}},
		{"dog", []lexical.DocID{2, 3, 4}},
		{"dogs", []lexical.DocID{3}},
		{"the lazy", []lexical.DocID{2}},
		{"cat", []lexical.DocID{}},
		{"QUICK", []lexical.DocID{1, 3}},
		{"ox", []lexical.DocID{1, 4}},
		{"", []lexical.DocID{1, 2, 3, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := idx.Search([]byte(tt.query))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMemoryIndex_CaseSensitive(t *testing.T) {
	idx := newIndex(t, sparsegram.WithCaseInsensitive(false))

	require.NoError(t, idx.Add(1, []byte("Hello World")))
	require.NoError(t, idx.Add(2, []byte("hello world")))

	got, err := idx.Search([]byte("Hello"))
	require.NoError(t, err)
	assert.Equal(t, []lexical.DocID{1}, got)

	got, err = idx.Search([]byte("o world"))
	require.NoError(t, err)
	assert.Equal(t, []lexical.DocID{2}, got)
}

func TestMemoryIndex_Delete(t *testing.T) {
	idx := newIndex(t)
	require.NoError(t, idx.Add(1, []byte("test content")))
	require.NoError(t, idx.Add(2, []byte("other content")))

	res, err := idx.Search([]byte("test"))
	require.NoError(t, err)
	assert.Len(t, res, 1)

	require.NoError(t, idx.Delete(1))
	require.NoError(t, idx.Delete(42))

	res, err = idx.Search([]byte("test"))
	require.NoError(t, err)
	assert.Empty(t, res)

	require.NoError(t, idx.Add(1, []byte("test content again")))
	res, err = idx.Search([]byte("test"))
	require.NoError(t, err)
	assert.Equal(t, []lexical.DocID{1}, res)
}

func TestMemoryIndex_DeleteDropsPostings(t *testing.T) {
	idx := newIndex(t)
	require.NoError(t, idx.Add(1, []byte("hello world")))
	require.Positive(t, idx.Stats().Ngrams)

	require.NoError(t, idx.Delete(1))
	assert.Equal(t, Stats{}, idx.Stats())
}

func TestMemoryIndex_Replace(t *testing.T) {
	idx := newIndex(t)
	require.NoError(t, idx.Add(7, []byte("first version")))
	require.NoError(t, idx.Add(7, []byte("second draft")))

	res, err := idx.Search([]byte("first"))
	require.NoError(t, err)
	assert.Empty(t, res)

	res, err = idx.Search([]byte("second"))
	require.NoError(t, err)
	assert.Equal(t, []lexical.DocID{7}, res)
	assert.Equal(t, 1, idx.Len())
}

func TestMemoryIndex_CopiesText(t *testing.T) {
	idx := newIndex(t)
	text := []byte("mutable buffer")
	require.NoError(t, idx.Add(1, text))
	copy(text, "XXXXXXX")

	res, err := idx.Search([]byte("mutable"))
	require.NoError(t, err)
	assert.Equal(t, []lexical.DocID{1}, res)
}

func TestMemoryIndex_Stats(t *testing.T) {
	idx := newIndex(t)
	require.NoError(t, idx.Add(1, []byte("abcabc")))
	require.NoError(t, idx.Add(2, []byte("abc")))

	s := idx.Stats()
	assert.Equal(t, 2, s.Documents)
	assert.Positive(t, s.Ngrams)
	assert.GreaterOrEqual(t, s.Postings, uint64(s.Ngrams))

	res, err := idx.Search([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, []lexical.DocID{1, 2}, res)
}

func TestMemoryIndex_Closed(t *testing.T) {
	idx := New(nil)
	require.NoError(t, idx.Add(1, []byte("hello")))
	require.NoError(t, idx.Close())
	require.NoError(t, idx.Close())

	assert.ErrorIs(t, idx.Add(2, []byte("world")), lexical.ErrClosed)
	assert.ErrorIs(t, idx.Delete(1), lexical.ErrClosed)
	_, err := idx.Search([]byte("hello"))
	assert.ErrorIs(t, err, lexical.ErrClosed)
	_, err = idx.Snapshot()
	assert.ErrorIs(t, err, lexical.ErrClosed)
	assert.ErrorIs(t, idx.AddBatch(context.Background(), []Document{{ID: 3, Text: []byte("x")}}), lexical.ErrClosed)
}

func TestMemoryIndex_HardBreaks(t *testing.T) {
	idx := newIndex(t, sparsegram.WithLineBreaks())
	require.NoError(t, idx.Add(1, []byte("first line\nsecond line")))
	require.NoError(t, idx.Add(2, []byte("first line second line")))

	res, err := idx.Search([]byte("line\nsecond"))
	require.NoError(t, err)
	assert.Equal(t, []lexical.DocID{1}, res)

	res, err = idx.Search([]byte("line second"))
	require.NoError(t, err)
	assert.Equal(t, []lexical.DocID{2}, res)
}

func TestMemoryIndex_MatchesBruteForce(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	alphabet := []byte("abcAB ")

	for _, opts := range [][]sparsegram.Option{
		nil,
		{sparsegram.WithCaseInsensitive(false)},
		{sparsegram.WithExtremum(sparsegram.Maximum), sparsegram.WithMaxNgramSize(5)},
		{sparsegram.WithHardBreaks(' '), sparsegram.WithMaxNgramSize(3)},
	} {
		idx := newIndex(t, opts...)
		fold := idx.Builder().CaseInsensitive()

		docs := make(map[lexical.DocID][]byte)
		for id := lexical.DocID(0); id < 40; id++ {
			text := make([]byte, 5+r.IntN(40))
			for i := range text {
				text[i] = alphabet[r.IntN(len(alphabet))]
			}
			docs[id] = text
			require.NoError(t, idx.Add(id, text))
		}

		for range 300 {
			var query []byte
			if r.IntN(2) == 0 {
				doc := docs[lexical.DocID(r.IntN(len(docs)))]
				i := r.IntN(len(doc))
				j := i + r.IntN(len(doc)-i+1)
				query = doc[i:j]
			} else {
				query = make([]byte, 1+r.IntN(8))
				for i := range query {
					query[i] = alphabet[r.IntN(len(alphabet))]
				}
			}

			want := []lexical.DocID{}
			for id := lexical.DocID(0); id < lexical.DocID(len(docs)); id++ {
				if fold {
					if containsFold(docs[id], foldInto(nil, query)) {
						want = append(want, id)
					}
				} else if bytes.Contains(docs[id], query) {
					want = append(want, id)
				}
			}

			got, err := idx.Search(query)
			require.NoError(t, err)
			require.Equal(t, want, got, "query %q", query)
		}
	}
}

func TestMemoryIndex_ConcurrentReaders(t *testing.T) {
	idx := newIndex(t)
	for i := range 50 {
		require.NoError(t, idx.Add(lexical.DocID(i), []byte(fmt.Sprintf("document number %d", i))))
	}

	var wg sync.WaitGroup
	for w := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 50 {
				res, err := idx.Search([]byte(fmt.Sprintf("number %d", i)))
				assert.NoError(t, err)
				assert.Contains(t, res, lexical.DocID(i))
			}
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = idx.Add(lexical.DocID(1000+w), []byte("concurrent writer"))
		}()
	}
	wg.Wait()
	assert.Equal(t, 54, idx.Len())
}

func TestMemoryIndex_Metrics(t *testing.T) {
	mc := &sparsegram.BasicMetricsCollector{}
	idx := New(sparsegram.MustNew(), WithMetricsCollector(mc), WithLogger(sparsegram.NoopLogger()))
	defer idx.Close()

	require.NoError(t, idx.Add(1, []byte("hello world")))
	require.NoError(t, idx.Add(2, []byte("hello there")))
	_, err := idx.Search([]byte("world"))
	require.NoError(t, err)
	require.NoError(t, idx.Delete(2))

	stats := mc.GetStats()
	assert.Equal(t, int64(2), stats.AddCount)
	assert.Positive(t, stats.AddNgrams)
	assert.Equal(t, int64(1), stats.SearchCount)
	assert.Equal(t, int64(1), stats.SearchMatches)
	assert.GreaterOrEqual(t, stats.SearchCandidates, stats.SearchMatches)
	assert.Equal(t, int64(1), stats.DeleteCount)
}

func TestSearchContext_Canceled(t *testing.T) {
	idx := newIndex(t)
	require.NoError(t, idx.Add(1, []byte("hello world")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := idx.SearchContext(ctx, []byte("hello"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestContainsFold(t *testing.T) {
	assert.True(t, containsFold([]byte("Hello World"), []byte("o wor")))
	assert.True(t, containsFold([]byte("abc"), nil))
	assert.False(t, containsFold([]byte("ab"), []byte("abc")))
	assert.False(t, containsFold([]byte("hello"), []byte("help")))
}
