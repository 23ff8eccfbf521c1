package sparsegram_test

import (
	"fmt"
	"log"

	"github.com/hupe1980/sparsegram"
)

func ExampleBuilder_BuildCoveringNgrams() {
	b, err := sparsegram.New()
	if err != nil {
		log.Fatal(err)
	}

	query := []byte("hello world")
	b.BuildCoveringNgrams(query, func(s sparsegram.Span) {
		fmt.Printf("%v %q\n", s, s.Text(query))
	})
	// Output:
	// [0,6) "hello "
	// [4,11) "o world"
}

func ExampleBuilder_CollectAllNgrams() {
	b := sparsegram.MustNew()

	doc := []byte("hello world")
	for _, s := range b.CollectAllNgrams(doc)[:6] {
		fmt.Printf("%q\n", s.Text(doc))
	}
	// Output:
	// "hel"
	// "hello "
	// "ell"
	// "ello "
	// "llo"
	// "llo "
}

func ExampleWithHardBreaks() {
	b := sparsegram.MustNew(sparsegram.WithHardBreaks('\n'))

	text := []byte("ab\ncd\nxyz")
	for s := range b.AllNgrams(text) {
		fmt.Println(s.Text(text))
	}
	// Output: xyz
}

func ExampleNew_invalid() {
	_, err := sparsegram.New(sparsegram.WithMaxNgramSize(2))
	fmt.Println(err)
	// Output: invalid max ngram size: 2 (minimum 3)
}
