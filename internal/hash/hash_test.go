package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBigram_Deterministic(t *testing.T) {
	assert.Equal(t, Bigram('h', 'e'), Bigram('h', 'e'))
}

func TestBigram_Vectors(t *testing.T) {
	assert.Equal(t, uint32(0x1e881833), Bigram('h', 'e'))
	// High bytes widen as unsigned values.
	assert.Equal(t, uint32(0xeeb66f5f), Bigram(0xc3, 0xa9))
}

func TestBigram_OrderSensitive(t *testing.T) {
	pairs := [][2]byte{{'h', 'e'}, {'a', 'b'}, {'0', '9'}, {' ', '\n'}, {0x00, 0xff}}
	for _, p := range pairs {
		assert.NotEqual(t, Bigram(p[0], p[1]), Bigram(p[1], p[0]), "pair %q", p)
	}
}

// Every byte pair maps to a distinct fingerprint.
func TestBigram_NoCollisions(t *testing.T) {
	seen := make(map[uint32][2]byte, 1<<16)
	for a := 0; a < 256; a++ {
		for b := 0; b < 256; b++ {
			h := Bigram(byte(a), byte(b))
			if prev, ok := seen[h]; ok {
				t.Fatalf("collision between %v and %v", prev, [2]byte{byte(a), byte(b)})
			}
			seen[h] = [2]byte{byte(a), byte(b)}
		}
	}
}

func TestBigramFold(t *testing.T) {
	assert.Equal(t, BigramFold('H', 'E'), BigramFold('h', 'e'))
	assert.Equal(t, BigramFold('H', 'e'), Bigram('h', 'e'))
	assert.Equal(t, Bigram('[', '@'), BigramFold('[', '@'))
}

func TestFoldASCII(t *testing.T) {
	assert.Equal(t, byte('a'), FoldASCII('A'))
	assert.Equal(t, byte('z'), FoldASCII('Z'))
	assert.Equal(t, byte('z'), FoldASCII('z'))
	assert.Equal(t, byte('@'), FoldASCII('@'))
	assert.Equal(t, byte(0xC4), FoldASCII(0xC4))
}

func TestCRC32C(t *testing.T) {
	data := []byte("sparse ngrams")
	h := NewCRC32C()
	_, _ = h.Write(data[:6])
	_, _ = h.Write(data[6:])
	assert.Equal(t, CRC32C(data), h.Sum32())
	assert.Equal(t, uint32(0xe3069283), CRC32C([]byte("123456789")))
}
