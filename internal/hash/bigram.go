package hash

const (
	mul0 uint64 = 0xc6a4a7935bd1e995
	mul1 uint64 = 0x228876a7198b743
)

// Bigram returns the fingerprint of the ordered byte pair (c0, c1).
//
// Bytes are widened as unsigned values. Implementations that widen a signed
// char hash bytes >= 0x80 differently, so fingerprints of non-ASCII input
// are not interchangeable with them.
func Bigram(c0, c1 byte) uint32 {
	a := uint64(c0)*mul0 + uint64(c1)*mul1
	return uint32(a + (^a >> 47))
}

// BigramFold is Bigram over ASCII-lowercased bytes.
func BigramFold(c0, c1 byte) uint32 {
	return Bigram(FoldASCII(c0), FoldASCII(c1))
}

// FoldASCII lowercases c if it is an ASCII upper-case letter.
func FoldASCII(c byte) byte {
	if 'A' <= c && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}
