// Package hash provides the hashing primitives used by sparsegram.
//
// # Bigram fingerprints
//
// Bigram maps an ordered pair of bytes to a 32-bit priority. The scanner only
// compares these values, so the function must be deterministic and must
// distinguish (a, b) from (b, a). Distribution quality matters for index size,
// exact constants do not matter for correctness.
//
//	h := hash.Bigram('h', 'e')
//	h == hash.Bigram('e', 'h') // false
//
// BigramFold applies ASCII case folding before hashing.
//
// # CRC32-Castagnoli (CRC32C)
//
// Snapshot checksums and configuration signatures use CRC32C, which is
// hardware accelerated on x86 (SSE4.2) and ARM (CRC extension).
//
//	checksum := hash.CRC32C(data)
//
//	h := hash.NewCRC32C()
//	h.Write(chunk1)
//	h.Write(chunk2)
//	checksum := h.Sum32()
package hash
