package persistence

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/hupe1980/sparsegram"
	"github.com/hupe1980/sparsegram/internal/compress"
)

// Magic identifies snapshot blobs (ASCII "SNG1").
var Magic = [4]byte{'S', 'N', 'G', '1'}

// Version is the current snapshot format version.
const Version uint16 = 1

const (
	flagCaseInsensitive = 1 << iota
	flagCustomHash
)

var (
	ErrInvalidMagic   = errors.New("invalid magic number")
	ErrInvalidVersion = errors.New("unsupported version")
	ErrCorrupt        = errors.New("corrupt snapshot")

	// ErrIncompatibleSnapshot is returned when a snapshot was built with a
	// builder whose signature differs from the one it is loaded with.
	ErrIncompatibleSnapshot = errors.New("incompatible snapshot")
)

// Compression selects the body codec.
type Compression = compress.Type

const (
	CompressionNone = compress.None
	CompressionLZ4  = compress.LZ4
	CompressionZSTD = compress.ZSTD
)

// Header is the fixed-size header at the start of every snapshot.
type Header struct {
	Magic        [4]byte
	Version      uint16
	Compression  Compression
	Flags        uint8
	Extremum     uint8
	_            [3]byte
	MaxNgramSize uint32
	Signature    uint32
	Documents    uint32
	Postings     uint32
	BodySize     uint64
	Breaks       [32]byte
}

// HeaderSize is the encoded size of Header.
var HeaderSize = binary.Size(Header{})

// TrailerSize is the size of the CRC32C trailer.
const TrailerSize = 4

func headerFor(b *sparsegram.Builder) Header {
	h := Header{
		Magic:        Magic,
		Version:      Version,
		Extremum:     uint8(b.Extremum()),
		MaxNgramSize: uint32(b.MaxNgramSize()),
		Signature:    b.Signature(),
	}
	if b.CaseInsensitive() {
		h.Flags |= flagCaseInsensitive
	}
	if b.CustomHash() {
		h.Flags |= flagCustomHash
	}
	for _, c := range b.HardBreaks() {
		h.Breaks[c/8] |= 1 << (c % 8)
	}
	return h
}

// CaseInsensitive reports whether the snapshot was built with ASCII folding.
func (h *Header) CaseInsensitive() bool { return h.Flags&flagCaseInsensitive != 0 }

// CustomHash reports whether the snapshot was built with a custom bigram hash.
func (h *Header) CustomHash() bool { return h.Flags&flagCustomHash != 0 }

// HardBreaks returns the separators recorded in the header.
func (h *Header) HardBreaks() []byte {
	var seps []byte
	for c := 0; c < 256; c++ {
		if h.Breaks[c/8]&(1<<(c%8)) != 0 {
			seps = append(seps, byte(c))
		}
	}
	return seps
}

// Builder reconstructs the builder that produced the snapshot. It fails for
// snapshots built with a custom hash, which cannot be recovered.
func (h *Header) Builder(optFns ...sparsegram.Option) (*sparsegram.Builder, error) {
	if h.CustomHash() {
		return nil, fmt.Errorf("%w: snapshot uses a custom hash function", ErrIncompatibleSnapshot)
	}
	opts := []sparsegram.Option{
		sparsegram.WithMaxNgramSize(int(h.MaxNgramSize)),
		sparsegram.WithCaseInsensitive(h.CaseInsensitive()),
		sparsegram.WithExtremum(sparsegram.Extremum(h.Extremum)),
	}
	if seps := h.HardBreaks(); len(seps) > 0 {
		opts = append(opts, sparsegram.WithHardBreaks(seps...))
	}
	b, err := sparsegram.New(append(opts, optFns...)...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if b.Signature() != h.Signature {
		return nil, fmt.Errorf("%w: signature mismatch", ErrIncompatibleSnapshot)
	}
	return b, nil
}

func (h *Header) validate() error {
	if h.Magic != Magic {
		return ErrInvalidMagic
	}
	if h.Version != Version {
		return fmt.Errorf("%w: %d", ErrInvalidVersion, h.Version)
	}
	if !h.Compression.Valid() {
		return fmt.Errorf("%w: unknown compression %d", ErrCorrupt, h.Compression)
	}
	return nil
}

func readHeader(data []byte) (*Header, error) {
	if len(data) < HeaderSize+TrailerSize {
		return nil, fmt.Errorf("%w: %d bytes is too small", ErrCorrupt, len(data))
	}
	h := new(Header)
	if err := binary.Read(bytes.NewReader(data[:HeaderSize]), binary.LittleEndian, h); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if err := h.validate(); err != nil {
		return nil, err
	}
	return h, nil
}
