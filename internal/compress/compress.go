// Package compress frames snapshot bodies as LZ4 or ZSTD blocks.
//
// Block format: [UncompressedSize uint32][CompressedSize uint32][Data...].
// CompressedSize == 0 means Data is stored raw.
package compress

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type defines the compression algorithm used.
type Type uint8

const (
	// None stores blocks raw.
	None Type = 0
	// LZ4 is fast block compression.
	LZ4 Type = 1
	// ZSTD trades speed for ratio.
	ZSTD Type = 2
)

func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case ZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("compress.Type(%d)", uint8(t))
	}
}

// Valid reports whether t is a known algorithm.
func (t Type) Valid() bool { return t <= ZSTD }

// HeaderSize is the size of a block header.
const HeaderSize = 8

// ErrCorruptBlock is returned for truncated or undecodable blocks.
var ErrCorruptBlock = errors.New("corrupt compressed block")

// Blocks whose compressed form exceeds this share of the input are stored raw.
const maxRatio = 0.9

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// Compress frames data as one block.
func Compress(data []byte, t Type) ([]byte, error) {
	var packed []byte
	var err error

	switch t {
	case None:
	case LZ4:
		packed, err = compressLZ4(data)
	case ZSTD:
		enc := getZstdEncoder()
		packed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, fmt.Errorf("unknown compression type %d", t)
	}
	if err != nil {
		return nil, err
	}

	if len(packed) == 0 || float64(len(packed)) > float64(len(data))*maxRatio {
		return frame(data, 0), nil
	}
	return frame(packed, len(data)), nil
}

// frame prepends a header. A zero rawSize marks payload as uncompressed.
func frame(payload []byte, rawSize int) []byte {
	out := make([]byte, HeaderSize+len(payload))
	if rawSize == 0 {
		binary.LittleEndian.PutUint32(out[0:], uint32(len(payload)))
	} else {
		binary.LittleEndian.PutUint32(out[0:], uint32(rawSize))
		binary.LittleEndian.PutUint32(out[4:], uint32(len(payload)))
	}
	copy(out[HeaderSize:], payload)
	return out
}

func compressLZ4(data []byte) ([]byte, error) {
	dst := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, dst, nil)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil // Incompressible
	}
	return dst[:n], nil
}

// Decompress decodes the block at the start of data and returns its payload
// and the total number of bytes the block occupied. Raw blocks alias data.
func Decompress(data []byte, t Type) ([]byte, int, error) {
	if len(data) < HeaderSize {
		return nil, 0, fmt.Errorf("%w: block too small for header", ErrCorruptBlock)
	}

	rawSize := int(binary.LittleEndian.Uint32(data[0:]))
	packedSize := int(binary.LittleEndian.Uint32(data[4:]))

	if packedSize == 0 {
		if len(data)-HeaderSize < rawSize {
			return nil, 0, fmt.Errorf("%w: raw block truncated", ErrCorruptBlock)
		}
		return data[HeaderSize : HeaderSize+rawSize], HeaderSize + rawSize, nil
	}

	if len(data)-HeaderSize < packedSize {
		return nil, 0, fmt.Errorf("%w: compressed block truncated", ErrCorruptBlock)
	}
	packed := data[HeaderSize : HeaderSize+packedSize]
	out := make([]byte, rawSize)

	switch t {
	case LZ4:
		n, err := lz4.UncompressBlock(packed, out)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrCorruptBlock, err)
		}
		if n != rawSize {
			return nil, 0, fmt.Errorf("%w: decompressed size mismatch", ErrCorruptBlock)
		}
	case ZSTD:
		dec := getZstdDecoder()
		decoded, err := dec.DecodeAll(packed, out[:0])
		zstdDecoderPool.Put(dec)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrCorruptBlock, err)
		}
		if len(decoded) != rawSize {
			return nil, 0, fmt.Errorf("%w: decompressed size mismatch", ErrCorruptBlock)
		}
		out = decoded
	default:
		return nil, 0, fmt.Errorf("%w: compressed block with type %s", ErrCorruptBlock, t)
	}

	return out, HeaderSize + packedSize, nil
}

// DecompressAll decodes consecutive blocks until data is exhausted.
// A single raw block is returned without copying.
func DecompressAll(data []byte, t Type) ([]byte, error) {
	var result []byte
	for first := true; len(data) > 0; first = false {
		block, n, err := Decompress(data, t)
		if err != nil {
			return nil, err
		}
		data = data[n:]
		if first && len(data) == 0 {
			return block, nil
		}
		result = append(result, block...)
	}
	return result, nil
}
