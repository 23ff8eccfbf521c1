package persistence

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/sparsegram"
	"github.com/hupe1980/sparsegram/internal/compress"
	"github.com/hupe1980/sparsegram/internal/hash"
	"github.com/hupe1980/sparsegram/lexical/ngram"
)

// Encode serializes snap, recording b's configuration in the header.
func Encode(snap *ngram.Snapshot, b *sparsegram.Builder, c Compression) ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("persistence: unknown compression %d", c)
	}

	var body bytes.Buffer
	bw := compress.NewBlockWriter(&body, c, 0)

	var scratch []byte
	for _, d := range snap.Documents {
		scratch = binary.AppendUvarint(scratch[:0], uint64(d.ID))
		scratch = binary.AppendUvarint(scratch, uint64(len(d.Text)))
		if _, err := bw.Write(scratch); err != nil {
			return nil, err
		}
		if _, err := bw.Write(d.Text); err != nil {
			return nil, err
		}
	}

	for _, p := range snap.Postings {
		bm, err := p.Docs.ToBytes()
		if err != nil {
			return nil, fmt.Errorf("persistence: posting %q: %w", p.Key, err)
		}
		scratch = binary.AppendUvarint(scratch[:0], uint64(len(p.Key)))
		scratch = append(scratch, p.Key...)
		scratch = binary.AppendUvarint(scratch, uint64(len(bm)))
		if _, err := bw.Write(scratch); err != nil {
			return nil, err
		}
		if _, err := bw.Write(bm); err != nil {
			return nil, err
		}
	}

	if err := bw.Flush(); err != nil {
		return nil, err
	}

	h := headerFor(b)
	h.Compression = c
	h.Documents = uint32(len(snap.Documents))
	h.Postings = uint32(len(snap.Postings))
	h.BodySize = uint64(body.Len())

	out := bytes.NewBuffer(make([]byte, 0, HeaderSize+body.Len()+TrailerSize))
	if err := binary.Write(out, binary.LittleEndian, &h); err != nil {
		return nil, err
	}
	out.Write(body.Bytes())

	var trailer [TrailerSize]byte
	binary.LittleEndian.PutUint32(trailer[:], hash.CRC32C(out.Bytes()))
	out.Write(trailer[:])

	return out.Bytes(), nil
}

// Decode parses a snapshot. Document text in the result may alias data.
func Decode(data []byte) (*Header, *ngram.Snapshot, error) {
	h, err := readHeader(data)
	if err != nil {
		return nil, nil, err
	}

	if want := uint64(HeaderSize) + h.BodySize + TrailerSize; uint64(len(data)) != want {
		return nil, nil, fmt.Errorf("%w: size %d, header describes %d", ErrCorrupt, len(data), want)
	}

	end := len(data) - TrailerSize
	expected := binary.LittleEndian.Uint32(data[end:])
	if actual := hash.CRC32C(data[:end]); actual != expected {
		return nil, nil, &ChecksumMismatchError{Expected: expected, Actual: actual}
	}

	body, err := compress.DecompressAll(data[HeaderSize:end], h.Compression)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	r := &reader{buf: body}
	// Every entry takes at least two body bytes, which bounds the
	// preallocation for headers that claim more entries than exist.
	limit := uint32(len(body) / 2)
	snap := &ngram.Snapshot{
		Documents: make([]ngram.Document, 0, min(h.Documents, limit)),
		Postings:  make([]ngram.Posting, 0, min(h.Postings, limit)),
	}

	for i := uint32(0); i < h.Documents; i++ {
		id := r.uvarint()
		text := r.bytes(r.uvarint())
		if r.err != nil {
			return nil, nil, r.err
		}
		if id > uint64(^uint32(0)) {
			return nil, nil, fmt.Errorf("%w: document id %d out of range", ErrCorrupt, id)
		}
		snap.Documents = append(snap.Documents, ngram.Document{ID: uint32(id), Text: text})
	}

	for i := uint32(0); i < h.Postings; i++ {
		key := r.bytes(r.uvarint())
		raw := r.bytes(r.uvarint())
		if r.err != nil {
			return nil, nil, r.err
		}
		bm := roaring.New()
		if err := bm.UnmarshalBinary(raw); err != nil {
			return nil, nil, fmt.Errorf("%w: posting %q: %v", ErrCorrupt, key, err)
		}
		snap.Postings = append(snap.Postings, ngram.Posting{Key: key, Docs: bm})
	}

	if len(r.buf) != 0 {
		return nil, nil, fmt.Errorf("%w: %d trailing body bytes", ErrCorrupt, len(r.buf))
	}
	return h, snap, nil
}

// reader consumes a body buffer, latching the first error.
type reader struct {
	buf []byte
	err error
}

func (r *reader) uvarint() uint64 {
	if r.err != nil {
		return 0
	}
	v, n := binary.Uvarint(r.buf)
	if n <= 0 {
		r.err = fmt.Errorf("%w: bad varint", ErrCorrupt)
		return 0
	}
	r.buf = r.buf[n:]
	return v
}

func (r *reader) bytes(n uint64) []byte {
	if r.err != nil {
		return nil
	}
	if n > uint64(len(r.buf)) {
		r.err = fmt.Errorf("%w: truncated body", ErrCorrupt)
		return nil
	}
	b := r.buf[:n:n]
	r.buf = r.buf[n:]
	return b
}
