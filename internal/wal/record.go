package wal

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/hupe1980/sparsegram/internal/hash"
)

// RecordType identifies the type of WAL record.
type RecordType uint8

const (
	RecordTypeAdd    RecordType = 1
	RecordTypeDelete RecordType = 2
)

var (
	ErrInvalidCRC     = errors.New("invalid WAL record checksum")
	ErrInvalidType    = errors.New("invalid WAL record type")
	ErrShortRead      = errors.New("short read in WAL record")
	ErrRecordTooLarge = errors.New("WAL record too large")
)

// MaxRecordSize bounds the payload of a single record.
const MaxRecordSize = 256 << 20

const (
	recordHeaderSize = 13 // Type (1) + LSN (8) + Length (4)
	recordFrameSize  = 4 + recordHeaderSize
)

// Record is a single index mutation.
type Record struct {
	LSN  uint64
	Type RecordType
	ID   uint32
	Text []byte
}

func (r *Record) payloadLen() int {
	if r.Type == RecordTypeAdd {
		return 4 + len(r.Text)
	}
	return 4
}

// Size returns the encoded size of the record.
func (r *Record) Size() int {
	return recordFrameSize + r.payloadLen()
}

// Encode writes the record to w.
//
// Format:
// [CRC32C: 4] [Type: 1] [LSN: 8] [Length: 4] [ID: 4] [Text: Length-4]
//
// The checksum covers everything after itself.
func (r *Record) Encode(w io.Writer) error {
	if r.Type != RecordTypeAdd && r.Type != RecordTypeDelete {
		return ErrInvalidType
	}
	if r.payloadLen() > MaxRecordSize {
		return ErrRecordTooLarge
	}

	var frame [recordFrameSize + 4]byte
	frame[4] = byte(r.Type)
	binary.LittleEndian.PutUint64(frame[5:], r.LSN)
	binary.LittleEndian.PutUint32(frame[13:], uint32(r.payloadLen()))
	binary.LittleEndian.PutUint32(frame[17:], r.ID)

	crc := hash.NewCRC32C()
	crc.Write(frame[4:])
	if r.Type == RecordTypeAdd {
		crc.Write(r.Text)
	}
	binary.LittleEndian.PutUint32(frame[0:], crc.Sum32())

	if _, err := w.Write(frame[:]); err != nil {
		return err
	}
	if r.Type == RecordTypeAdd {
		if _, err := w.Write(r.Text); err != nil {
			return err
		}
	}
	return nil
}

// Decode reads a record from r and returns it with its encoded size.
// A clean end of input returns io.EOF. A record cut short returns
// io.ErrUnexpectedEOF.
func Decode(r io.Reader) (*Record, int64, error) {
	var frame [recordFrameSize]byte
	if _, err := io.ReadFull(r, frame[:]); err != nil {
		return nil, 0, err
	}

	recType := RecordType(frame[4])
	lsn := binary.LittleEndian.Uint64(frame[5:])
	length := binary.LittleEndian.Uint32(frame[13:])

	if length > MaxRecordSize {
		return nil, recordFrameSize, ErrRecordTooLarge
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, recordFrameSize, err
	}
	n := int64(recordFrameSize) + int64(length)

	crc := hash.NewCRC32C()
	crc.Write(frame[4:])
	crc.Write(payload)
	if crc.Sum32() != binary.LittleEndian.Uint32(frame[0:]) {
		return nil, n, ErrInvalidCRC
	}

	if len(payload) < 4 {
		return nil, n, ErrShortRead
	}
	rec := &Record{
		LSN:  lsn,
		Type: recType,
		ID:   binary.LittleEndian.Uint32(payload),
	}

	switch recType {
	case RecordTypeAdd:
		rec.Text = payload[4:]
	case RecordTypeDelete:
		if len(payload) != 4 {
			return nil, n, ErrShortRead
		}
	default:
		return nil, n, ErrInvalidType
	}

	return rec, n, nil
}
