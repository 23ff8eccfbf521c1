package wal

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/hupe1980/sparsegram/internal/fs"
)

// Durability controls the durability guarantees of the WAL.
type Durability int

const (
	// DurabilityAsync relies on OS page cache. Fast but risky.
	DurabilityAsync Durability = iota
	// DurabilitySync waits for fsync before Append returns. Concurrent
	// appends share one fsync (group commit).
	DurabilitySync
)

const (
	walMagic      = "SPGRMWAL" // 8 bytes
	walVersion    = 1          // 4 bytes
	walHeaderSize = 12
)

var (
	ErrIncompatibleVersion = errors.New("incompatible WAL version")
	ErrInvalidHeader       = errors.New("invalid WAL header")
)

type Options struct {
	Durability Durability
}

func DefaultOptions() Options {
	return Options{Durability: DurabilitySync}
}

// WAL manages the write-ahead log file.
type WAL struct {
	mu   sync.Mutex
	fs   fs.FileSystem
	file fs.File
	cw   *countingWriter
	path string
	opts Options

	// Group commit state
	syncedOffset int64      // Offset known to be fsync'd
	epoch        uint64     // Bumped by Reset; stale syncs are discarded
	syncCond     *sync.Cond // Signals the syncer that there is data to sync
	doneCond     *sync.Cond // Signals waiters that a sync completed
	closed       bool
	lastErr      error // Terminal error encountered by background syncer
	wg           sync.WaitGroup
}

type countingWriter struct {
	w *bufio.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

func (cw *countingWriter) Flush() error {
	return cw.w.Flush()
}

func writeHeader(f fs.File) error {
	header := make([]byte, walHeaderSize)
	copy(header[0:8], walMagic)
	binary.LittleEndian.PutUint32(header[8:12], uint32(walVersion))
	if _, err := f.Write(header); err != nil {
		return err
	}
	return f.Sync()
}

func checkHeader(f fs.File, size int64) error {
	if size < walHeaderSize {
		return fmt.Errorf("%w: file too small (%d < %d)", ErrInvalidHeader, size, walHeaderSize)
	}
	header := make([]byte, walHeaderSize)
	if _, err := f.ReadAt(header, 0); err != nil {
		return err
	}
	if string(header[0:8]) != walMagic {
		return fmt.Errorf("%w: invalid magic %q", ErrInvalidHeader, header[0:8])
	}
	if ver := binary.LittleEndian.Uint32(header[8:12]); ver != walVersion {
		return fmt.Errorf("%w: version %d (expected %d)", ErrIncompatibleVersion, ver, walVersion)
	}
	return nil
}

// Open opens or creates a WAL at the given path. Existing logs should be
// passed through Recover first so that a torn tail is cut off.
func Open(fsys fs.FileSystem, path string, opts Options) (*WAL, error) {
	if fsys == nil {
		fsys = fs.Default
	}
	f, err := fsys.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	offset := stat.Size()

	if offset == 0 {
		if err := writeHeader(f); err != nil {
			f.Close()
			return nil, err
		}
		offset = walHeaderSize
	} else if err := checkHeader(f, offset); err != nil {
		f.Close()
		return nil, err
	}

	w := &WAL{
		fs:           fsys,
		file:         f,
		cw:           &countingWriter{w: bufio.NewWriter(f), n: offset},
		path:         path,
		opts:         opts,
		syncedOffset: offset,
	}
	w.syncCond = sync.NewCond(&w.mu)
	w.doneCond = sync.NewCond(&w.mu)

	if opts.Durability == DurabilitySync {
		w.wg.Add(1)
		go w.runSyncer()
	}

	return w, nil
}

// Size returns the current size of the WAL in bytes.
func (w *WAL) Size() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cw.n
}

func (w *WAL) runSyncer() {
	defer w.wg.Done()
	w.mu.Lock()
	defer w.mu.Unlock()

	for {
		for w.cw.n <= w.syncedOffset && !w.closed {
			w.syncCond.Wait()
		}

		if w.closed && w.cw.n <= w.syncedOffset {
			return
		}

		target, epoch := w.cw.n, w.epoch

		w.mu.Unlock()
		err := w.file.Sync()
		w.mu.Lock()

		if err != nil {
			w.lastErr = fmt.Errorf("wal sync failed: %w", err)
			w.doneCond.Broadcast()
			return
		}

		if epoch == w.epoch && target > w.syncedOffset {
			w.syncedOffset = target
		}
		w.doneCond.Broadcast()
	}
}

// Position identifies the end of an appended record within one
// generation of the log. Reset starts a new generation.
type Position struct {
	Offset int64
	epoch  uint64
}

// Append writes a record to the WAL.
// It respects the configured durability mode.
func (w *WAL) Append(rec *Record) error {
	pos, err := w.AppendAsync(rec)
	if err != nil {
		return err
	}
	if w.opts.Durability == DurabilitySync {
		return w.WaitFor(pos)
	}
	return nil
}

// AppendAsync writes a record to the WAL buffer but does not wait for sync.
// It returns the position of the end of the record.
func (w *WAL) AppendAsync(rec *Record) (Position, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return Position{}, os.ErrClosed
	}
	if w.lastErr != nil {
		return Position{}, w.lastErr
	}

	if err := rec.Encode(w.cw); err != nil {
		return Position{}, err
	}
	if err := w.cw.Flush(); err != nil {
		w.lastErr = fmt.Errorf("wal write failed: %w", err)
		return Position{}, w.lastErr
	}

	pos := Position{Offset: w.cw.n, epoch: w.epoch}

	if w.opts.Durability == DurabilitySync {
		w.syncCond.Signal()
	}
	return pos, nil
}

// WaitFor waits until the WAL is synced up to pos. A Reset after the
// append satisfies the wait, since Reset syncs the truncated log.
func (w *WAL) WaitFor(pos Position) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for w.epoch == pos.epoch && w.syncedOffset < pos.Offset && !w.closed && w.lastErr == nil {
		w.doneCond.Wait()
	}
	if w.epoch != pos.epoch {
		return nil
	}
	if w.lastErr != nil {
		return w.lastErr
	}
	if w.closed && w.syncedOffset < pos.Offset {
		return os.ErrClosed
	}
	return nil
}

// Sync ensures all buffered writes are committed to stable storage.
func (w *WAL) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return os.ErrClosed
	}
	if w.lastErr != nil {
		return w.lastErr
	}

	if err := w.cw.Flush(); err != nil {
		return err
	}

	if w.opts.Durability == DurabilityAsync {
		return w.file.Sync()
	}

	target, epoch := w.cw.n, w.epoch
	w.syncCond.Signal()
	for w.epoch == epoch && w.syncedOffset < target && !w.closed && w.lastErr == nil {
		w.doneCond.Wait()
	}
	return w.lastErr
}

// Reset discards every record, leaving an empty log. It is used once the
// records are covered by a durable snapshot.
func (w *WAL) Reset() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return os.ErrClosed
	}
	if w.lastErr != nil {
		return w.lastErr
	}

	if err := w.cw.Flush(); err != nil {
		return err
	}
	if err := w.file.Truncate(walHeaderSize); err != nil {
		return fmt.Errorf("wal truncate failed: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("wal sync failed: %w", err)
	}

	w.epoch++
	w.cw.n = walHeaderSize
	w.syncedOffset = walHeaderSize
	w.doneCond.Broadcast()
	return nil
}

// Close closes the WAL file.
func (w *WAL) Close() error {
	w.mu.Lock()

	if w.closed {
		w.mu.Unlock()
		return os.ErrClosed
	}

	if err := w.cw.Flush(); err != nil {
		w.closed = true
		w.syncCond.Signal()
		w.mu.Unlock()
		w.wg.Wait()
		w.file.Close()
		return err
	}

	w.closed = true
	w.syncCond.Signal()
	w.mu.Unlock()

	w.wg.Wait()

	if w.opts.Durability == DurabilitySync {
		if err := w.file.Sync(); err != nil {
			w.file.Close()
			return err
		}
	}
	return w.file.Close()
}

// RecoverResult describes a Recover pass.
type RecoverResult struct {
	// Records is the number of records replayed.
	Records int
	// LastLSN is the LSN of the last replayed record, or 0.
	LastLSN uint64
	// Truncated is the number of torn or corrupt tail bytes removed.
	Truncated int64
}

// Recover replays every intact record of the log at path through fn, in
// order. Bytes after the last intact record are a torn write from a crash
// and are truncated. A missing log is not an error.
func Recover(fsys fs.FileSystem, path string, fn func(*Record) error) (RecoverResult, error) {
	var res RecoverResult
	if fsys == nil {
		fsys = fs.Default
	}

	f, err := fsys.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return res, nil
		}
		return res, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return res, err
	}
	size := stat.Size()
	if size == 0 {
		return res, nil
	}
	if err := checkHeader(f, size); err != nil {
		return res, err
	}

	r := bufio.NewReader(io.NewSectionReader(f, walHeaderSize, size-walHeaderSize))
	offset := int64(walHeaderSize)
	for {
		rec, n, err := Decode(r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return res, nil
			}
			// Torn or corrupt tail.
			break
		}
		if err := fn(rec); err != nil {
			return res, err
		}
		offset += n
		res.Records++
		res.LastLSN = rec.LSN
	}

	res.Truncated = size - offset
	if err := f.Truncate(offset); err != nil {
		return res, fmt.Errorf("wal truncate failed: %w", err)
	}
	return res, f.Sync()
}
