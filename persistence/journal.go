package persistence

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/hupe1980/sparsegram"
	"github.com/hupe1980/sparsegram/internal/fs"
	"github.com/hupe1980/sparsegram/internal/wal"
	"github.com/hupe1980/sparsegram/lexical"
	"github.com/hupe1980/sparsegram/lexical/ngram"
)

// JournalOptions configures a Journal.
type JournalOptions struct {
	// SyncWrites makes Add and Delete wait for fsync. Default: true.
	SyncWrites bool

	// Logger receives replay events. Nil disables logging.
	Logger *sparsegram.Logger

	fileSystem fs.FileSystem
}

// Journal logs index mutations to a local write-ahead log so that changes
// made after the last snapshot survive a restart.
//
// Typical recovery:
//
//	idx, err := mgr.Load(ctx, nil) // or ngram.New on ErrNoSnapshot
//	j, err := persistence.OpenJournal("data/journal.wal", idx)
//	...
//	j.Add(id, text)
//	j.Checkpoint(ctx, mgr) // snapshot, then empty the log
type Journal struct {
	mu     sync.Mutex
	idx    *ngram.MemoryIndex
	log    *wal.WAL
	lsn    uint64
	sync   bool
	logger *sparsegram.Logger
}

// OpenJournal replays the log at path into idx and opens it for appending.
// The directory is created if needed.
func OpenJournal(path string, idx *ngram.MemoryIndex, optFns ...func(o *JournalOptions)) (*Journal, error) {
	opts := JournalOptions{SyncWrites: true}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = sparsegram.NoopLogger()
	}
	if opts.fileSystem == nil {
		opts.fileSystem = fs.Default
	}

	if err := opts.fileSystem.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("persistence: create journal directory: %w", err)
	}

	res, err := wal.Recover(opts.fileSystem, path, func(rec *wal.Record) error {
		switch rec.Type {
		case wal.RecordTypeAdd:
			return idx.Add(rec.ID, rec.Text)
		case wal.RecordTypeDelete:
			return idx.Delete(rec.ID)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("persistence: replay journal: %w", err)
	}
	opts.Logger.Info("journal replayed",
		"path", path,
		"records", res.Records,
		"truncated_bytes", res.Truncated,
	)

	durability := wal.DurabilityAsync
	if opts.SyncWrites {
		durability = wal.DurabilitySync
	}
	log, err := wal.Open(opts.fileSystem, path, wal.Options{Durability: durability})
	if err != nil {
		return nil, fmt.Errorf("persistence: open journal: %w", err)
	}

	return &Journal{
		idx:    idx,
		log:    log,
		lsn:    res.LastLSN,
		sync:   opts.SyncWrites,
		logger: opts.Logger,
	}, nil
}

// Index returns the journaled index. Mutating it directly bypasses the log.
func (j *Journal) Index() *ngram.MemoryIndex { return j.idx }

// Add logs and applies an insert. It returns once the record is durable
// when SyncWrites is set.
func (j *Journal) Add(id lexical.DocID, text []byte) error {
	return j.apply(&wal.Record{Type: wal.RecordTypeAdd, ID: id, Text: text}, func() error {
		return j.idx.Add(id, text)
	})
}

// Delete logs and applies a delete.
func (j *Journal) Delete(id lexical.DocID) error {
	return j.apply(&wal.Record{Type: wal.RecordTypeDelete, ID: id}, func() error {
		return j.idx.Delete(id)
	})
}

func (j *Journal) apply(rec *wal.Record, fn func() error) error {
	j.mu.Lock()
	rec.LSN = j.lsn + 1
	pos, err := j.log.AppendAsync(rec)
	if err != nil {
		j.mu.Unlock()
		return fmt.Errorf("persistence: journal append: %w", err)
	}
	j.lsn = rec.LSN
	err = fn()
	j.mu.Unlock()

	if err != nil {
		return err
	}
	if j.sync {
		return j.log.WaitFor(pos)
	}
	return nil
}

// Checkpoint saves a snapshot through mgr and then empties the log.
// Mutations are blocked while it runs.
func (j *Journal) Checkpoint(ctx context.Context, mgr *Manager) (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	name, err := mgr.Save(ctx, j.idx)
	if err != nil {
		return "", err
	}
	if err := j.log.Reset(); err != nil {
		return name, fmt.Errorf("persistence: reset journal: %w", err)
	}
	return name, nil
}

// Size returns the log size in bytes.
func (j *Journal) Size() int64 {
	return j.log.Size()
}

// Close flushes and closes the log. The index stays open.
func (j *Journal) Close() error {
	if err := j.log.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return err
	}
	return nil
}
