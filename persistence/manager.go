package persistence

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/hupe1980/sparsegram"
	"github.com/hupe1980/sparsegram/blobstore"
	"github.com/hupe1980/sparsegram/lexical/ngram"
	"github.com/hupe1980/sparsegram/resource"
	"github.com/rs/xid"
)

// ErrNoSnapshot is returned when the store has no committed snapshot.
var ErrNoSnapshot = errors.New("persistence: no snapshot committed")

const snapshotPrefix = "snapshots/"

// ManagerOptions configures the persistence manager.
type ManagerOptions struct {
	// Compression is the snapshot body codec. Default: LZ4.
	Compression Compression

	// Controller bounds memory, background workers and IO bandwidth used
	// by Save and Load. Nil means unlimited.
	Controller *resource.Controller

	// Logger receives snapshot and restore events. Nil disables logging.
	Logger *sparsegram.Logger
}

// Manager saves and loads index snapshots through a blob store.
//
// Each Save writes snapshots/<generation>-<xid>.sng and then points
// CURRENT at it. The Manager is safe for concurrent use; saves are
// serialized. Managers in different processes may share a store: every
// save writes a distinct blob, and the CURRENT commit decides the winner.
type Manager struct {
	store blobstore.BlobStore
	opts  ManagerOptions
	mu    sync.Mutex
}

// NewManager creates a manager over store.
func NewManager(store blobstore.BlobStore, optFns ...func(o *ManagerOptions)) *Manager {
	opts := ManagerOptions{
		Compression: CompressionLZ4,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = sparsegram.NoopLogger()
	}
	return &Manager{store: store, opts: opts}
}

// snapshotName returns a fresh name for generation gen. The xid suffix
// keeps names unique across writers that pick the same generation.
func snapshotName(gen uint64) string {
	return fmt.Sprintf("%s%020d-%s.sng", snapshotPrefix, gen, xid.New())
}

func parseSnapshotName(name string) (uint64, bool) {
	s, ok := strings.CutPrefix(name, snapshotPrefix)
	if !ok {
		return 0, false
	}
	s, ok = strings.CutSuffix(s, ".sng")
	if !ok {
		return 0, false
	}
	genStr, id, ok := strings.Cut(s, "-")
	if !ok {
		return 0, false
	}
	if _, err := xid.FromString(id); err != nil {
		return 0, false
	}
	gen, err := strconv.ParseUint(genStr, 10, 64)
	return gen, err == nil
}

// Snapshots returns the stored snapshot names ordered by generation.
func (m *Manager) Snapshots(ctx context.Context) ([]string, error) {
	names, err := m.store.List(ctx, snapshotPrefix)
	if err != nil {
		return nil, fmt.Errorf("persistence: list snapshots: %w", err)
	}
	type ref struct {
		gen  uint64
		name string
	}
	var refs []ref
	for _, name := range names {
		if gen, ok := parseSnapshotName(name); ok {
			refs = append(refs, ref{gen, name})
		}
	}
	slices.SortFunc(refs, func(a, b ref) int {
		if c := cmp.Compare(a.gen, b.gen); c != 0 {
			return c
		}
		return strings.Compare(a.name, b.name)
	})
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.name
	}
	return out, nil
}

// Generations returns the stored snapshot generations in ascending order.
func (m *Manager) Generations(ctx context.Context) ([]uint64, error) {
	names, err := m.Snapshots(ctx)
	if err != nil {
		return nil, err
	}
	var gens []uint64
	for _, name := range names {
		gen, _ := parseSnapshotName(name)
		gens = append(gens, gen)
	}
	return slices.Compact(gens), nil
}

// Current returns the name of the committed snapshot.
func (m *Manager) Current(ctx context.Context) (string, error) {
	data, err := blobstore.ReadFile(ctx, m.store, blobstore.CurrentName)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return "", ErrNoSnapshot
		}
		return "", fmt.Errorf("persistence: read %s: %w", blobstore.CurrentName, err)
	}
	name := strings.TrimSpace(string(data))
	if _, ok := parseSnapshotName(name); !ok {
		return "", fmt.Errorf("%w: %s points at %q", ErrCorrupt, blobstore.CurrentName, name)
	}
	return name, nil
}

// Save writes a snapshot of idx and commits it. It returns the snapshot name.
func (m *Manager) Save(ctx context.Context, idx *ngram.MemoryIndex) (name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	size := 0
	defer func() {
		m.opts.Logger.LogSnapshot(ctx, name, size, err)
	}()

	rc := m.opts.Controller
	if err = rc.AcquireWorker(ctx); err != nil {
		return "", err
	}
	defer rc.ReleaseWorker()

	snap, err := idx.Snapshot()
	if err != nil {
		return "", err
	}

	data, err := Encode(snap, idx.Builder(), m.opts.Compression)
	if err != nil {
		return "", err
	}
	size = len(data)

	if err = rc.WaitIO(ctx, len(data)); err != nil {
		return "", err
	}
	return m.commit(ctx, data)
}

// commit writes data as the next generation and points CURRENT at it.
// Callers hold m.mu.
func (m *Manager) commit(ctx context.Context, data []byte) (string, error) {
	gens, err := m.Generations(ctx)
	if err != nil {
		return "", err
	}
	next := uint64(1)
	if len(gens) > 0 {
		next = gens[len(gens)-1] + 1
	}
	name := snapshotName(next)

	if err := m.store.Put(ctx, name, data); err != nil {
		return "", fmt.Errorf("persistence: write %s: %w", name, err)
	}
	if err := m.store.Put(ctx, blobstore.CurrentName, []byte(name)); err != nil {
		// name is unique to this call, so no other commit can reference it.
		_ = m.store.Delete(ctx, name)
		return "", fmt.Errorf("persistence: commit %s: %w", name, err)
	}
	return name, nil
}

// Export copies the committed snapshot to w, throttled by the controller's
// IO limit. It returns the number of bytes written.
func (m *Manager) Export(ctx context.Context, w io.Writer) (int64, error) {
	name, err := m.Current(ctx)
	if err != nil {
		return 0, err
	}
	data, err := blobstore.ReadFile(ctx, m.store, name)
	if err != nil {
		return 0, fmt.Errorf("persistence: read %s: %w", name, err)
	}
	n, err := resource.NewRateLimitedWriter(ctx, w, m.opts.Controller).Write(data)
	return int64(n), err
}

// Import reads an exported snapshot from r, verifies it and commits it as
// a new generation.
func (m *Manager) Import(ctx context.Context, r io.Reader) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := io.ReadAll(resource.NewRateLimitedReader(ctx, r, m.opts.Controller))
	if err != nil {
		return "", fmt.Errorf("persistence: import: %w", err)
	}
	if _, _, err := Decode(data); err != nil {
		return "", fmt.Errorf("persistence: import: %w", err)
	}
	return m.commit(ctx, data)
}

// Load restores the committed snapshot into a new MemoryIndex.
//
// A nil builder is reconstructed from the snapshot header. A non-nil
// builder must have the same signature as the one the snapshot was built
// with, otherwise ErrIncompatibleSnapshot is returned.
func (m *Manager) Load(ctx context.Context, builder *sparsegram.Builder, optFns ...ngram.Option) (*ngram.MemoryIndex, error) {
	name, err := m.Current(ctx)
	if err != nil {
		return nil, err
	}
	return m.LoadSnapshot(ctx, name, builder, optFns...)
}

// LoadSnapshot restores the named snapshot, committed or not.
func (m *Manager) LoadSnapshot(ctx context.Context, name string, builder *sparsegram.Builder, optFns ...ngram.Option) (idx *ngram.MemoryIndex, err error) {
	documents := 0
	defer func() {
		m.opts.Logger.LogRestore(ctx, name, documents, err)
	}()

	blob, err := m.store.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("persistence: open %s: %w", name, err)
	}
	defer blob.Close()

	rc := m.opts.Controller
	size := blob.Size()
	if err = rc.AcquireMemory(ctx, size); err != nil {
		return nil, err
	}
	defer rc.ReleaseMemory(size)

	if err = rc.WaitIO(ctx, int(size)); err != nil {
		return nil, err
	}

	data, err := blobstore.ReadAll(ctx, blob)
	if err != nil {
		return nil, fmt.Errorf("persistence: read %s: %w", name, err)
	}

	h, snap, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("persistence: decode %s: %w", name, err)
	}

	if builder == nil {
		if builder, err = h.Builder(); err != nil {
			return nil, err
		}
	} else if builder.Signature() != h.Signature {
		return nil, fmt.Errorf("%w: builder signature 0x%08x, snapshot 0x%08x", ErrIncompatibleSnapshot, builder.Signature(), h.Signature)
	}

	idx = ngram.New(builder, optFns...)
	if err = idx.Restore(snap); err != nil {
		return nil, fmt.Errorf("persistence: restore %s: %w", name, err)
	}
	documents = len(snap.Documents)
	return idx, nil
}

// Prune deletes all but the newest keep snapshots. The committed snapshot
// is never deleted. It returns the number of snapshots removed.
func (m *Manager) Prune(ctx context.Context, keep int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	keep = max(keep, 1)

	current, err := m.Current(ctx)
	if err != nil && !errors.Is(err, ErrNoSnapshot) {
		return 0, err
	}

	names, err := m.Snapshots(ctx)
	if err != nil {
		return 0, err
	}
	if len(names) <= keep {
		return 0, nil
	}

	removed := 0
	for _, name := range names[:len(names)-keep] {
		if name == current {
			continue
		}
		if err := m.store.Delete(ctx, name); err != nil {
			return removed, fmt.Errorf("persistence: delete %s: %w", name, err)
		}
		removed++
	}
	return removed, nil
}
