// Package persistence stores sparse n-gram index snapshots in a blob store.
//
// A snapshot is a single immutable blob holding a fixed header, a
// compressed body and a CRC32C trailer. The body lists every document
// followed by every posting, with posting sets encoded as roaring bitmaps.
//
// The Manager writes each snapshot under a new generation name and then
// repoints CURRENT at it, so readers only ever see complete snapshots:
//
//	mgr := persistence.NewManager(store)
//	name, err := mgr.Save(ctx, idx)
//	...
//	idx, err := mgr.Load(ctx, nil)
package persistence
