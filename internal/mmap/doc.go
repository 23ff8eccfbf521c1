// Package mmap maps snapshot files read-only for zero-copy loading.
//
//	m, err := mmap.Open("snapshots/00000001.sng")
//	if err != nil { ... }
//	defer m.Close()
//
//	_ = m.Advise(mmap.AccessSequential)
//	data := m.Bytes()
//
// Unix uses mmap(2) with madvise(2); Windows uses MapViewOfFile and treats
// Advise as a no-op. Callers must not touch Bytes() after Close.
package mmap
