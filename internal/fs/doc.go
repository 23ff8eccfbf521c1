// Package fs provides filesystem abstractions for testability and fault injection.
//
// Production code uses fs.Default (which is [LocalFS]). Tests inject
// [FaultyFS] to simulate failed writes and syncs:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule("journal", fs.Fault{FailAfterBytes: 1024})
//
// Operations take no context.Context. Local file operations are not
// interruptible at the syscall level; remote storage goes through blobstore.
package fs
