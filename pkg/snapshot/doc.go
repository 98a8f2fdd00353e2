// Package snapshot persists whole state trees outside the process.
//
// A Store loads and saves one tree for one Ref. Sync ties a Store to a live
// tree (anything with Snapshot and Restore, such as *statetree.Store) and
// tracks the ETag of the last load or save, so a save fails with
// ErrETagMismatch when someone else wrote the same Ref in between.
//
// MemoryStore is an in-process Store that keeps trees encoded with a Codec,
// so loaded trees never alias saved ones. Durable back-ends implement Store
// in their own packages.
//
// Data flow:
//
//	statetree.Store -> Snapshot() -> Sync.Save -> Store.Save
//	Store.Load -> Sync.Load -> Restore() -> statetree.Store
package snapshot
