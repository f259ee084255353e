// Package cmap provides a concurrent map implementation for OVE core.
//
// This package implements a sharded concurrent map used for the live
// socket table of the broadcast layer:
//
//   - Sharding: Configurable shard count for parallelism
//   - Fine-grained Locking: Per-shard RWMutex for minimal contention
//   - Iteration: Range under per-shard read locks
//
// Usage:
//
//	m := cmap.New[uint64, *Socket]()
//	m.Set(id, socket)
//	val, ok := m.Get(id)
//
// Thread Safety:
//
// All operations are thread-safe. Read operations (Get, Range) use RLock,
// write operations (Set, Delete, Pop) use Lock.
package cmap
