// Package memory provides the in-memory section and group registry for
// OVE core.
//
// Sections live in a dense arena addressed by id. Deleting a section
// tombstones its slot: the arena never shrinks and an id is never handed
// out twice, so ids held by groups, connections and application URLs stay
// valid references.
//
// Features:
//
//   - Tombstone Arena: Stable, monotonically growing section ids
//   - Space Index: Fast lookup of the live sections of a space
//   - Group Arena: Numbered section-id lists, pruned when emptied
//   - Reset: Clears all state for tests and restarts
//
// Thread Safety:
//
// All operations are thread-safe. Read operations use RLock, write
// operations use Lock. Returned sections are clones.
package memory
