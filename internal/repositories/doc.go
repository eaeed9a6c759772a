// Package repositories implements SQLite persistence for the room directory.
//
// Key Implementations:
//   - [RoomRepository] : room insert and lookup by ID, join code or owner
//   - [UserRepository] : participant identities with email-based lookups
//   - [TrackRepository] : metadata cache keyed by (service, service ID)
//   - [TrackCacheAdapter] : de-duplicating cache facade used by the HTTP layer
//
// Sequence numbers provide stable, human-readable ordering independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
