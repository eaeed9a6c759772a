// package realtime fans room events out to participants.
//
// A [Pool] owns one [Channel] per active room. Each channel subscribes to the room's topic
// on a [Bus], folds every delivered event into its [room.State] and forwards the raw
// envelope to the room's [Client]s, the publisher included. The channel is torn down when
// its last client leaves or when the pool is closed.
//
// Two bus backends exist: [MemoryBus] for a single process and [RedisBus] for several
// server instances sharing Redis pub/sub.
package realtime
