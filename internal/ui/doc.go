// Package ui implements the terminal room listener using bubbletea's Elm architecture.
//
// The [Model] joins a room over a [Conn], folds every broadcast event into its own copy of the
// room state with the shared reducer and renders the now playing item, the queue and chat.
// When the room switches tracks the model hands the new target to a [playback.Dispatcher],
// which opens a YouTube embed or starts playback on a Spotify device.
//
// Text typed into the input is sent as chat. Slash commands (/play, /next, /prev, /sync,
// /pause, /resume) and the ctrl key bindings publish the matching room events. Pressing enter
// on an empty input plays the selected queue entry.
//
// Messages from background work (socket reads, sends, player loads, metadata lookups) arrive
// through the [Msg] union type.
package ui
