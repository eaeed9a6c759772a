// Package models defines domain entities and persistence interfaces for the colisten service.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects: lightweight structs exchanged with clients and vendor APIs
//   - [TrackMetadata] : display metadata for a Spotify track/playlist or a YouTube video
//   - [Message] : a chat line broadcast on a room channel
//
// 2. Persistent Entities: database-backed models
//   - [User] : a participant identity (stands in for a hosted auth user)
//   - [Room] : a named listening room with a playback [RoomMode] and a join code
//   - [CachedTrack] : metadata cached per (service, service id)
//
// Persistent entities implement the [Model] interface providing ID, timestamps and validation.
// The [Repository] interface defines the create/read operations used by the room directory.
package models
