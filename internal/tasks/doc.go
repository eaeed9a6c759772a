// Package tasks runs the longer CLI operations over rooms with real-time progress reporting.
//
// # Core Operations
//
// [QueueEngine] offers three operations:
//
//  1. [QueueEngine.Snapshot] : a room's queue as the server sees it
//     - Fetches the reduced state from GET /api/rooms/{id}/state
//     - Resolves display metadata for every queued identifier
//     - Falls back to an idle room when the server is unreachable
//
//  2. [QueueEngine.Resolve] : metadata for a list of identifiers
//     - Bounded worker pool sharing one rate limiter
//     - Per-identifier failures are collected, not returned
//
//  3. [QueueEngine.BulkExport] : one export file per room plus export_manifest.json
//
// # Progress Reporting
//
// All operations accept an optional channel of [ProgressUpdate]. Sends use select with
// default, so a slow or absent reader never stalls the operation.
package tasks
