// Package tasks runs long, non-interactive playlist jobs with real-time progress reporting.
//
// # Core Operations
//
//  1. [ExportEngine.Collect] : Load a whole collection into a [formatter.Collection]
//     - Fetches the owner's profile when the collection belongs to a user
//     - Drains the collection page by page through a [paging.Feed]
//     - Reports every settled page as a progress update
//
//  2. [ExportEngine.BulkExport] : Export several collections concurrently
//     - Dispatches sources to a worker pool at a bounded rate
//     - Writes each collection as CSV, Markdown or plain text
//     - Records partial failures and writes a manifest summarizing the run
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for
// advanced UI rendering. Updates use select with default to prevent blocking, so a slow or absent
// reader never stalls an export.
package tasks
