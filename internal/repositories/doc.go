// Package repositories implements SQLite persistence for the playlist sharing API.
//
// Each repository handles CRUD operations with atomic sequence generation for stable ordering.
// Users and playlists support soft deletes via deleted_at timestamps and exclude deleted records
// from queries by default.
//
// Key Implementations:
//   - [UserRepository] : accounts, profiles and the follow graph
//   - [PlaylistRepository] : playlists, likes and the paginated listings behind the feeds
//   - [SessionRepository] : bearer tokens issued at sign-in
//
// Listings take an offset and limit and return the total number of matching rows, so clients can
// tell when a collection is exhausted. The [NextSequence] function atomically increments per-table
// sequence counters in dedicated sequence tables.
package repositories
