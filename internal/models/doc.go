// Package models defines the entities shared by the API server, the API client and the terminal UI.
//
// The package contains two categories of types:
//
// 1. Persistent entities: stored by the repositories package
//   - [User] : accounts with a hashed password, nickname and profile image
//   - [Playlist] : a titled, tagged collection owned by a user, public or private
//   - [Session] : bearer tokens issued at sign-in
//
// 2. Read models: shapes returned by the API and passed through the UI untouched
//   - [Profile] : a user plus follower/following/playlist counts
//   - [Page] : one slice of a paginated collection with an optional known total
//
// Entities implement [Model] so repositories can validate before writing.
package models
