// Package server provides HTTP routing, middleware, and the JSON API for the playlist sharing service.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method-qualified patterns, so
// path wildcards such as {userId} are available through [http.Request.PathValue].
//
// # API
//
// [API] registers every endpoint on a router:
//
//	POST   /api/signup                → create an account, returns the profile
//	POST   /api/signin                → returns an oauth2-compatible bearer token
//	GET    /api/profile/{userId}      → public profile with follow and playlist counts
//	PUT    /api/profile               → edit nickname and profile image (auth)
//	GET    /api/playlistPage/{userId} → a page of the user's playlists
//	GET    /api/likePage/{userId}     → a page of the playlists the user liked
//	GET    /api/searchs               → fuzzy search over visible playlists
//	POST   /api/playlists             → create a playlist (auth)
//	POST   /api/like/{playlistId}     → like (auth), DELETE to unlike
//	POST   /api/follow/{userId}       → follow (auth), DELETE to unfollow
//
// Paged endpoints take offset and limit query parameters and report the total, so a client can tell
// a short page from an exhausted collection.
//
// # Authentication
//
// Sign-in issues a session token stored by the repositories layer. The [Authenticate] middleware
// resolves "Authorization: Bearer" headers into the viewer's user id; handlers that mutate state
// require one.
//
// # Errors
//
// Handlers return sentinel errors from the shared package. They are mapped to status codes in one
// place and written as {"message": "..."}.
package server
