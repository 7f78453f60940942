// Package services implements the client side of the playlist sharing API.
//
// # Service Interface
//
// [Service] is what the TUI and CLI commands talk to. [Client] implements it over HTTP; tests and
// offline tooling can substitute their own implementation.
//
// # Client
//
// [Client] paces requests with a [rate.Limiter] so fast scrolling cannot flood the API, and attaches
// the session token through an [oauth2.Transport]. Concurrent profile lookups for the same user are
// collapsed into one request with singleflight.
//
// # Credentials
//
// Sign-in returns an oauth2-compatible token. [SaveCredentials] and [LoadCredentials] persist it as
// JSON so the TUI and CLI share one session.
//
// # Fetchers
//
// [PlaylistFetcher], [LikedFetcher], [FollowingFetcher] and [SearchFetcher] adapt the paged
// endpoints to [paging.Fetcher], turning offset/limit requests into [models.Page] values whose
// Total comes from the server.
//
// # Error Handling
//
// Non-2xx responses are mapped back to sentinel errors from the shared package:
//   - [shared.ErrNotAuthenticated] : 401, no or unknown token
//   - [shared.ErrTokenExpired] : the stored token has expired
//   - [shared.ErrInvalidCredentials] : sign-in rejected
//   - [shared.ErrAlreadyExists] : 409
//   - [shared.ErrUserNotFound], [shared.ErrPlaylistNotFound] : 404 on user and playlist routes
//   - [shared.ErrServiceUnavailable] : 429 and 5xx
//   - [shared.ErrAPIRequest] : anything else
package services
