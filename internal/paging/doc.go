// Package paging drives incremental ("infinite scroll") loading of paginated collections.
//
// A [Controller] owns the paging [State] of one collection: how many items the consumer should
// render, whether a fetch is outstanding, and whether the upstream source may have more. It
// decides whether a near-bottom signal should fetch, and applies fetch outcomes.
//
// # Ordering
//
// [Controller.Begin] sets Loading before it returns the [Ticket] that authorises a fetch, so
// the flag is raised before the caller yields to any asynchronous work. A second near-bottom
// signal that arrives while the fetch is in flight sees Loading and gets [NoOp].
//
// # Generations
//
// Every ticket carries the controller's generation. [Controller.Reset] (or a [Controller.Bind]
// to a different collection) starts a new generation, and outcomes tagged with an older one are
// discarded by [Controller.OnFetchSettled] instead of being applied to the new collection.
//
// # Exhaustion
//
// HasMore is derived only from what the source reports: a short page, or a known total that has
// been reached. The visible count alone never decides it.
//
// [Feed] combines a Controller with the fetched items and a [Fetcher], and [Drain] runs a feed
// to exhaustion for non-interactive callers.
package paging
