// Package scroll samples a scrollable viewport and reports when it nears the bottom.
//
// A [Source] exposes the viewport's current [Metrics] and a way to subscribe to scroll events.
// [Attach] registers a throttled observer on a source and returns a [Handle] that owns the
// registration until [Handle.Release].
//
// # Throttling
//
// Scroll events arrive in bursts. The first event after a quiet period schedules a single
// evaluation one rate-limit window later; events inside that window only coalesce into it. The
// evaluation samples the metrics current at fire time, so the callback sees where the viewport
// ended up rather than where the burst started. The callback therefore runs at most once per
// window.
//
// # Ownership
//
// A Handle belongs to the view that attached it. Release is idempotent, unsubscribes from the
// source, stops a pending evaluation, and waits for a callback already running. Do not call
// Release from inside the callback.
package scroll
