// Package feed keeps the paginated photo feed shown by shutter.
//
// # Overview
//
// A Synchronizer owns three things: the ordered photo collection, the index
// of photo ids already present, and the cursor naming the last page that was
// merged. The UI, the like coordinator and the logout path all read and write
// the feed through it.
//
// # Pagination
//
//	FetchNextPage()
//	  → page = cursor + 1 (1 when nothing is loaded)
//	  → GET /photos?page=N&per_page=M
//	  → merge: drop ids already present, append the rest in order
//	  → cursor = N
//
// The cursor only moves after a page was decoded and merged. A failed fetch
// leaves photos and cursor untouched, records the error in the snapshot and
// bumps ConsecutiveFailures, so retrying asks for the same page again.
//
// # Single Flight
//
// At most one page fetch runs at a time. A call made while a fetch is live
// returns ErrBusy without touching the network; infinite scroll fires far
// more often than pages arrive and rejecting keeps the cursor arithmetic
// trivial.
//
// # Reset
//
// Reset clears the collection and cursor and cancels the fetch in flight
// while holding the feed lock. Completions check their ticket under the same
// lock before merging, so a response that lands after Reset is discarded and
// reported as apierr.ErrCancelled.
//
// # Observers
//
// Subscribe hands out a buffered channel of Events (page merged, reset, like
// changed, fetch failed) and an unsubscribe function. Publishing never
// blocks; a subscriber that falls behind loses events and should re-read
// Snapshot.
//
// # Defensive Copying
//
// Photos, Snapshot and the slice returned by FetchNextPage are copies. Callers
// may mutate them freely; the only way to change a stored photo is SetLiked.
package feed
