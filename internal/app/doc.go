// Package app is the composition root for shutter.
//
// # Overview
//
// Build creates every service explicitly and wires them together: token
// store, API client, token exchanger, feed synchronizer, like coordinator,
// profile service and session. Run adds logging, preferences and the
// optional loopback callback listener, then hands everything to the TUI.
// The cli package uses Build directly for its one-shot commands.
//
// # Startup
//
//  1. Load config from ~/.config/shutter/config.toml (plus .env secrets)
//  2. Open the JSON log file; the terminal belongs to the TUI
//  3. Load preferences; a bad prefs file is logged and ignored
//  4. Build services and start the callback listener when callback_addr is set
//  5. A stored token starts on the feed, otherwise on the login view
//
// # Initial Load
//
// InitialLoad fetches the profile and the first feed page concurrently with
// errgroup and retries transient failures with capped exponential backoff:
//
//	attempt 1 ──fail──> wait 2s ──> attempt 2 ──fail──> wait 4s ──> ...
//
// Precondition failures (not signed in) and cancellations stop at once. A
// page that loaded on an earlier attempt is not fetched again. Retrying is a
// UI concern; the feed synchronizer itself never retries.
package app
