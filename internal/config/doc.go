// Package config handles loading and validating shutter's configuration.
//
// # Overview
//
// shutter reads a small TOML file to learn where the photo service lives,
// which OAuth client it signs in as, and where it keeps its token and log.
// Every field is optional in the file itself; Load validates the merged result
// so a missing client id is reported before any network call is made.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/shutter/config.toml (default)
//  3. If the config file doesn't exist, start from hardcoded defaults
//  4. Read a .env file next to the config (or ~/.config/shutter/.env)
//  5. Let SHUTTER_CLIENT_ID, SHUTTER_CLIENT_SECRET and SHUTTER_REDIS_URL
//     from the environment override the file
//
// # Default Values
//
//   - API base: https://api.unsplash.com
//   - Auth base: https://unsplash.com
//   - Redirect URI: urn:ietf:wg:oauth:2.0:oob
//   - Scope: public+read_user+write_likes
//   - Page size: 10
//   - Request budget: 50 per hour (0 disables client-side limiting)
//   - Log file: ~/.local/share/shutter/shutter.log
//   - Token store: sealed file under ~/.local/share/shutter
//
// # TOML Format
//
//	api_base = "https://api.unsplash.com"
//	client_id = "..."
//	client_secret = "..."
//	per_page = 10
//	callback_addr = "127.0.0.1:8765"
//
//	[token_store]
//	backend = "file"   # file, redis or memory
//	dir = "~/.local/share/shutter"
//	redis_url = "redis://127.0.0.1:6379/0"
//
// When callback_addr is set, set redirect_uri to
// http://<callback_addr>/oauth/authorize/native and register the same URI
// with the photo service so the browser lands on shutter's loopback listener.
//
// # Error Handling
//
// Load returns errors for path expansion failures, unreadable files, TOML
// syntax errors and validation failures. A missing config file is not an
// error. LoadUnchecked skips validation for commands that only need paths.
package config
