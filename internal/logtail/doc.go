// Package logtail reads and renders the tail of shutter's log file.
//
// # Overview
//
// shutter writes structured JSON records through log/slog while the TUI owns
// the terminal. The `shutter logs` command uses this package to show the
// newest records in a readable form.
//
// # Reading Log Files
//
// Read extracts the last maxLines lines with a ring buffer:
//
//   - Scans the file sequentially (one pass)
//   - Uses O(maxLines) memory, not O(file size)
//   - Returns lines in chronological order
//
// A missing file is not an error; it yields no lines. A non-positive maxLines
// returns the whole file.
//
// # Formatting
//
// Parse decodes one slog JSON record into an Entry. FormatLine renders it as
//
//	2025-10-08 21:01:05 WARN – feed page fetch failed error=... page=3
//
// with attributes sorted by key. ColorizeLine adds lipgloss colors per level.
// Lines that are not JSON objects (a panic trace, say) pass through as-is.
package logtail
