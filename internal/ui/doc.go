// Package ui provides the terminal user interface for shutter.
//
// # Architecture Overview
//
// The UI is a Bubble Tea program. Model holds everything the screen shows and
// never calls the network itself: every request runs as a tea.Cmd against the
// collaborators passed in Options, and its outcome comes back as a message.
//
// # Views
//
//   - Login: authorize URL, a text input for the code or callback URL, and
//     automatic pickup of codes from the loopback listener
//   - Feed: the photo list with like markers; selecting the last row loads
//     the next page
//   - Detail: full-size URL, dimensions, date, description of one photo
//   - Profile: name, @login, bio and avatar URL, with sign out
//
// # Event Flow
//
//  1. Run builds the Model, subscribes to feed events and starts the program
//  2. A signed-in start runs Options.Bootstrap; otherwise the Login view waits
//  3. Feed events and command results refresh the model from feed.Snapshot
//  4. Failures surface as a banner: page failures stay until a retry
//     succeeds, like failures fade after BannerTTL
//
// # Key Bindings
//
//   - j/k, g/G, pgup/pgdown: Move through the feed
//   - enter: Photo detail
//   - l or Space: Like or unlike the selected photo
//   - r: Retry the last failed load
//   - f/p: Feed or profile view
//   - L: Sign out
//   - T: Cycle theme
//   - ?: Help
//   - q or Ctrl+C: Exit
package ui
