// Package photoapi provides an HTTP client for the photo service's JSON API.
//
// # Overview
//
// The client covers the four endpoints shutter needs once a user is signed
// in. The token exchange itself lives in package oauth because it targets the
// authorization host rather than the API host.
//
//   - GET /photos?page=N&per_page=M: one page of the editorial feed
//   - POST /photos/{id}/like and DELETE /photos/{id}/like: like and unlike
//   - GET /me: the signed-in user's profile
//   - GET /users/{username}: public user record (avatar URLs)
//
// # Request Handling
//
// All requests:
//   - Carry "Authorization: Bearer <token>"; an empty token is refused
//     before any I/O with apierr.ErrPrecondition
//   - Set Accept: application/json and Accept-Version: v1
//   - Include User-Agent: shutter/0.1 and a fresh X-Request-ID
//   - Wait on a client-side rate limiter sized from the hourly request budget
//   - Inherit timeouts from the http.Client (15 seconds by default)
//
// # Error Handling
//
// Every failure is classified with package apierr:
//
//   - Transport failures and timeouts: apierr.ErrNetwork
//   - A cancelled context: apierr.ErrCancelled
//   - Any status outside 200-299: *apierr.StatusError carrying the code
//   - Malformed JSON or records without an id: apierr.ErrDecode
//
// # Design Rationale
//
// The client never retries and keeps no state besides the limiter. Single
// flight, staleness and merging belong to the feed, likes and oauth packages.
package photoapi
