package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/five82/shutter/internal/apierr"
	"github.com/five82/shutter/internal/flight"
	"github.com/five82/shutter/internal/photoapi"
	"github.com/five82/shutter/internal/tokenstore"
)

// ErrBusy is returned by FetchNextPage while a page fetch is already running.
var ErrBusy = errors.New("page fetch already in flight")

// TokenReader is the part of the token store the feed needs.
type TokenReader interface {
	Get(ctx context.Context) (string, error)
}

// Snapshot represents the latest feed state available to the UI.
type Snapshot struct {
	Photos              []photoapi.Photo
	Cursor              int
	HasCursor           bool
	Loading             bool
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive failed page fetches
}

// IsOffline returns true when several page fetches in a row have failed.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Synchronizer owns the ordered, de-duplicated photo collection and the
// pagination cursor.
type Synchronizer struct {
	api     photoapi.PhotoLister
	tokens  TokenReader
	perPage int
	logger  *slog.Logger
	gate    flight.Gate

	mu          sync.RWMutex
	photos      []photoapi.Photo
	index       map[string]int
	cursor      int
	hasCursor   bool
	lastUpdated time.Time
	lastErr     error
	failures    int

	subs   map[int]chan Event
	nextID int
}

// Options tune a Synchronizer.
type Options struct {
	PerPage int
	Logger  *slog.Logger
}

const defaultPerPage = 10

// NewSynchronizer returns an empty feed backed by api.
func NewSynchronizer(api photoapi.PhotoLister, tokens TokenReader, opts Options) *Synchronizer {
	perPage := opts.PerPage
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer{
		api:     api,
		tokens:  tokens,
		perPage: perPage,
		logger:  logger,
		index:   make(map[string]int),
		subs:    make(map[int]chan Event),
	}
}

// FetchNextPage requests the page after the cursor and merges it. It returns
// the photos this call appended, which may be empty when the whole page was
// already known. A call made while another fetch is running returns ErrBusy
// without issuing a request.
func (s *Synchronizer) FetchNextPage(ctx context.Context) ([]photoapi.Photo, error) {
	ticket, ok := s.gate.TryBegin(ctx)
	if !ok {
		return nil, ErrBusy
	}
	defer ticket.Done()

	s.mu.RLock()
	page := s.cursor + 1
	s.mu.RUnlock()

	token, err := s.tokens.Get(ticket.Context())
	if errors.Is(err, tokenstore.ErrNoToken) {
		return nil, apierr.Precondition("not signed in")
	}
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}

	s.logger.Debug("fetching feed page", "page", page, "per_page", s.perPage)
	incoming, err := s.api.FetchPhotos(ticket.Context(), token, page, s.perPage)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !ticket.Current() {
		s.logger.Debug("discarding stale feed page", "page", page)
		return nil, apierr.Cancelled("feed page")
	}
	if err != nil {
		if !apierr.IsCancelled(err) {
			s.lastErr = err
			s.lastUpdated = time.Now()
			s.failures++
			s.logger.Warn("feed page fetch failed", "page", page, "error", err, "consecutive_failures", s.failures)
			s.publishLocked(Event{Kind: EventFetchFailed, Page: page, Err: err})
		}
		return nil, err
	}

	added := s.mergeLocked(incoming)
	s.cursor = page
	s.hasCursor = true
	s.lastErr = nil
	s.lastUpdated = time.Now()
	s.failures = 0
	s.logger.Info("feed page merged", "page", page, "received", len(incoming), "added", len(added), "total", len(s.photos))
	s.publishLocked(Event{Kind: EventPageMerged, Page: page, Added: len(added)})
	return clonePhotos(added), nil
}

// mergeLocked appends every photo whose id is not yet present, preserving
// server order. Duplicates inside the page itself are dropped too.
func (s *Synchronizer) mergeLocked(incoming []photoapi.Photo) []photoapi.Photo {
	var added []photoapi.Photo
	for _, p := range incoming {
		if _, seen := s.index[p.ID]; seen {
			continue
		}
		s.index[p.ID] = len(s.photos)
		s.photos = append(s.photos, p)
		added = append(added, p)
	}
	return added
}

// Photos returns a copy of the collection in display order.
func (s *Synchronizer) Photos() []photoapi.Photo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clonePhotos(s.photos)
}

// Photo looks a single photo up by id.
func (s *Synchronizer) Photo(id string) (photoapi.Photo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return photoapi.Photo{}, false
	}
	return s.photos[i], true
}

// Len reports how many photos are loaded.
func (s *Synchronizer) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.photos)
}

// Cursor returns the last successfully loaded page. ok is false before the
// first page has been merged.
func (s *Synchronizer) Cursor() (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursor, s.hasCursor
}

// Loading reports whether a page fetch is running.
func (s *Synchronizer) Loading() bool {
	return s.gate.Busy()
}

// Snapshot returns a copy of the current feed state.
func (s *Synchronizer) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Photos:              clonePhotos(s.photos),
		Cursor:              s.cursor,
		HasCursor:           s.hasCursor,
		Loading:             s.gate.Busy(),
		LastUpdated:         s.lastUpdated,
		ConsecutiveFailures: s.failures,
	}
	if s.lastErr != nil {
		snap.LastError = fmt.Errorf("%w", s.lastErr)
	}
	return snap
}

// Reset empties the feed and cancels the fetch in flight. A fetch that
// completes afterwards is discarded.
func (s *Synchronizer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gate.Cancel()
	s.photos = nil
	s.index = make(map[string]int)
	s.cursor = 0
	s.hasCursor = false
	s.lastErr = nil
	s.lastUpdated = time.Time{}
	s.failures = 0
	s.logger.Info("feed reset")
	s.publishLocked(Event{Kind: EventReset})
}

// SetLiked writes the liked flag of one photo and returns the previous value.
// ok is false when the photo is not loaded. The like count follows the flag.
func (s *Synchronizer) SetLiked(id string, liked bool) (prev bool, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, found := s.index[id]
	if !found {
		return false, false
	}
	p := &s.photos[i]
	prev = p.Liked
	if prev == liked {
		return prev, true
	}
	p.Liked = liked
	if liked {
		p.Likes++
	} else if p.Likes > 0 {
		p.Likes--
	}
	s.publishLocked(Event{Kind: EventLikeChanged, PhotoID: id, Liked: liked})
	return prev, true
}

func clonePhotos(items []photoapi.Photo) []photoapi.Photo {
	if len(items) == 0 {
		return nil
	}
	dup := make([]photoapi.Photo, len(items))
	copy(dup, items)
	return dup
}
