package feed

import "sync"

// EventKind identifies what changed in the feed.
type EventKind int

const (
	EventPageMerged EventKind = iota + 1
	EventReset
	EventLikeChanged
	EventFetchFailed
)

func (k EventKind) String() string {
	switch k {
	case EventPageMerged:
		return "page_merged"
	case EventReset:
		return "reset"
	case EventLikeChanged:
		return "like_changed"
	case EventFetchFailed:
		return "fetch_failed"
	default:
		return "unknown"
	}
}

// Event describes one feed change. Fields not relevant to Kind are zero.
type Event struct {
	Kind    EventKind
	Page    int
	Added   int
	PhotoID string
	Liked   bool
	Err     error
}

const subscriberBuffer = 32

// Subscribe registers an observer. Events are dropped for a subscriber whose
// buffer is full. The returned function unsubscribes and closes the channel;
// calling it more than once is harmless.
func (s *Synchronizer) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}

func (s *Synchronizer) publishLocked(ev Event) {
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			s.logger.Debug("dropping feed event for slow subscriber", "kind", ev.Kind.String())
		}
	}
}
