package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/shutter/internal/tokenstore"
)

type recorder struct {
	events *[]string
	name   string
}

func (r recorder) Cancel() { *r.events = append(*r.events, "cancel "+r.name) }
func (r recorder) Reset()  { *r.events = append(*r.events, "reset "+r.name) }
func (r recorder) Clear()  { *r.events = append(*r.events, "clear "+r.name) }

type recordingStore struct {
	tokenstore.MemoryStore
	events *[]string
	err    error
}

func (s *recordingStore) Set(ctx context.Context, token string) error {
	*s.events = append(*s.events, "set token")
	if s.err != nil {
		return s.err
	}
	return s.MemoryStore.Set(ctx, token)
}

func TestLogout_CancelsThenClears(t *testing.T) {
	var events []string
	store := &recordingStore{events: &events}
	require.NoError(t, store.MemoryStore.Set(context.Background(), "tok"))

	s := &Session{
		Tokens:   store,
		Feed:     recorder{&events, "feed"},
		Profile:  recorder{&events, "profile"},
		Inflight: []Canceller{recorder{&events, "likes"}, recorder{&events, "exchange"}},
	}
	require.NoError(t, s.Logout(context.Background()))

	assert.Equal(t, []string{
		"cancel likes",
		"cancel exchange",
		"set token",
		"clear profile",
		"reset feed",
	}, events)

	has, err := tokenstore.Has(context.Background(), store)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestLogout_StoreFailureStillClearsState(t *testing.T) {
	var events []string
	store := &recordingStore{events: &events, err: errors.New("disk full")}
	s := &Session{Tokens: store, Feed: recorder{&events, "feed"}, Profile: recorder{&events, "profile"}}

	err := s.Logout(context.Background())
	assert.ErrorContains(t, err, "disk full")
	assert.Contains(t, events, "reset feed")
	assert.Contains(t, events, "clear profile")
}
