package oauth

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/shutter/internal/apierr"
	"github.com/five82/shutter/internal/tokenstore"
)

type countingStore struct {
	tokenstore.MemoryStore
	sets atomic.Int32
}

func (c *countingStore) Set(ctx context.Context, token string) error {
	c.sets.Add(1)
	return c.MemoryStore.Set(ctx, token)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func jsonResponse(r *http.Request, status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    r,
	}
}

func newExchanger(t *testing.T, store tokenstore.Store, tokenURL string, client *http.Client) *Exchanger {
	t.Helper()
	ex, err := NewExchanger(store, Options{
		ClientID:     "id",
		ClientSecret: "secret",
		RedirectURI:  "urn:ietf:wg:oauth:2.0:oob",
		TokenURL:     tokenURL,
		HTTPClient:   client,
	})
	require.NoError(t, err)
	return ex
}

func TestNewExchanger_RequiresCredentials(t *testing.T) {
	_, err := NewExchanger(&tokenstore.MemoryStore{}, Options{ClientID: "id", TokenURL: "http://x"})
	assert.Error(t, err)
	_, err = NewExchanger(&tokenstore.MemoryStore{}, Options{ClientID: "id", ClientSecret: "s"})
	assert.Error(t, err)
	_, err = NewExchanger(nil, Options{ClientID: "id", ClientSecret: "s", TokenURL: "http://x"})
	assert.Error(t, err)
}

func TestExchange_PostsFormAndStoresToken(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/oauth/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "id", r.PostForm.Get("client_id"))
		assert.Equal(t, "secret", r.PostForm.Get("client_secret"))
		assert.Equal(t, "urn:ietf:wg:oauth:2.0:oob", r.PostForm.Get("redirect_uri"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"tok","token_type":"bearer","scope":"public"}`)
	}))
	t.Cleanup(server.Close)

	store := &countingStore{}
	ex := newExchanger(t, store, server.URL+"/oauth/token", nil)

	tok, err := ex.Exchange(context.Background(), " the-code ")
	require.NoError(t, err)
	assert.Equal(t, "tok", tok)
	assert.EqualValues(t, 1, calls.Load())
	assert.EqualValues(t, 1, store.sets.Load())

	stored, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok", stored)
}

func TestExchange_EmptyCodeIsPrecondition(t *testing.T) {
	var calls atomic.Int32
	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		calls.Add(1)
		return jsonResponse(r, 200, `{"access_token":"tok"}`), nil
	})}
	ex := newExchanger(t, &tokenstore.MemoryStore{}, "http://auth.test/oauth/token", client)

	_, err := ex.Exchange(context.Background(), "  ")
	assert.ErrorIs(t, err, apierr.ErrPrecondition)
	assert.Zero(t, calls.Load())
}

func TestExchange_ErrorClassification(t *testing.T) {
	tests := []struct {
		name string
		rt   roundTripFunc
		want error
	}{
		{
			name: "status",
			rt: func(r *http.Request) (*http.Response, error) {
				return jsonResponse(r, http.StatusUnauthorized, `{"error":"invalid_grant"}`), nil
			},
			want: apierr.ErrHTTPStatus,
		},
		{
			name: "malformed body",
			rt: func(r *http.Request) (*http.Response, error) {
				return jsonResponse(r, 200, `{nope`), nil
			},
			want: apierr.ErrDecode,
		},
		{
			name: "missing access token",
			rt: func(r *http.Request) (*http.Response, error) {
				return jsonResponse(r, 200, `{"token_type":"bearer"}`), nil
			},
			want: apierr.ErrDecode,
		},
		{
			name: "transport",
			rt: func(r *http.Request) (*http.Response, error) {
				return nil, errors.New("connection refused")
			},
			want: apierr.ErrNetwork,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &countingStore{}
			ex := newExchanger(t, store, "http://auth.test/oauth/token", &http.Client{Transport: tt.rt})
			_, err := ex.Exchange(context.Background(), "code")
			assert.ErrorIs(t, err, tt.want)
			assert.Zero(t, store.sets.Load(), "failed exchange must not touch the store")
		})
	}

	ex := newExchanger(t, &tokenstore.MemoryStore{}, "http://auth.test/oauth/token", &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return jsonResponse(r, http.StatusBadRequest, `{}`), nil
		}),
	})
	_, err := ex.Exchange(context.Background(), "code")
	code, ok := apierr.StatusCode(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, code)
}

// A superseded exchange reports cancelled even when its response carries a
// valid token, and only the newest token reaches the store.
func TestExchange_StaleExchangeIsRejected(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})

	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		_ = r.ParseForm()
		if r.PostForm.Get("code") == "c1" {
			close(entered)
			<-release
			return jsonResponse(r, 200, `{"access_token":"tok1","token_type":"bearer"}`), nil
		}
		return jsonResponse(r, 200, `{"access_token":"tok2","token_type":"bearer"}`), nil
	})}

	store := &countingStore{}
	ex := newExchanger(t, store, "http://auth.test/oauth/token", client)

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = ex.Exchange(context.Background(), "c1")
	}()
	<-entered

	tok, err := ex.Exchange(context.Background(), "c2")
	require.NoError(t, err)
	assert.Equal(t, "tok2", tok)

	close(release)
	wg.Wait()
	assert.ErrorIs(t, firstErr, apierr.ErrCancelled)

	stored, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok2", stored)
	assert.EqualValues(t, 1, store.sets.Load())
}

func TestExchange_CancelAbortsInFlight(t *testing.T) {
	entered := make(chan struct{})
	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		close(entered)
		<-r.Context().Done()
		return nil, r.Context().Err()
	})}
	store := &countingStore{}
	ex := newExchanger(t, store, "http://auth.test/oauth/token", client)

	done := make(chan error, 1)
	go func() {
		_, err := ex.Exchange(context.Background(), "code")
		done <- err
	}()
	<-entered
	ex.Cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, apierr.ErrCancelled)
	case <-time.After(2 * time.Second):
		t.Fatal("exchange did not return after Cancel")
	}
	assert.Zero(t, store.sets.Load())
}

type stallingStore struct {
	tokenstore.MemoryStore
	hadDeadline atomic.Bool
}

func (s *stallingStore) Set(ctx context.Context, token string) error {
	_, ok := ctx.Deadline()
	s.hadDeadline.Store(ok)
	<-ctx.Done()
	return ctx.Err()
}

func TestExchange_StoreWriteIsBounded(t *testing.T) {
	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return jsonResponse(r, http.StatusOK, `{"access_token":"tok","token_type":"bearer"}`), nil
	})}
	store := &stallingStore{}
	ex, err := NewExchanger(store, Options{
		ClientID:     "id",
		ClientSecret: "secret",
		TokenURL:     "http://auth.test/oauth/token",
		HTTPClient:   client,
		StoreTimeout: 50 * time.Millisecond,
	})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := ex.Exchange(context.Background(), "code")
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("exchange hung on a stalled token store")
	}
	assert.True(t, store.hadDeadline.Load())

	cancelled := make(chan struct{})
	go func() {
		ex.Cancel()
		close(cancelled)
	}()
	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("Cancel blocked after the store write timed out")
	}
}

func TestSetRedirectURI(t *testing.T) {
	var got string
	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		_ = r.ParseForm()
		got = r.PostForm.Get("redirect_uri")
		return jsonResponse(r, 200, `{"access_token":"tok"}`), nil
	})}
	ex := newExchanger(t, &tokenstore.MemoryStore{}, "http://auth.test/oauth/token", client)
	ex.SetRedirectURI("http://127.0.0.1:8765/oauth/authorize/native")
	assert.Equal(t, "http://127.0.0.1:8765/oauth/authorize/native", ex.RedirectURI())

	_, err := ex.Exchange(context.Background(), "code")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8765/oauth/authorize/native", got)
}
