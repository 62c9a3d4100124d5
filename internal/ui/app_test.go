package ui

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/shutter/internal/apierr"
	"github.com/five82/shutter/internal/feed"
	"github.com/five82/shutter/internal/likes"
	"github.com/five82/shutter/internal/photoapi"
	"github.com/five82/shutter/internal/prefs"
	"github.com/five82/shutter/internal/profile"
	"github.com/five82/shutter/internal/tokenstore"
)

type pagedLister struct {
	mu    sync.Mutex
	pages map[int][]photoapi.Photo
	errs  map[int]error
}

func (l *pagedLister) FetchPhotos(_ context.Context, _ string, page, _ int) ([]photoapi.Photo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.errs[page]; err != nil {
		return nil, err
	}
	return l.pages[page], nil
}

type stubLiker struct{ err error }

func (s stubLiker) SetLike(context.Context, string, string, bool) error { return s.err }

type stubExchanger struct {
	mu    sync.Mutex
	codes []string
	err   error
}

func (s *stubExchanger) Exchange(_ context.Context, code string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes = append(s.codes, code)
	if s.err != nil {
		return "", s.err
	}
	return "token", nil
}

func (s *stubExchanger) Cancel() {}

type stubSession struct{ calls int }

func (s *stubSession) Logout(context.Context) error {
	s.calls++
	return nil
}

type stubProfiles struct{}

func (stubProfiles) Load(context.Context) (profile.Profile, error) {
	return profile.Profile{Username: "ann", Name: "Ann", LoginName: "@ann"}, nil
}

func (stubProfiles) Current() (profile.Profile, bool) { return profile.Profile{}, false }

func photos(ids ...string) []photoapi.Photo {
	out := make([]photoapi.Photo, len(ids))
	for i, id := range ids {
		out[i] = photoapi.Photo{ID: id, Likes: 1}
	}
	return out
}

type harness struct {
	lister *pagedLister
	feed   *feed.Synchronizer
	tokens *tokenstore.MemoryStore
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	tokens := &tokenstore.MemoryStore{}
	if err := tokens.Set(context.Background(), "tok"); err != nil {
		t.Fatalf("set token: %v", err)
	}
	lister := &pagedLister{
		pages: map[int][]photoapi.Photo{1: photos("a", "b"), 2: photos("c", "d")},
		errs:  map[int]error{},
	}
	return &harness{
		lister: lister,
		feed:   feed.NewSynchronizer(lister, tokens, feed.Options{}),
		tokens: tokens,
	}
}

func (h *harness) options(t *testing.T) Options {
	return Options{
		Feed:      h.feed,
		Likes:     likes.NewCoordinator(stubLiker{}, h.tokens, nil),
		Profile:   stubProfiles{},
		SignedIn:  true,
		PrefsPath: filepath.Join(t.TempDir(), "prefs.toml"),
	}
}

func update(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func press(m Model, s string) (Model, tea.Cmd) {
	var msg tea.KeyMsg
	switch s {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
	return update(m, msg)
}

// run executes cmd and feeds its message back into the model.
func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	m, _ = update(m, cmd())
	return m
}

func ready(m Model) Model {
	m, _ = update(m, tea.WindowSizeMsg{Width: 120, Height: 30})
	return m
}

// bootstrapped returns a model showing the first page.
func bootstrapped(t *testing.T, opts Options) Model {
	t.Helper()
	m := ready(New(opts))
	m = run(t, m, bootstrapCmd(m.ctx, m.bootstrap))
	if m.bootstrapping {
		t.Fatal("still bootstrapping")
	}
	return m
}

func TestNew_StartRoute(t *testing.T) {
	h := newHarness(t)
	opts := h.options(t)

	m := New(opts)
	if m.currentView != ViewFeed || !m.bootstrapping {
		t.Fatalf("signed in start = %v bootstrapping=%v, want feed and bootstrapping", m.currentView, m.bootstrapping)
	}

	opts.SignedIn = false
	m = New(opts)
	if m.currentView != ViewLogin {
		t.Fatalf("signed out start = %v, want login", m.currentView)
	}
}

func TestFeed_BootstrapLoadsFirstPage(t *testing.T) {
	h := newHarness(t)
	m := bootstrapped(t, h.options(t))

	if got := len(m.snapshot.Photos); got != 2 {
		t.Fatalf("photos = %d, want 2", got)
	}
	if !strings.Contains(m.View(), "2 photos") {
		t.Fatal("header does not count the loaded photos")
	}
}

func TestFeed_LastRowLoadsNextPage(t *testing.T) {
	h := newHarness(t)
	m := bootstrapped(t, h.options(t))

	m, cmd := press(m, "j")
	if m.selectedRow != 1 {
		t.Fatalf("selectedRow = %d, want 1", m.selectedRow)
	}
	if !m.loadingPage {
		t.Fatal("reaching the last row should start a page load")
	}
	m = run(t, m, cmd)

	if m.loadingPage {
		t.Fatal("loadingPage still set after the page arrived")
	}
	if got := len(m.snapshot.Photos); got != 4 {
		t.Fatalf("photos = %d, want 4", got)
	}
	if m.snapshot.Cursor != 2 {
		t.Fatalf("cursor = %d, want 2", m.snapshot.Cursor)
	}
}

func TestFeed_FailedPageShowsRetryBanner(t *testing.T) {
	h := newHarness(t)
	h.lister.errs[2] = &apierr.StatusError{Code: 500}
	m := bootstrapped(t, h.options(t))

	m, cmd := press(m, "G")
	m = run(t, m, cmd)
	if !strings.Contains(m.banner, "retry") {
		t.Fatalf("banner = %q, want a retry hint", m.banner)
	}

	// Sitting on the last row does not hammer the server after a failure.
	if _, cmd := press(m, "j"); cmd != nil {
		t.Fatal("expected no automatic refetch after a failure")
	}

	h.lister.mu.Lock()
	delete(h.lister.errs, 2)
	h.lister.mu.Unlock()

	m, cmd = press(m, "r")
	m = run(t, m, cmd)
	if m.banner != "" {
		t.Fatalf("banner = %q, want cleared after a successful retry", m.banner)
	}
	if got := len(m.snapshot.Photos); got != 4 {
		t.Fatalf("photos = %d, want 4", got)
	}
}

func TestLike_FailureRollsBackWithBanner(t *testing.T) {
	h := newHarness(t)
	opts := h.options(t)
	opts.Likes = likes.NewCoordinator(stubLiker{err: &apierr.StatusError{Code: 500}}, h.tokens, nil)
	m := bootstrapped(t, opts)

	m, cmd := press(m, "l")
	if !m.likePending["a"] {
		t.Fatal("like should be pending")
	}
	m = run(t, m, cmd)

	if m.likePending["a"] {
		t.Fatal("like still pending after the result")
	}
	if m.snapshot.Photos[0].Liked {
		t.Fatal("failed like was not rolled back")
	}
	if !strings.Contains(m.banner, "Couldn't like photo") {
		t.Fatalf("banner = %q", m.banner)
	}
}

func TestLike_SuccessKeepsFlag(t *testing.T) {
	h := newHarness(t)
	m := bootstrapped(t, h.options(t))

	m, cmd := press(m, "l")
	m = run(t, m, cmd)

	p := m.snapshot.Photos[0]
	if !p.Liked || p.Likes != 2 {
		t.Fatalf("photo = %+v, want liked with 2 likes", p)
	}
	if m.banner != "" {
		t.Fatalf("banner = %q, want none", m.banner)
	}
}

func TestLogin_PastedCodeSignsIn(t *testing.T) {
	h := newHarness(t)
	ex := &stubExchanger{}
	opts := h.options(t)
	opts.SignedIn = false
	opts.Exchanger = ex
	m := ready(New(opts))

	m.codeInput.SetValue("http://localhost/oauth/authorize/native?code=abc123")
	m, cmd := press(m, "enter")
	if !m.exchanging {
		t.Fatal("enter should start the exchange")
	}
	m = run(t, m, cmd)

	if len(ex.codes) != 1 || ex.codes[0] != "abc123" {
		t.Fatalf("exchanged codes = %v, want [abc123]", ex.codes)
	}
	if m.currentView != ViewFeed || !m.bootstrapping {
		t.Fatalf("view = %v bootstrapping=%v, want feed and bootstrapping", m.currentView, m.bootstrapping)
	}
}

func TestLogin_RejectsGarbage(t *testing.T) {
	h := newHarness(t)
	ex := &stubExchanger{}
	opts := h.options(t)
	opts.SignedIn = false
	opts.Exchanger = ex
	m := ready(New(opts))

	m.codeInput.SetValue("https://example.com/elsewhere?code=abc")
	m, cmd := press(m, "enter")
	if cmd != nil || m.exchanging {
		t.Fatal("a foreign callback URL must not be exchanged")
	}
	if m.loginErr == "" {
		t.Fatal("expected an error message")
	}
}

func TestLogin_FailedExchangeStaysOnLogin(t *testing.T) {
	h := newHarness(t)
	opts := h.options(t)
	opts.SignedIn = false
	opts.Exchanger = &stubExchanger{err: &apierr.StatusError{Code: 401}}
	m := ready(New(opts))

	m.codeInput.SetValue("abc123")
	m, cmd := press(m, "enter")
	m = run(t, m, cmd)

	if m.currentView != ViewLogin {
		t.Fatalf("view = %v, want login", m.currentView)
	}
	if m.exchanging || !strings.Contains(m.loginErr, "401") {
		t.Fatalf("exchanging=%v loginErr=%q", m.exchanging, m.loginErr)
	}
}

func TestLogin_CallbackCodeSignsIn(t *testing.T) {
	h := newHarness(t)
	ex := &stubExchanger{}
	codes := make(chan string, 1)
	opts := h.options(t)
	opts.SignedIn = false
	opts.Exchanger = ex
	opts.Callback = codes
	m := ready(New(opts))

	codes <- "fromcallback"
	m = run(t, m, waitForCallback(codes))
	if !m.exchanging {
		t.Fatal("callback code should start the exchange")
	}
}

func TestBootstrap_NotSignedInShowsLogin(t *testing.T) {
	h := newHarness(t)
	opts := h.options(t)
	opts.Bootstrap = func(context.Context) error { return apierr.Precondition("not signed in") }
	m := bootstrapped(t, opts)

	if m.currentView != ViewLogin {
		t.Fatalf("view = %v, want login", m.currentView)
	}
}

func TestBootstrap_CancelledIsQuiet(t *testing.T) {
	h := newHarness(t)
	opts := h.options(t)
	opts.Bootstrap = func(context.Context) error { return apierr.Cancelled("feed page") }
	m := bootstrapped(t, opts)

	if m.banner != "" {
		t.Fatalf("banner = %q, want none for a cancelled load", m.banner)
	}
}

func TestLogout_ConfirmReturnsToLogin(t *testing.T) {
	h := newHarness(t)
	sess := &stubSession{}
	opts := h.options(t)
	opts.Session = sess
	opts.ConfirmLogout = true
	m := bootstrapped(t, opts)

	m, cmd := press(m, "L")
	if cmd != nil || m.modal == nil {
		t.Fatal("logout should ask for confirmation first")
	}
	m, cmd = press(m, "y")
	if m.modal != nil {
		t.Fatal("modal should close on confirm")
	}
	m = run(t, m, cmd)

	if sess.calls != 1 {
		t.Fatalf("logout calls = %d, want 1", sess.calls)
	}
	if m.currentView != ViewLogin {
		t.Fatalf("view = %v, want login", m.currentView)
	}
}

func TestLogout_CancelKeepsSession(t *testing.T) {
	h := newHarness(t)
	sess := &stubSession{}
	opts := h.options(t)
	opts.Session = sess
	opts.ConfirmLogout = true
	m := bootstrapped(t, opts)

	m, _ = press(m, "L")
	m, cmd := press(m, "n")
	if cmd != nil || m.modal != nil || sess.calls != 0 {
		t.Fatal("cancelled logout should do nothing")
	}
	if m.currentView != ViewFeed {
		t.Fatalf("view = %v, want feed", m.currentView)
	}
}

func TestProfile_LoadsOnOpen(t *testing.T) {
	h := newHarness(t)
	m := bootstrapped(t, h.options(t))

	m, cmd := press(m, "p")
	if m.currentView != ViewProfile || !m.profileLoading {
		t.Fatal("opening the profile should load it")
	}
	m = run(t, m, cmd)
	if m.profile == nil || m.profile.LoginName != "@ann" {
		t.Fatalf("profile = %+v", m.profile)
	}
	if !strings.Contains(m.View(), "@ann") {
		t.Fatal("profile view does not show the login name")
	}
}

func TestCycleTheme_PersistsPreference(t *testing.T) {
	h := newHarness(t)
	opts := h.options(t)
	m := bootstrapped(t, opts)

	m, _ = press(m, "T")
	if m.theme.Name != "Slate" {
		t.Fatalf("theme = %q, want Slate", m.theme.Name)
	}
	p, err := prefs.Load(opts.PrefsPath)
	if err != nil {
		t.Fatalf("prefs.Load: %v", err)
	}
	if p.Theme != "Slate" {
		t.Fatalf("saved theme = %q, want Slate", p.Theme)
	}
}

func TestDescribeError(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&apierr.StatusError{Code: 401}, "session expired (401)"},
		{&apierr.StatusError{Code: 502}, "server returned 502"},
		{apierr.Transport(context.Background(), errors.New("dial tcp")), "network unavailable"},
		{apierr.Precondition("not signed in"), "not signed in"},
	}
	for _, tc := range cases {
		if got := describeError(tc.err); got != tc.want {
			t.Errorf("describeError(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
