package ui

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/shutter/internal/apierr"
	"github.com/five82/shutter/internal/feed"
	"github.com/five82/shutter/internal/likes"
	"github.com/five82/shutter/internal/photoapi"
	"github.com/five82/shutter/internal/prefs"
	"github.com/five82/shutter/internal/profile"
)

// View represents the current active view.
type View int

const (
	ViewLogin View = iota
	ViewFeed
	ViewDetail
	ViewProfile
	ViewLogs
)

func (v View) String() string {
	switch v {
	case ViewLogin:
		return "Sign in"
	case ViewFeed:
		return "Feed"
	case ViewDetail:
		return "Photo"
	case ViewProfile:
		return "Profile"
	case ViewLogs:
		return "Logs"
	default:
		return "?"
	}
}

// FeedSource is the photo feed the UI renders. *feed.Synchronizer satisfies it.
type FeedSource interface {
	likes.Flagger
	FetchNextPage(ctx context.Context) ([]photoapi.Photo, error)
	Snapshot() feed.Snapshot
	Subscribe() (<-chan feed.Event, func())
}

// LikeToggler flips a photo's like with rollback on failure.
type LikeToggler interface {
	Toggle(ctx context.Context, f likes.Flagger, id string) (bool, error)
}

// ProfileSource loads the signed-in user's profile.
type ProfileSource interface {
	Load(ctx context.Context) (profile.Profile, error)
	Current() (profile.Profile, bool)
}

// CodeExchanger trades an authorization code for a stored token.
type CodeExchanger interface {
	Exchange(ctx context.Context, code string) (string, error)
	Cancel()
}

// SessionEnder signs the user out.
type SessionEnder interface {
	Logout(ctx context.Context) error
}

// Options configures the UI.
type Options struct {
	Context   context.Context
	Feed      FeedSource
	Likes     LikeToggler
	Profile   ProfileSource
	Exchanger CodeExchanger
	Session   SessionEnder

	// Bootstrap performs the first load after sign-in, with whatever retry
	// policy the caller wants. Nil falls back to a single page fetch.
	Bootstrap func(ctx context.Context) error

	// AuthorizeURL is shown on the login view.
	AuthorizeURL string
	// Callback delivers codes from the loopback listener. Nil disables it.
	Callback <-chan string

	// LogPath is the file the log view tails.
	LogPath string

	SignedIn      bool
	ThemeName     string
	PrefsPath     string
	ConfirmLogout bool
	Logger        *slog.Logger
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx           context.Context
	logger        *slog.Logger
	keys          keyMap
	feed          FeedSource
	likes         LikeToggler
	profiles      ProfileSource
	exchanger     CodeExchanger
	session       SessionEnder
	bootstrap     func(context.Context) error
	authorizeURL  string
	callback      <-chan string
	prefsPath     string
	confirmLogout bool

	// UI state
	theme       Theme
	currentView View
	width       int
	height      int
	ready       bool
	spinner     spinner.Model
	showHelp    bool
	modal       Modal

	// Feed state
	events        <-chan feed.Event
	unsubscribe   func()
	snapshot      feed.Snapshot
	selectedRow   int
	offset        int
	loadingPage   bool
	bootstrapping bool
	likePending   map[string]bool

	// Detail state
	detailViewport viewport.Model

	// Log state
	logViewport viewport.Model
	logState    logState

	// Profile state
	profile        *profile.Profile
	profileLoading bool
	profileErr     error

	// Login state
	codeInput     textinput.Model
	exchanging    bool
	loginErr      string
	callbackArmed bool

	// Banner
	banner   string
	bannerID int
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	themeName := opts.ThemeName
	if themeName == "" {
		themeName = prefs.Defaults().Theme
	}
	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	theme := GetTheme(themeName)

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Accent))

	input := textinput.New()
	input.Placeholder = "paste the code or the full callback URL"
	input.CharLimit = 2048
	input.Prompt = "> "

	m := Model{
		ctx:           ctx,
		logger:        logger,
		keys:          DefaultKeyMap(),
		feed:          opts.Feed,
		likes:         opts.Likes,
		profiles:      opts.Profile,
		exchanger:     opts.Exchanger,
		session:       opts.Session,
		bootstrap:     opts.Bootstrap,
		authorizeURL:  opts.AuthorizeURL,
		callback:      opts.Callback,
		prefsPath:     prefsPath,
		confirmLogout: opts.ConfirmLogout,
		theme:         theme,
		spinner:       sp,
		codeInput:     input,
		likePending:   make(map[string]bool),
		currentView:   ViewLogin,
		logState:      logState{path: opts.LogPath, follow: true},
	}
	if m.bootstrap == nil && m.feed != nil {
		src := m.feed
		m.bootstrap = func(ctx context.Context) error {
			_, err := src.FetchNextPage(ctx)
			return err
		}
	}
	if m.feed != nil {
		m.events, m.unsubscribe = m.feed.Subscribe()
		m.snapshot = m.feed.Snapshot()
	}
	if opts.SignedIn {
		m.currentView = ViewFeed
		m.bootstrapping = true
	} else {
		m.codeInput.Focus()
		// Init arms the first callback wait.
		m.callbackArmed = m.callback != nil
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick}
	if m.events != nil {
		cmds = append(cmds, waitForFeedEvent(m.events))
	}
	switch m.currentView {
	case ViewLogin:
		cmds = append(cmds, textinput.Blink)
		if m.callback != nil {
			cmds = append(cmds, waitForCallback(m.callback))
		}
	default:
		if m.bootstrap != nil {
			cmds = append(cmds, bootstrapCmd(m.ctx, m.bootstrap))
		}
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.codeInput.Width = maxInt(20, minInt(msg.Width-8, 100))
		if !m.ready {
			m.detailViewport = viewport.New(msg.Width, m.contentHeight())
		}
		m.ready = true
		m.detailViewport.Width = msg.Width
		m.detailViewport.Height = m.contentHeight()
		m.ensureVisible()
		m.updateDetailViewport()
		m.updateLogViewport()
		return m, nil

	case logTickMsg:
		return m.handleLogTick()

	case logLinesMsg:
		return m.handleLogLines(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case feedEventMsg:
		m.refreshFeed()
		if msg.Kind == feed.EventReset {
			m.selectedRow, m.offset = 0, 0
		}
		return m, waitForFeedEvent(m.events)

	case feedClosedMsg:
		m.events = nil
		return m, nil

	case pageMsg:
		m.loadingPage = false
		m.refreshFeed()
		return m.handleFetchResult(msg.err)

	case bootstrapMsg:
		m.bootstrapping = false
		m.refreshFeed()
		if p, ok := m.currentProfile(); ok {
			m.profile = &p
		}
		return m.handleFetchResult(msg.err)

	case likeMsg:
		delete(m.likePending, msg.id)
		m.refreshFeed()
		if msg.err != nil && !errors.Is(msg.err, likes.ErrSuperseded) {
			verb := "like"
			if !msg.liked {
				verb = "unlike"
			}
			m.logger.Warn("like toggle failed", "photo", msg.id, "error", msg.err)
			return m, m.setBanner("Couldn't "+verb+" photo: "+describeError(msg.err), BannerTTL)
		}
		return m, nil

	case profileMsg:
		m.profileLoading = false
		if msg.err != nil {
			if apierr.IsCancelled(msg.err) {
				return m, nil
			}
			m.profileErr = msg.err
			return m, nil
		}
		p := msg.profile
		m.profile = &p
		m.profileErr = nil
		return m, nil

	case callbackMsg:
		m.callbackArmed = false
		if !msg.ok {
			m.callback = nil
			return m, nil
		}
		if m.currentView != ViewLogin {
			return m, nil
		}
		m.logger.Info("authorization code received from callback")
		return m, m.startExchange(msg.code)

	case exchangeMsg:
		return m.handleExchangeResult(msg.err)

	case logoutMsg:
		m.profile = nil
		m.profileErr = nil
		m.likePending = make(map[string]bool)
		m.refreshFeed()
		m.selectedRow, m.offset = 0, 0
		m.currentView = ViewLogin
		m.loginErr = ""
		m.codeInput.Reset()
		cmds := []tea.Cmd{m.codeInput.Focus(), m.armCallback()}
		if msg.err != nil {
			cmds = append(cmds, m.setBanner("Sign out incomplete: "+describeError(msg.err), BannerTTL))
		} else {
			m.clearBanner()
		}
		return m, tea.Batch(cmds...)

	case bannerExpiredMsg:
		if msg.id == m.bannerID {
			m.clearBanner()
		}
		return m, nil
	}

	if m.currentView == ViewLogin {
		var cmd tea.Cmd
		m.codeInput, cmd = m.codeInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.modal != nil {
		return m.modal.View(m.theme, m.width, m.height)
	}
	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	if m.modal != nil {
		modal, cmd, closed := m.modal.Update(msg, m.keys)
		if closed {
			m.modal = nil
		} else {
			m.modal = modal
		}
		return m, cmd
	}

	if m.currentView == ViewLogin {
		return m.handleLoginKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.cycleTheme()
		return m, nil

	case key.Matches(msg, m.keys.ViewFeed):
		m.currentView = ViewFeed
		return m, nil

	case key.Matches(msg, m.keys.ViewProfile):
		m.currentView = ViewProfile
		return m, m.ensureProfile(false)

	case key.Matches(msg, m.keys.ViewLogs):
		return m, m.openLogs()

	case key.Matches(msg, m.keys.Logout):
		return m.requestLogout()

	case key.Matches(msg, m.keys.Back):
		m.currentView = ViewFeed
		return m, nil
	}

	switch m.currentView {
	case ViewFeed:
		return m.handleFeedKey(msg)
	case ViewDetail:
		return m.handleDetailKey(msg)
	case ViewProfile:
		return m.handleProfileKey(msg)
	case ViewLogs:
		return m.handleLogsKey(msg)
	}
	return m, nil
}

func (m Model) handleProfileKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Retry) {
		return m, m.ensureProfile(true)
	}
	return m, nil
}

// handleFetchResult turns the outcome of a page load into banners and
// navigation.
func (m Model) handleFetchResult(err error) (tea.Model, tea.Cmd) {
	switch {
	case err == nil:
		if m.banner != "" && m.bannerID < 0 {
			m.clearBanner()
		}
		return m, nil
	case errors.Is(err, feed.ErrBusy), apierr.IsCancelled(err):
		return m, nil
	case errors.Is(err, apierr.ErrPrecondition):
		if m.currentView == ViewLogin {
			return m, nil
		}
		m.logger.Info("not signed in; showing login")
		m.currentView = ViewLogin
		return m, tea.Batch(m.codeInput.Focus(), m.armCallback())
	default:
		m.logger.Warn("feed load failed", "error", err)
		return m, m.setBanner("Couldn't load photos: "+describeError(err)+". Press r to retry.", 0)
	}
}

func (m Model) handleExchangeResult(err error) (tea.Model, tea.Cmd) {
	m.exchanging = false
	if err != nil {
		if apierr.IsCancelled(err) {
			return m, m.armCallback()
		}
		m.logger.Warn("sign in failed", "error", err)
		m.loginErr = "Sign in failed: " + describeError(err)
		m.codeInput.Reset()
		return m, tea.Batch(m.codeInput.Focus(), m.armCallback())
	}
	m.logger.Info("signed in")
	m.loginErr = ""
	m.codeInput.Reset()
	m.codeInput.Blur()
	m.currentView = ViewFeed
	m.bootstrapping = true
	m.clearBanner()
	if m.bootstrap == nil {
		return m, nil
	}
	return m, bootstrapCmd(m.ctx, m.bootstrap)
}

func (m *Model) startExchange(code string) tea.Cmd {
	if m.exchanger == nil {
		m.loginErr = "Sign in is not configured"
		return nil
	}
	m.exchanging = true
	m.loginErr = ""
	return exchangeCmd(m.ctx, m.exchanger, code)
}

// armCallback starts waiting for the next loopback code unless a wait is
// already pending.
func (m *Model) armCallback() tea.Cmd {
	if m.callback == nil || m.callbackArmed {
		return nil
	}
	m.callbackArmed = true
	return waitForCallback(m.callback)
}

func (m Model) requestLogout() (tea.Model, tea.Cmd) {
	if m.session == nil {
		return m, nil
	}
	cmd := logoutCmd(m.ctx, m.session)
	if !m.confirmLogout {
		return m, cmd
	}
	m.modal = newConfirmModal("Sign out?", "Your token, profile and feed will be cleared.", cmd)
	return m, nil
}

func (m *Model) ensureProfile(force bool) tea.Cmd {
	if m.profiles == nil || m.profileLoading {
		return nil
	}
	if !force {
		if m.profile != nil {
			return nil
		}
		if p, ok := m.profiles.Current(); ok {
			m.profile = &p
			return nil
		}
	}
	m.profileLoading = true
	m.profileErr = nil
	return loadProfileCmd(m.ctx, m.profiles)
}

func (m Model) currentProfile() (profile.Profile, bool) {
	if m.profiles == nil {
		return profile.Profile{}, false
	}
	return m.profiles.Current()
}

func (m *Model) cycleTheme() {
	m.theme = GetTheme(NextTheme(m.theme.Name))
	m.spinner.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Accent))
	if m.prefsPath == "" {
		return
	}
	p := prefs.Prefs{Theme: m.theme.Name, ConfirmLogout: m.confirmLogout}
	if err := prefs.Save(m.prefsPath, p); err != nil {
		m.logger.Warn("save preferences failed", "error", err)
	}
}

// refreshFeed copies the latest feed state into the model.
func (m *Model) refreshFeed() {
	if m.feed == nil {
		return
	}
	m.snapshot = m.feed.Snapshot()
	if n := len(m.snapshot.Photos); m.selectedRow >= n {
		m.selectedRow = maxInt(0, n-1)
	}
	m.ensureVisible()
	m.updateDetailViewport()
}

// setBanner shows text above the content. A zero ttl keeps it until the
// next successful load.
func (m *Model) setBanner(text string, ttl time.Duration) tea.Cmd {
	m.banner = text
	if ttl <= 0 {
		m.bannerID = -1
		return nil
	}
	if m.bannerID < 0 {
		m.bannerID = 0
	}
	m.bannerID++
	return bannerExpiryCmd(m.bannerID, ttl)
}

func (m *Model) clearBanner() {
	m.banner = ""
	if m.bannerID < 0 {
		m.bannerID = 0
	}
}

func (m Model) contentHeight() int {
	h := m.height - headerHeight - commandBarHeight
	if m.banner != "" {
		h -= bannerHeight
	}
	return maxInt(1, h)
}

// Close releases the feed subscription.
func (m Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// describeError gives a short user-facing reason for err.
func describeError(err error) string {
	if code, ok := apierr.StatusCode(err); ok {
		switch code {
		case 401:
			return "session expired (401)"
		case 403:
			return "not allowed (403)"
		case 429:
			return "rate limited (429)"
		}
		return "server returned " + strconv.Itoa(code)
	}
	switch {
	case errors.Is(err, apierr.ErrNetwork):
		return "network unavailable"
	case errors.Is(err, apierr.ErrDecode):
		return "unexpected server response"
	case errors.Is(err, apierr.ErrPrecondition):
		return "not signed in"
	}
	return firstLine(err.Error())
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	defer m.Close()
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}
