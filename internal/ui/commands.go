package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/shutter/internal/feed"
	"github.com/five82/shutter/internal/profile"
)

// Messages

type feedEventMsg feed.Event

type feedClosedMsg struct{}

type pageMsg struct {
	added int
	err   error
}

type bootstrapMsg struct{ err error }

type likeMsg struct {
	id    string
	liked bool
	err   error
}

type profileMsg struct {
	profile profile.Profile
	err     error
}

type exchangeMsg struct{ err error }

type callbackMsg struct {
	code string
	ok   bool
}

type logoutMsg struct{ err error }

type bannerExpiredMsg struct{ id int }

// Commands

func waitForFeedEvent(events <-chan feed.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return feedClosedMsg{}
		}
		return feedEventMsg(ev)
	}
}

func fetchPageCmd(ctx context.Context, src FeedSource) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
		defer cancel()
		added, err := src.FetchNextPage(ctx)
		return pageMsg{added: len(added), err: err}
	}
}

func bootstrapCmd(ctx context.Context, bootstrap func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return bootstrapMsg{err: bootstrap(ctx)}
	}
}

func toggleLikeCmd(ctx context.Context, toggler LikeToggler, src FeedSource, id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
		defer cancel()
		liked, err := toggler.Toggle(ctx, src, id)
		return likeMsg{id: id, liked: liked, err: err}
	}
}

func loadProfileCmd(ctx context.Context, src ProfileSource) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
		defer cancel()
		p, err := src.Load(ctx)
		return profileMsg{profile: p, err: err}
	}
}

func exchangeCmd(ctx context.Context, ex CodeExchanger, code string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
		defer cancel()
		_, err := ex.Exchange(ctx, code)
		return exchangeMsg{err: err}
	}
}

func waitForCallback(codes <-chan string) tea.Cmd {
	return func() tea.Msg {
		code, ok := <-codes
		return callbackMsg{code: code, ok: ok}
	}
}

func logoutCmd(ctx context.Context, s SessionEnder) tea.Cmd {
	return func() tea.Msg {
		return logoutMsg{err: s.Logout(ctx)}
	}
}

func bannerExpiryCmd(id int, ttl time.Duration) tea.Cmd {
	return tea.Tick(ttl, func(time.Time) tea.Msg {
		return bannerExpiredMsg{id: id}
	})
}
