// Package profile loads the signed-in user's profile for display.
package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/five82/shutter/internal/apierr"
	"github.com/five82/shutter/internal/flight"
	"github.com/five82/shutter/internal/photoapi"
	"github.com/five82/shutter/internal/tokenstore"
)

// Profile is what the profile view shows.
type Profile struct {
	Username  string
	Name      string
	LoginName string
	Bio       string
	AvatarURL string
}

// TokenReader is the part of the token store the service needs.
type TokenReader interface {
	Get(ctx context.Context) (string, error)
}

// Service fetches and caches the profile. Loads are cancel-and-replace.
type Service struct {
	api     photoapi.ProfileFetcher
	tokens  TokenReader
	logger  *slog.Logger
	gate    flight.Gate
	avatars *lru.Cache[string, string]

	mu      sync.RWMutex
	current *Profile
}

const avatarCacheSize = 64

// NewService builds a Service.
func NewService(api photoapi.ProfileFetcher, tokens TokenReader, logger *slog.Logger) (*Service, error) {
	cache, err := lru.New[string, string](avatarCacheSize)
	if err != nil {
		return nil, fmt.Errorf("avatar cache: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{api: api, tokens: tokens, logger: logger, avatars: cache}, nil
}

// Load fetches /me and the avatar URL for that user. An avatar lookup failure
// is logged and leaves AvatarURL empty; every other failure is returned.
func (s *Service) Load(ctx context.Context) (Profile, error) {
	token, err := s.tokens.Get(ctx)
	if errors.Is(err, tokenstore.ErrNoToken) {
		return Profile{}, apierr.Precondition("not signed in")
	}
	if err != nil {
		return Profile{}, fmt.Errorf("read token: %w", err)
	}

	ticket := s.gate.Begin(ctx)
	defer ticket.Done()
	reqCtx := ticket.Context()

	me, err := s.api.FetchMe(reqCtx, token)
	if !ticket.Current() {
		return Profile{}, apierr.Cancelled("profile load")
	}
	if err != nil {
		s.logger.Warn("profile load failed", "error", err)
		return Profile{}, err
	}

	p := fromMe(me)
	p.AvatarURL = s.avatar(reqCtx, token, p.Username)

	committed := ticket.IfCurrent(func() {
		s.mu.Lock()
		s.current = &p
		s.mu.Unlock()
	})
	if !committed {
		return Profile{}, apierr.Cancelled("profile load")
	}
	s.logger.Info("profile loaded", "username", p.Username)
	return p, nil
}

func (s *Service) avatar(ctx context.Context, token, username string) string {
	if url, ok := s.avatars.Get(username); ok {
		return url
	}
	user, err := s.api.FetchUser(ctx, token, username)
	if err != nil {
		if !apierr.IsCancelled(err) {
			s.logger.Warn("avatar lookup failed", "username", username, "error", err)
		}
		return ""
	}
	url := user.ProfileImage.Small
	if url != "" {
		s.avatars.Add(username, url)
	}
	return url
}

// Current returns the last loaded profile.
func (s *Service) Current() (Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return Profile{}, false
	}
	return *s.current, true
}

// Clear cancels a load in flight and forgets the profile and cached avatars.
func (s *Service) Clear() {
	s.gate.Cancel()
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
	s.avatars.Purge()
}

func fromMe(me *photoapi.MeResponse) Profile {
	var parts []string
	for _, v := range []*string{me.FirstName, me.LastName} {
		if v != nil && strings.TrimSpace(*v) != "" {
			parts = append(parts, strings.TrimSpace(*v))
		}
	}
	name := strings.Join(parts, " ")
	if name == "" && me.Name != nil {
		name = strings.TrimSpace(*me.Name)
	}
	if name == "" {
		name = me.Username
	}
	var bio string
	if me.Bio != nil {
		bio = strings.TrimSpace(*me.Bio)
	}
	return Profile{
		Username:  me.Username,
		Name:      name,
		LoginName: "@" + me.Username,
		Bio:       bio,
	}
}
