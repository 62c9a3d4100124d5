// Package oauth trades a single-use authorization code for a bearer token.
//
// Only the newest code matters. A second Exchange cancels the first, and a
// superseded exchange reports apierr.ErrCancelled even when the server still
// answered with a valid token. The token store is written at most once per
// exchange and only by the exchange that is current at commit time.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/five82/shutter/internal/apierr"
	"github.com/five82/shutter/internal/flight"
	"github.com/five82/shutter/internal/tokenstore"
)

// Options configure an Exchanger.
type Options struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	TokenURL     string
	HTTPClient   *http.Client
	Logger       *slog.Logger
	// StoreTimeout bounds the token store write. Zero means storeTimeout.
	StoreTimeout time.Duration
}

// Exchanger performs the authorization-code grant.
type Exchanger struct {
	store  tokenstore.Store
	http   *http.Client
	logger *slog.Logger
	gate   flight.Gate

	storeTimeout time.Duration

	mu  sync.RWMutex
	cfg oauth2.Config
}

const (
	exchangeTimeout = 30 * time.Second
	storeTimeout    = 5 * time.Second
)

// NewExchanger validates the client credentials and returns an Exchanger that
// writes into store.
func NewExchanger(store tokenstore.Store, opts Options) (*Exchanger, error) {
	if store == nil {
		return nil, errors.New("token store is required")
	}
	clientID := strings.TrimSpace(opts.ClientID)
	clientSecret := strings.TrimSpace(opts.ClientSecret)
	if clientID == "" || clientSecret == "" {
		return nil, errors.New("client id and client secret are required")
	}
	tokenURL := strings.TrimSpace(opts.TokenURL)
	if tokenURL == "" {
		return nil, errors.New("token url is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: exchangeTimeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	writeTimeout := opts.StoreTimeout
	if writeTimeout <= 0 {
		writeTimeout = storeTimeout
	}
	return &Exchanger{
		store:        store,
		http:         httpClient,
		logger:       logger,
		storeTimeout: writeTimeout,
		cfg: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  strings.TrimSpace(opts.RedirectURI),
			Endpoint: oauth2.Endpoint{
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
	}, nil
}

// SetRedirectURI replaces the redirect URI sent with later exchanges. The
// loopback callback server only knows its address after it binds.
func (e *Exchanger) SetRedirectURI(uri string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg.RedirectURL = strings.TrimSpace(uri)
}

// RedirectURI reports the redirect URI currently in use.
func (e *Exchanger) RedirectURI() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg.RedirectURL
}

// Exchange posts code to the token endpoint, stores the returned token and
// returns it. Any exchange still running is cancelled first.
func (e *Exchanger) Exchange(ctx context.Context, code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", apierr.Precondition("authorization code is empty")
	}

	ticket := e.gate.Begin(ctx)
	defer ticket.Done()

	e.mu.RLock()
	cfg := e.cfg
	e.mu.RUnlock()

	reqCtx := context.WithValue(ticket.Context(), oauth2.HTTPClient, e.http)
	tok, err := cfg.Exchange(reqCtx, code)
	if !ticket.Current() {
		e.logger.Debug("discarding superseded token exchange")
		return "", apierr.Cancelled("token exchange")
	}
	if err != nil {
		err = classify(ticket.Context(), err)
		e.logger.Warn("token exchange failed", "error", err)
		return "", err
	}
	if tok == nil || strings.TrimSpace(tok.AccessToken) == "" {
		return "", fmt.Errorf("%w: token response has no access_token", apierr.ErrDecode)
	}

	// The gate lock is held for the write, so it must not outlive storeTimeout.
	var storeErr error
	committed := ticket.IfCurrent(func() {
		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ticket.Context()), e.storeTimeout)
		defer cancel()
		storeErr = e.store.Set(writeCtx, tok.AccessToken)
	})
	if !committed {
		return "", apierr.Cancelled("token exchange")
	}
	if storeErr != nil {
		return "", fmt.Errorf("store token: %w", storeErr)
	}
	e.logger.Info("token exchange succeeded", "token_len", len(tok.AccessToken))
	return tok.AccessToken, nil
}

// Cancel aborts the exchange in flight, if any. Its caller sees ErrCancelled.
func (e *Exchanger) Cancel() {
	e.gate.Cancel()
}

// classify maps x/oauth2 failures onto the apierr taxonomy.
func classify(ctx context.Context, err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		status := &apierr.StatusError{}
		if re.Response != nil {
			status.Code = re.Response.StatusCode
			if re.Response.Request != nil && re.Response.Request.URL != nil {
				status.URL = re.Response.Request.URL.Redacted()
			}
		}
		return status
	}
	if ctx.Err() != nil || isTransport(err) {
		return apierr.Transport(ctx, err)
	}
	// Everything else comes from parsing the token response.
	return fmt.Errorf("%w: %v", apierr.ErrDecode, err)
}

func isTransport(err error) bool {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
