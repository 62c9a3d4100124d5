package photoapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/five82/shutter/internal/apierr"
)

// PhotoLister fetches one page of the photo feed.
type PhotoLister interface {
	FetchPhotos(ctx context.Context, token string, page, perPage int) ([]Photo, error)
}

// Liker sets or clears the current user's like on a photo.
type Liker interface {
	SetLike(ctx context.Context, token, photoID string, liked bool) error
}

// ProfileFetcher reads the signed-in user's profile and avatar.
type ProfileFetcher interface {
	FetchMe(ctx context.Context, token string) (*MeResponse, error)
	FetchUser(ctx context.Context, token, username string) (*UserResponse, error)
}

// Ensure Client implements the consumer interfaces at compile time.
var (
	_ PhotoLister    = (*Client)(nil)
	_ Liker          = (*Client)(nil)
	_ ProfileFetcher = (*Client)(nil)
)

// Client talks to the photo service's JSON API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// Options tune a Client. The zero value is usable.
type Options struct {
	// RequestsPerHour paces calls client-side; zero disables pacing.
	RequestsPerHour int
	HTTPClient      *http.Client
	Logger          *slog.Logger
	UserAgent       string
}

const (
	defaultAPIBase   = "https://api.unsplash.com"
	defaultUserAgent = "shutter/0.1"
	requestTimeout   = 15 * time.Second
)

// NewClient builds a Client for the API rooted at apiBase.
func NewClient(apiBase string, opts Options) (*Client, error) {
	base, err := parseBaseURL(apiBase)
	if err != nil {
		return nil, err
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		baseURL:   base,
		http:      httpClient,
		userAgent: userAgent,
		limiter:   newLimiter(opts.RequestsPerHour),
		logger:    logger,
	}, nil
}

// FetchPhotos retrieves one page of the editorial feed.
func (c *Client) FetchPhotos(ctx context.Context, token string, page, perPage int) ([]Photo, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	if page < 1 {
		return nil, apierr.Precondition("page %d is not positive", page)
	}
	values := url.Values{}
	values.Set("page", strconv.Itoa(page))
	if perPage > 0 {
		values.Set("per_page", strconv.Itoa(perPage))
	}
	rel := &url.URL{Path: "/photos", RawQuery: values.Encode()}

	var payload []PhotoResult
	if err := c.doURL(ctx, http.MethodGet, rel, token, &payload); err != nil {
		return nil, err
	}
	photos := make([]Photo, 0, len(payload))
	for _, r := range payload {
		if strings.TrimSpace(r.ID) == "" {
			return nil, fmt.Errorf("%w: photo record without id", apierr.ErrDecode)
		}
		photos = append(photos, r.Photo())
	}
	return photos, nil
}

// SetLike likes (POST) or unlikes (DELETE) a photo. The response body is
// ignored; any 2xx counts as success.
func (c *Client) SetLike(ctx context.Context, token, photoID string, liked bool) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if err := checkSegment("photo id", photoID); err != nil {
		return err
	}
	method := http.MethodDelete
	if liked {
		method = http.MethodPost
	}
	rel := &url.URL{Path: "/photos/" + photoID + "/like"}
	return c.doURL(ctx, method, rel, token, nil)
}

// FetchMe retrieves the signed-in user's profile.
func (c *Client) FetchMe(ctx context.Context, token string) (*MeResponse, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var payload MeResponse
	if err := c.do(ctx, http.MethodGet, "/me", token, &payload); err != nil {
		return nil, err
	}
	if payload.Username == "" {
		return nil, fmt.Errorf("%w: profile without username", apierr.ErrDecode)
	}
	return &payload, nil
}

// FetchUser retrieves a public user record, used for avatar URLs.
func (c *Client) FetchUser(ctx context.Context, token, username string) (*UserResponse, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	if err := checkSegment("username", username); err != nil {
		return nil, err
	}
	var payload UserResponse
	if err := c.do(ctx, http.MethodGet, "/users/"+username, token, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// checkSegment rejects identifiers that would not stay a single path segment
// once the request URL is resolved against the base.
func checkSegment(kind, v string) error {
	switch {
	case strings.TrimSpace(v) == "":
		return apierr.Precondition("%s is empty", kind)
	case v == "." || v == "..":
		return apierr.Precondition("%s %q is not a valid identifier", kind, v)
	case strings.ContainsAny(v, "/\\?#%"):
		return apierr.Precondition("%s %q is not a valid identifier", kind, v)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path, token string, dest any) error {
	rel := &url.URL{Path: path}
	return c.doURL(ctx, method, rel, token, dest)
}

func (c *Client) doURL(ctx context.Context, method string, rel *url.URL, token string, dest any) error {
	if strings.TrimSpace(token) == "" {
		return apierr.Precondition("bearer token is missing")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return apierr.Transport(ctx, err)
	}

	reqURL := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), nil)
	if err != nil {
		return apierr.Precondition("create request: %v", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Version", "v1")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Authorization", "Bearer "+token)

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("api request failed", "method", method, "path", rel.Path, "request_id", requestID, "error", err)
		return apierr.Transport(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("api request",
		"method", method,
		"path", rel.Path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(started),
		"ratelimit_remaining", resp.Header.Get("X-Ratelimit-Remaining"))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return &apierr.StatusError{Code: resp.StatusCode, URL: rel.String()}
	}
	if dest == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		if ctx.Err() != nil {
			return apierr.Transport(ctx, err)
		}
		return fmt.Errorf("%w: decode response: %v", apierr.ErrDecode, err)
	}
	return nil
}

func newLimiter(perHour int) *rate.Limiter {
	if perHour <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	every := time.Duration(math.Ceil(float64(time.Hour) / float64(perHour)))
	return rate.NewLimiter(rate.Every(every), perHour)
}

func parseBaseURL(apiBase string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiBase)
	if trimmed == "" {
		trimmed = defaultAPIBase
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api base %q: %w", apiBase, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
