package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/desertthunder/playshare/internal/models"
	"github.com/desertthunder/playshare/internal/shared"
)

// Client implements [Service] over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
	profiles   singleflight.Group

	mu    sync.RWMutex
	creds *Credentials
}

// ClientOption configures a [Client].
type ClientOption func(*Client)

// WithHTTPClient sets the underlying HTTP client. Its transport is wrapped to attach the token.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRateLimit paces requests to perSecond with the given burst. Non-positive rates disable pacing.
func WithRateLimit(perSecond float64, burst int) ClientOption {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
	}
}

// WithCredentials starts the client with an existing session.
func WithCredentials(creds *Credentials) ClientOption {
	return func(c *Client) { c.creds = creds }
}

// WithClientLogger sets the logger used for request diagnostics.
func WithClientLogger(l *log.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a [Client] for the API at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = "http://127.0.0.1:8080"
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Inf, 0),
		logger:     log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClientFromConfig creates a [Client] from the [client] config section, resuming any saved session.
// Extra options are applied after the configured ones.
func NewClientFromConfig(cfg shared.ClientConfig, logger *log.Logger, extra ...ClientOption) *Client {
	opts := []ClientOption{
		WithHTTPClient(&http.Client{Timeout: cfg.Timeout.Duration}),
		WithRateLimit(cfg.RateLimit, cfg.Burst),
		WithClientLogger(logger),
	}

	if creds, err := LoadCredentials(cfg.TokenPath); err == nil {
		opts = append(opts, WithCredentials(creds))
	} else if !errors.Is(err, shared.ErrNotAuthenticated) {
		logger.Warn("ignoring saved credentials", "path", cfg.TokenPath, "error", err)
	}

	return NewClient(cfg.BaseURL, append(opts, extra...)...)
}

// Credentials returns the current session, if any.
func (c *Client) Credentials() *Credentials {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.creds
}

func (c *Client) CurrentUser() (string, bool) {
	creds := c.Credentials()
	if !creds.Usable() {
		return "", false
	}
	return creds.UserID, true
}

func (c *Client) SignOut() {
	c.mu.Lock()
	c.creds = nil
	c.mu.Unlock()
}

func (c *Client) SignUp(ctx context.Context, userID, password, nickname string) (*models.Profile, error) {
	body := map[string]string{"userId": userID, "password": password, "nickname": nickname}

	var profile models.Profile
	if err := c.do(ctx, request{method: http.MethodPost, path: "/api/signup", body: body, out: &profile}); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (c *Client) SignIn(ctx context.Context, userID, password string) (*Credentials, error) {
	body := map[string]string{"userId": userID, "password": password}

	var creds Credentials
	err := c.do(ctx, request{method: http.MethodPost, path: "/api/signin", body: body, out: &creds})
	if errors.Is(err, shared.ErrNotAuthenticated) {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidCredentials, err)
	}
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.creds = &creds
	c.mu.Unlock()

	c.logger.Info("signed in", "user", creds.UserID, "expiry", creds.Expiry)
	return &creds, nil
}

// Profile retrieves a user's profile. Concurrent calls for the same user share one request.
func (c *Client) Profile(ctx context.Context, userID string) (*models.Profile, error) {
	v, err, dup := c.profiles.Do(userID, func() (any, error) {
		var profile models.Profile
		err := c.do(ctx, request{
			method:   http.MethodGet,
			path:     "/api/profile/" + url.PathEscape(userID),
			out:      &profile,
			notFound: shared.ErrUserNotFound,
		})
		return &profile, err
	})
	if dup {
		c.logger.Debug("shared profile request", "user", userID)
	}
	if err != nil {
		return nil, err
	}
	return v.(*models.Profile), nil
}

func (c *Client) UpdateProfile(ctx context.Context, nickname, profileImage string) (*models.Profile, error) {
	body := map[string]string{"nickname": nickname, "profileImage": profileImage}

	var profile models.Profile
	err := c.do(ctx, request{method: http.MethodPut, path: "/api/profile", body: body, out: &profile, auth: true})
	if err != nil {
		return nil, err
	}
	c.profiles.Forget(profile.UserID)
	return &profile, nil
}

func (c *Client) Playlists(ctx context.Context, userID string, offset, limit int) (*PlaylistPage, error) {
	var page PlaylistPage
	err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/api/playlistPage/" + url.PathEscape(userID),
		query:    pageQuery(offset, limit),
		out:      &page,
		notFound: shared.ErrUserNotFound,
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) Liked(ctx context.Context, userID string, offset, limit int) (*LikePage, error) {
	var page LikePage
	err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/api/likePage/" + url.PathEscape(userID),
		query:    pageQuery(offset, limit),
		out:      &page,
		notFound: shared.ErrUserNotFound,
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) Following(ctx context.Context, userID string, offset, limit int) (*FollowingPage, error) {
	var page FollowingPage
	err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/api/following/" + url.PathEscape(userID),
		query:    pageQuery(offset, limit),
		out:      &page,
		notFound: shared.ErrUserNotFound,
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) Search(ctx context.Context, term, filter string, offset, limit int) (*SearchPage, error) {
	q := pageQuery(offset, limit)
	q.Set("term", term)
	if filter != "" {
		q.Set("filter", filter)
	}

	var page SearchPage
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/searchs", query: q, out: &page}); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) CreatePlaylist(ctx context.Context, title string, tags, imgURLs []string, public bool) (*models.Playlist, error) {
	body := map[string]any{"title": title, "tags": tags, "imgUrls": imgURLs, "disclosureStatus": public}

	var playlist models.Playlist
	err := c.do(ctx, request{method: http.MethodPost, path: "/api/playlists", body: body, out: &playlist, auth: true})
	if err != nil {
		return nil, err
	}
	return &playlist, nil
}

func (c *Client) Like(ctx context.Context, playlistID string) error {
	return c.toggle(ctx, http.MethodPost, "/api/like/"+url.PathEscape(playlistID), shared.ErrPlaylistNotFound)
}

func (c *Client) Unlike(ctx context.Context, playlistID string) error {
	return c.toggle(ctx, http.MethodDelete, "/api/like/"+url.PathEscape(playlistID), shared.ErrPlaylistNotFound)
}

func (c *Client) Follow(ctx context.Context, userID string) error {
	return c.toggle(ctx, http.MethodPost, "/api/follow/"+url.PathEscape(userID), shared.ErrUserNotFound)
}

func (c *Client) Unfollow(ctx context.Context, userID string) error {
	return c.toggle(ctx, http.MethodDelete, "/api/follow/"+url.PathEscape(userID), shared.ErrUserNotFound)
}

func (c *Client) toggle(ctx context.Context, method, path string, notFound error) error {
	return c.do(ctx, request{method: method, path: path, auth: true, notFound: notFound})
}

type request struct {
	method   string
	path     string
	query    url.Values
	body     any
	out      any
	auth     bool  // fail locally when there is no usable session
	notFound error // sentinel reported for 404
}

func pageQuery(offset, limit int) url.Values {
	return url.Values{
		"offset": {strconv.Itoa(offset)},
		"limit":  {strconv.Itoa(limit)},
	}
}

func (c *Client) do(ctx context.Context, r request) error {
	creds := c.Credentials()
	if r.auth {
		switch {
		case creds == nil:
			return shared.ErrNotAuthenticated
		case !creds.Valid():
			return shared.ErrTokenExpired
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrTimeout, err)
	}

	endpoint := c.baseURL + r.path
	if len(r.query) > 0 {
		endpoint += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.clientFor(creds).Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("api request", "method", r.method, "path", r.path, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp, r.notFound)
	}

	if r.out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(r.out); err != nil {
			return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
		}
	}
	return nil
}

// clientFor returns an HTTP client that sends creds as a bearer token, or the plain client when
// there is no usable session.
func (c *Client) clientFor(creds *Credentials) *http.Client {
	if !creds.Usable() {
		return c.httpClient
	}

	base := c.httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	tok := creds.Token
	return &http.Client{
		Timeout: c.httpClient.Timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&tok),
			Base:   base,
		},
	}
}

func statusError(resp *http.Response, notFound error) error {
	var body struct {
		Message string `json:"message"`
	}
	json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body)
	if body.Message == "" {
		body.Message = http.StatusText(resp.StatusCode)
	}

	var sentinel error
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		sentinel = shared.ErrNotAuthenticated
	case resp.StatusCode == http.StatusForbidden:
		sentinel = shared.ErrForbidden
	case resp.StatusCode == http.StatusNotFound && notFound != nil:
		sentinel = notFound
	case resp.StatusCode == http.StatusConflict:
		sentinel = shared.ErrAlreadyExists
	case resp.StatusCode == http.StatusBadRequest:
		sentinel = shared.ErrInvalidInput
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		sentinel = shared.ErrServiceUnavailable
	default:
		sentinel = shared.ErrAPIRequest
	}
	return fmt.Errorf("%w: %s (status %d)", sentinel, body.Message, resp.StatusCode)
}
