package mangadexapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://api.mangadex.org"
	DefaultAuthURL = "https://auth.mangadex.org/realms/mangadex/protocol/openid-connect/token"

	userAgent = "MangaDex-Progress/0.1 (https://github.com/Another0Noob/mangadex-progress)"
)

const (
	defaultLanguage     = "en"
	defaultPageSize     = 100
	defaultRequestDelay = time.Second

	// maxBatchSize is the largest number of ids the API accepts in one ids[] query.
	maxBatchSize = 100
)

// Endpoint families. Requests within one family are paced by a shared limiter.
const (
	familyStatus    = "status"
	familyManga     = "manga"
	familyFeed      = "feed"
	familyAggregate = "aggregate"
	familyRead      = "read"
)

// Client is a MangaDex API client. It is not safe for concurrent use.
type Client struct {
	transport

	baseURL      string
	authURL      string
	language     string
	pageSize     int
	requestDelay time.Duration
	limiters     map[string]*rate.Limiter

	tokens *TokenManager
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// WithAuthURL overrides the token endpoint.
func WithAuthURL(u string) Option {
	return func(c *Client) { c.authURL = u }
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithLanguage sets the translated language used by feed, aggregate and manga queries.
func WithLanguage(lang string) Option {
	return func(c *Client) { c.language = lang }
}

// WithPageSize sets the limit used by offset/limit pagination.
func WithPageSize(n int) Option {
	return func(c *Client) { c.pageSize = n }
}

// WithRequestDelay sets the minimum interval between two requests of the
// same endpoint family. Zero disables pacing.
func WithRequestDelay(d time.Duration) Option {
	return func(c *Client) { c.requestDelay = d }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient creates a new MangaDex API client whose tokens live in store.
func NewClient(store Store, opts ...Option) *Client {
	c := &Client{
		transport: transport{
			httpClient: &http.Client{},
			userAgent:  userAgent,
			log:        log.Logger,
		},
		baseURL:      DefaultBaseURL,
		authURL:      DefaultAuthURL,
		language:     defaultLanguage,
		pageSize:     defaultPageSize,
		requestDelay: defaultRequestDelay,
		limiters:     make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.tokens = &TokenManager{
		transport: c.transport,
		store:     store,
		authURL:   c.authURL,
	}
	return c
}

// Tokens returns the token manager backing authorized calls.
func (c *Client) Tokens() *TokenManager {
	return c.tokens
}

// request describes one API call.
type request struct {
	family     string
	method     string
	path       string
	params     url.Values
	authorized bool
}

type response struct {
	StatusCode int
	Body       []byte
}

func (c *Client) limiter(family string) *rate.Limiter {
	l, ok := c.limiters[family]
	if !ok {
		limit := rate.Inf
		if c.requestDelay > 0 {
			limit = rate.Every(c.requestDelay)
		}
		l = rate.NewLimiter(limit, 1)
		c.limiters[family] = l
	}
	return l
}

// doRequest performs an HTTP request to the MangaDex API (raw, no JSON decoding).
func (c *Client) doRequest(ctx context.Context, r request) (*response, error) {
	var bearer string
	if r.authorized {
		var err error
		if bearer, err = c.tokens.BearerToken(); err != nil {
			return nil, err
		}
	}

	if err := c.limiter(r.family).Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit error: %w", err)
	}

	fullURL := c.baseURL + r.path
	if len(r.params) > 0 {
		fullURL += "?" + r.params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", bearer)
	}

	return c.send(req)
}

// transport sends requests and logs every response.
type transport struct {
	httpClient *http.Client
	userAgent  string
	log        zerolog.Logger
}

func (t transport) send(req *http.Request) (*response, error) {
	req.Header.Set("User-Agent", t.userAgent)

	requestID := uuid.NewString()
	start := time.Now()

	resp, err := t.httpClient.Do(req)
	if err != nil {
		t.log.Error().
			Err(err).
			Str("sys", "http").
			Str("request_id", requestID).
			Str("method", req.Method).
			Str("url", req.URL.String()).
			Msg("Request failed")
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	t.log.Info().
		Str("sys", "http").
		Str("request_id", requestID).
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Int("status_code", resp.StatusCode).
		Int("len", len(body)).
		Dur("dur", time.Since(start)).
		Msg("Response")

	return &response{StatusCode: resp.StatusCode, Body: body}, nil
}

// decodeResult validates a data endpoint response and decodes it into out.
// The result discriminator must be "ok"; endpoints that omit it pass
// requireResult=false. Every path in required must be present and non-null.
func decodeResult(op string, resp *response, requireResult bool, out any, required ...string) error {
	if resp.StatusCode != http.StatusOK {
		return &APIError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.StatusCode, resp.Body),
			Err:        ErrFetch,
		}
	}

	if !gjson.ValidBytes(resp.Body) {
		return &APIError{Op: op, Message: "response contained invalid JSON", Err: ErrFetch}
	}

	result := gjson.GetBytes(resp.Body, "result")
	switch {
	case result.String() == "ok":
	case result.String() == "error":
		return &APIError{Op: op, Message: errorMessage(resp.StatusCode, resp.Body), Err: ErrFetch}
	case !result.Exists() && !requireResult:
	default:
		return &APIError{Op: op, Message: fmt.Sprintf("unexpected result %q", result.Raw), Err: ErrFetch}
	}

	for _, path := range required {
		if v := gjson.GetBytes(resp.Body, path); !v.Exists() || v.Type == gjson.Null {
			return &APIError{Op: op, Message: "response missing " + path, Err: ErrFetch}
		}
	}

	if err := json.Unmarshal(resp.Body, out); err != nil {
		return &APIError{Op: op, Message: fmt.Sprintf("decode: %v", err), Err: ErrFetch}
	}
	return nil
}
