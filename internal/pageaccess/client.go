package pageaccess

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/amankumarsingh77/video-gatekeeper/pkg/logger"
	"github.com/pkg/errors"
	"github.com/sony/gobreaker/v2"
)

var (
	// ErrUnreachable covers transport failures, timeouts, gateway errors and
	// an open breaker. Callers decide whether to fail open.
	ErrUnreachable = errors.New("page service unreachable")
	// ErrCheckFailed means the service answered but not in a way that says
	// yes or no, e.g. rejected credentials.
	ErrCheckFailed   = errors.New("page access check failed")
	ErrNotConfigured = errors.New("page service not configured")
)

const (
	defaultTimeout = 3 * time.Second
	maxBodyBytes   = 1 << 20
)

// Checker answers whether a page is accessible.
type Checker interface {
	Configured() bool
	CheckPageAccess(ctx context.Context, pageID int) (bool, error)
}

// Cache stores recent positive answers.
type Cache interface {
	Get(ctx context.Context, pageID int) (allowed, ok bool)
	Set(ctx context.Context, pageID int, ttl time.Duration)
}

type Page struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	BookID    int    `json:"book_id"`
	ChapterID *int   `json:"chapter_id"`
	CreatedBy int    `json:"created_by"`
	UpdatedBy int    `json:"updated_by"`
}

type SearchHit struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
	URL  string `json:"url"`
}

type User struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Options struct {
	BaseURL     string
	TokenID     string
	TokenSecret string
	Timeout     time.Duration
	CacheTTL    time.Duration
	HTTPClient  *http.Client
	Cache       Cache
	Logger      logger.Logger
}

type response struct {
	status int
	body   []byte
}

// Client talks to a BookStack-compatible REST API.
type Client struct {
	baseURL     string
	tokenID     string
	tokenSecret string
	http        *http.Client
	cb          *gobreaker.CircuitBreaker[*response]
	cache       Cache
	cacheTTL    time.Duration
	logger      logger.Logger
}

func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}
	c := &Client{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		tokenID:     opts.TokenID,
		tokenSecret: opts.TokenSecret,
		http:        hc,
		cache:       opts.Cache,
		cacheTTL:    opts.CacheTTL,
		logger:      log,
	}
	c.cb = gobreaker.NewCircuitBreaker[*response](gobreaker.Settings{
		Name:        "page-service",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warnf("circuit breaker %s: %s -> %s", name, from, to)
		},
	})
	return c
}

func (c *Client) Configured() bool {
	return c.baseURL != "" && c.tokenID != "" && c.tokenSecret != ""
}

func (c *Client) BreakerState() gobreaker.State {
	return c.cb.State()
}

func (c *Client) get(ctx context.Context, endpoint string, query url.Values) (*response, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	u := c.baseURL + "/api/" + strings.TrimLeft(endpoint, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	res, err := c.cb.Execute(func() (*response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", fmt.Sprintf("Token %s:%s", c.tokenID, c.tokenSecret))
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, err
		}
		switch resp.StatusCode {
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return nil, errors.Errorf("page service returned %d", resp.StatusCode)
		}
		return &response{status: resp.StatusCode, body: body}, nil
	})
	if err != nil {
		// open breaker, transport errors and gateway statuses all land here
		return nil, errors.Wrap(ErrUnreachable, err.Error())
	}
	return res, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, query url.Values, out interface{}) error {
	res, err := c.get(ctx, endpoint, query)
	if err != nil {
		return err
	}
	if res.status != http.StatusOK {
		return &StatusError{Status: res.status}
	}
	if err := json.Unmarshal(res.body, out); err != nil {
		return errors.Wrap(ErrCheckFailed, "decode response: "+err.Error())
	}
	return nil
}

// StatusError is returned for any non-200 answer to a data request.
type StatusError struct {
	Status int
}

func (e *StatusError) Error() string {
	return "page service returned status " + strconv.Itoa(e.Status)
}

func (c *Client) GetPage(ctx context.Context, pageID int) (*Page, error) {
	page := &Page{}
	if err := c.getJSON(ctx, "pages/"+strconv.Itoa(pageID), nil, page); err != nil {
		return nil, err
	}
	return page, nil
}

// CheckPageAccess reports whether the service lets the configured token see
// the page. 403 and 404 mean no; other failures are errors.
func (c *Client) CheckPageAccess(ctx context.Context, pageID int) (bool, error) {
	if c.cache != nil {
		if allowed, ok := c.cache.Get(ctx, pageID); ok {
			return allowed, nil
		}
	}
	res, err := c.get(ctx, "pages/"+strconv.Itoa(pageID), nil)
	if err != nil {
		return false, err
	}
	switch res.status {
	case http.StatusOK:
		if c.cache != nil && c.cacheTTL > 0 {
			c.cache.Set(ctx, pageID, c.cacheTTL)
		}
		return true, nil
	case http.StatusForbidden, http.StatusNotFound:
		return false, nil
	default:
		return false, errors.Wrapf(ErrCheckFailed, "status %d", res.status)
	}
}

func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	u := &User{}
	if err := c.getJSON(ctx, "users/me", nil, u); err != nil {
		return nil, err
	}
	return u, nil
}

// SearchPages returns page hits only; books and chapters are dropped.
func (c *Client) SearchPages(ctx context.Context, query string, count int) ([]SearchHit, error) {
	if count <= 0 {
		count = 10
	}
	var out struct {
		Data []SearchHit `json:"data"`
	}
	q := url.Values{"query": {query}, "count": {strconv.Itoa(count)}}
	if err := c.getJSON(ctx, "search", q, &out); err != nil {
		return nil, err
	}
	hits := make([]SearchHit, 0, len(out.Data))
	for _, h := range out.Data {
		if h.Type == "page" {
			hits = append(hits, h)
		}
	}
	return hits, nil
}
