package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/Veraticus/flatscout/internal/session"
)

// Client defaults.
const (
	DefaultBaseURL = "https://developers.ria.com"
	DefaultCityID  = 10
	// DefaultTimeout bounds each API call.
	DefaultTimeout = 15 * time.Second
	// DefaultRequestsPerSecond is the sustained outbound request rate.
	DefaultRequestsPerSecond = 5
	maxErrorBody             = 512
	listingBaseURL           = "https://dom.ria.com"
)

// Client talks to the DOM.RIA developer API.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
	group      singleflight.Group
	baseURL    string
	apiKey     string
	cityID     int
	timeout    time.Duration
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL overrides the API root.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithCityID sets the city the searches are scoped to.
func WithCityID(id int) Option {
	return func(c *Client) {
		c.cityID = id
	}
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithRateLimit sets the sustained request rate. Zero disables limiting.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a DOM.RIA client.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}

	c := &Client{
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRequestsPerSecond), 1),
		logger:     slog.Default(),
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		cityID:     DefaultCityID,
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(slog.String("component", "catalog"))
	return c, nil
}

// Search returns one page of listing ids matching q.
func (c *Client) Search(ctx context.Context, q Query, page, pageSize int) (SearchResult, error) {
	var res SearchResult
	u := BuildSearchURL(c.baseURL, c.apiKey, c.cityID, q, page, pageSize)
	if err := c.getJSON(ctx, "search", u, &res); err != nil {
		return SearchResult{}, err
	}
	return res, nil
}

// Detail fetches the listing with the given id.
func (c *Client) Detail(ctx context.Context, id int64) (*Item, error) {
	var raw detailResponse
	u := resourceURL(c.baseURL, fmt.Sprintf("/dom/info/%d", id), c.apiKey)
	if err := c.getJSON(ctx, "detail", u, &raw); err != nil {
		return nil, err
	}
	if raw.RealtyID == 0 {
		return nil, ErrNotFound
	}
	return raw.toItem(), nil
}

// Districts lists the administrative districts of the configured city.
// Concurrent callers share a single request. A caller that gives up does
// not cancel the request for the others.
func (c *Client) Districts(ctx context.Context) ([]session.District, error) {
	ch := c.group.DoChan("districts", func() (any, error) {
		// Detached from the first caller; getJSON bounds it with c.timeout.
		shared := context.WithoutCancel(ctx)
		var raw [][]districtEntry
		u := resourceURL(c.baseURL, fmt.Sprintf("/dom/cities_districts/%d", c.cityID), c.apiKey)
		if err := c.getJSON(shared, "districts", u, &raw); err != nil {
			return nil, err
		}
		return administrative(raw), nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]session.District), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: districts: %w", ErrUnavailable, ctx.Err())
	}
}

type districtEntry struct {
	Name             string `json:"name"`
	AreaID           int    `json:"area_id"`
	IsAdministrative int    `json:"isAdministrative"`
}

func administrative(raw [][]districtEntry) []session.District {
	if len(raw) == 0 {
		return nil
	}
	var out []session.District
	for _, e := range raw[0] {
		if e.IsAdministrative != 1 {
			continue
		}
		out = append(out, session.District{ID: e.AreaID, Name: e.Name})
	}
	return out
}

func (c *Client) getJSON(ctx context.Context, op, u string, out any) (err error) {
	start := time.Now()
	defer func() {
		observe(op, start, err)
	}()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %s: rate limit wait: %w", ErrUnavailable, op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("%w: %s: build request: %w", ErrUnavailable, op, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound && op == "detail" {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.WarnContext(ctx, "catalog request failed",
			slog.String("operation", op),
			slog.Int("status", resp.StatusCode),
			slog.String("body", strings.TrimSpace(string(body))))
		return fmt.Errorf("%w: %s: status %d", ErrUnavailable, op, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: decode response: %w", ErrUnavailable, op, err)
	}

	c.logger.DebugContext(ctx, "catalog request",
		slog.String("operation", op),
		slog.Duration("duration", time.Since(start)))
	return nil
}
