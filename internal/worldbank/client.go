package worldbank

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"wdipanel/internal/config"
	"wdipanel/internal/dataprocessing"
	apperrors "wdipanel/internal/errors"
	"wdipanel/pkg/contracts/domain"
)

// Client talks to the World Bank Indicators API
type Client struct {
	baseURL    string
	perPage    int
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. Its transport is used as is.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the client logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client from source configuration
func NewClient(cfg config.SourceConfig, opts ...Option) *Client {
	perPage := cfg.PerPage
	if perPage <= 0 {
		perPage = config.DefaultPerPage
	}
	if perPage > config.MaxPerPage {
		perPage = config.MaxPerPage
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultHTTPTimeout
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	c := &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		perPage:   perPage,
		userAgent: cfg.UserAgent,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: otelhttp.NewTransport(&http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				TLSHandshakeTimeout: 10 * time.Second,
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
			}),
		},
		limiter: rate.NewLimiter(limit, burst),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(slog.String("component", "worldbank"))
	return c
}

// Fetch implements dataprocessing.Fetcher. An indicator with no observations
// yields an empty table, not an error.
func (c *Client) Fetch(ctx context.Context, spec domain.IndicatorSpec, req dataprocessing.FetchRequest) (*dataprocessing.Table, error) {
	_, single := req.Locations.SingleCode()

	columns := []string{dataprocessing.RawPeriodColumn, spec.Name}
	if !single {
		columns = append([]string{dataprocessing.RawLocationColumn}, columns...)
	}
	table := dataprocessing.NewTable(columns...)

	path := fmt.Sprintf("/country/%s/indicator/%s", req.Locations.PathSegment(), url.PathEscape(spec.Code))
	query := url.Values{}
	query.Set("date", req.Period.Query())
	if req.SourceID > 0 {
		query.Set("source", strconv.Itoa(req.SourceID))
	}

	pages, err := c.paginate(ctx, path, query, func(body []byte) (pageMeta, error) {
		var rows []observation
		meta, err := decodePage(body, &rows)
		if err != nil {
			return meta, err
		}
		for _, o := range rows {
			value := dataprocessing.Null()
			if o.Value != nil {
				value = dataprocessing.Number(*o.Value)
			}
			cells := []dataprocessing.Value{dataprocessing.Text(o.Date), value}
			if !single {
				cells = append([]dataprocessing.Value{dataprocessing.Text(o.locationCode())}, cells...)
			}
			if err := table.AppendRow(cells...); err != nil {
				return meta, err
			}
		}
		return meta, nil
	})
	if err != nil {
		return nil, apperrors.NewFetchError(fmt.Sprintf("fetch indicator %s", spec.Code), err).
			WithContext("indicator", spec.Code)
	}

	c.logger.DebugContext(ctx, "indicator fetched",
		slog.String("code", spec.Code),
		slog.Int("rows", table.Len()),
		slog.Int("pages", pages))
	return table, nil
}

// ListLocations returns every country and aggregate the API knows. Any failure
// is logged and yields an empty list.
func (c *Client) ListLocations(ctx context.Context) []domain.Location {
	var out []domain.Location

	_, err := c.paginate(ctx, "/country", url.Values{}, func(body []byte) (pageMeta, error) {
		var rows []country
		meta, err := decodePage(body, &rows)
		if err != nil {
			return meta, err
		}
		for _, r := range rows {
			out = append(out, domain.Location{
				Code:          r.ID,
				Name:          r.Name,
				ISO2Code:      r.ISO2Code,
				RegionID:      r.Region.ID,
				RegionName:    r.Region.Value,
				IncomeLevelID: r.IncomeLevel.ID,
				IncomeLevel:   r.IncomeLevel.Value,
				LendingTypeID: r.LendingType.ID,
				LendingType:   r.LendingType.Value,
				CapitalCity:   r.CapitalCity,
				Longitude:     r.Longitude,
				Latitude:      r.Latitude,
			})
		}
		return meta, nil
	})
	if err != nil {
		c.logger.WarnContext(ctx, "location listing failed",
			slog.String("error", err.Error()))
		return []domain.Location{}
	}

	c.logger.InfoContext(ctx, "locations listed", slog.Int("count", len(out)))
	return out
}

// paginate requests page 1..pages, handing each body to consume
func (c *Client) paginate(ctx context.Context, path string, query url.Values, consume func([]byte) (pageMeta, error)) (int, error) {
	query.Set("format", "json")
	query.Set("per_page", strconv.Itoa(c.perPage))

	page := 1
	for {
		query.Set("page", strconv.Itoa(page))
		body, err := c.get(ctx, path, query)
		if err != nil {
			return page, err
		}
		meta, err := consume(body)
		if err != nil {
			return page, err
		}
		if int(meta.Pages) <= page {
			return page, nil
		}
		page++
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	endpoint := c.baseURL + path + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.logger.DebugContext(ctx, "api request",
		slog.String("path", path),
		slog.String("page", query.Get("page")),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s: %s", resp.StatusCode, path, snippet(body))
	}
	return body, nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
