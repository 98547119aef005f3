package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"golang.org/x/time/rate"

	"github.com/mmcdole/importwatch/internal/domain"
)

const (
	defaultTimeout = 30 * time.Second
	userAgent      = "importwatch/1.0"

	headerProject = "X-Project"
	headerKey     = "X-Key"

	retryBase = 200 * time.Millisecond
)

// Options configures a Client
type Options struct {
	Endpoint          string  // base URL, e.g. https://backend.example.com
	ProjectID         string
	APIKey            string
	Timeout           time.Duration
	RequestsPerSecond float64 // 0 disables pacing
	Burst             int
	MaxRetries        int // retries for 5xx and network failures
	PageSize          int // migrations per listing request
}

// Client implements domain.JobLister and domain.CollectionDirectory over the REST API
type Client struct {
	baseURL    string
	projectID  string
	apiKey     string
	maxRetries int
	pageSize   int
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a new REST client
func NewClient(opts Options, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.Endpoint, "/"),
		projectID:  opts.ProjectID,
		apiKey:     opts.APIKey,
		maxRetries: max(opts.MaxRetries, 0),
		pageSize:   opts.PageSize,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		logger:     logger,
	}
}

// ProjectID returns the project the client is scoped to
func (c *Client) ProjectID() string { return c.projectID }

// doRequest performs an authenticated request, retrying 5xx and network failures
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values) ([]byte, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL = reqURL + "?" + query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := retryBase << (attempt - 1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		body, retry, err := c.attempt(ctx, method, reqURL)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retry || ctx.Err() != nil {
			break
		}
		c.logger.Debug("retrying request", "url", reqURL, "attempt", attempt+1, "error", err)
	}
	return nil, lastErr
}

func (c *Client) attempt(ctx context.Context, method, reqURL string) (body []byte, retry bool, err error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, false, err
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set(headerProject, c.projectID)
	if c.apiKey != "" {
		req.Header.Set(headerKey, c.apiKey)
	}

	c.logger.Debug("backend request", "method", method, "url", reqURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		c.logger.Warn("backend request failed", "error", err)
		return nil, true, domain.ErrServerOffline
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, false, domain.ErrAuthFailed
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, domain.ErrNotFound
	case resp.StatusCode >= 500:
		c.logger.Error("backend error", "status", resp.StatusCode, "message", errorMessage(body))
		return nil, true, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		c.logger.Error("backend request rejected", "status", resp.StatusCode, "message", errorMessage(body))
		return nil, false, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return body, false, nil
}

func errorMessage(body []byte) string {
	var e ErrorBody
	if err := sonic.Unmarshal(body, &e); err != nil || e.Message == "" {
		return string(body)
	}
	return e.Message
}

func decode[T any](body []byte) (T, error) {
	var v T
	if err := sonic.Unmarshal(body, &v); err != nil {
		return v, fmt.Errorf("failed to parse response: %w", err)
	}
	return v, nil
}

// ListJobs returns every migration matching the filter, following pages
func (c *Client) ListJobs(ctx context.Context, filter domain.JobFilter) ([]domain.Job, error) {
	base, err := FilterQueries(filter)
	if err != nil {
		return nil, err
	}

	migrations, err := fetchAll(ctx, func(ctx context.Context, offset, limit int) ([]Migration, int, error) {
		page, err := pageQueries(offset, limit)
		if err != nil {
			return nil, 0, err
		}
		query := url.Values{"queries[]": append(append([]string{}, base...), page...)}

		body, err := c.doRequest(ctx, http.MethodGet, "/v1/migrations", query)
		if err != nil {
			return nil, 0, err
		}
		list, err := decode[MigrationList](body)
		if err != nil {
			return nil, 0, err
		}
		return list.Migrations, list.Total, nil
	}, c.pageSize)
	if err != nil {
		return nil, err
	}
	return MapJobs(migrations), nil
}

// GetJob returns a single migration
func (c *Client) GetJob(ctx context.Context, id string) (domain.Job, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/v1/migrations/"+url.PathEscape(id), nil)
	if err != nil {
		return domain.Job{}, err
	}
	m, err := decode[Migration](body)
	if err != nil {
		return domain.Job{}, err
	}
	return MapJob(m), nil
}

// CollectionName resolves a collection's display name
func (c *Client) CollectionName(ctx context.Context, databaseID, collectionID string) (string, error) {
	body, err := c.doRequest(ctx, http.MethodGet, collectionPath(databaseID, collectionID), nil)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrAuthFailed) {
			return "", fmt.Errorf("%w: %s:%s", domain.ErrCollectionNotFound, databaseID, collectionID)
		}
		return "", err
	}
	col, err := decode[Collection](body)
	if err != nil {
		return "", err
	}
	return col.Name, nil
}

// CountDocuments returns the number of documents in a collection
func (c *Client) CountDocuments(ctx context.Context, databaseID, collectionID string) (int, error) {
	queries, err := encodeQueries(Query{Method: "limit", Values: []any{1}})
	if err != nil {
		return 0, err
	}
	query := url.Values{"queries[]": queries}

	body, err := c.doRequest(ctx, http.MethodGet, collectionPath(databaseID, collectionID)+"/documents", query)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, fmt.Errorf("%w: %s:%s", domain.ErrCollectionNotFound, databaseID, collectionID)
		}
		return 0, err
	}
	list, err := decode[DocumentList](body)
	if err != nil {
		return 0, err
	}
	return list.Total, nil
}

func collectionPath(databaseID, collectionID string) string {
	return "/v1/databases/" + url.PathEscape(databaseID) + "/collections/" + url.PathEscape(collectionID)
}
