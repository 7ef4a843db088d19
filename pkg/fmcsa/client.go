// Package fmcsa pulls carrier census, crash, and inspection data from
// the FMCSA open datasets on the Socrata SODA API.
package fmcsa

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
)

// Socrata resource ids on data.transportation.gov.
const (
	CensusResource     = "az4n-8mr2"
	CrashResource      = "aayw-vxb3"
	InspectionResource = "fx4q-ay7w"
)

const (
	defaultBaseURL  = "https://data.transportation.gov/resource"
	defaultPageSize = 5000

	maxIdleConns     = 10
	timeoutInSeconds = 120
	maxAttempts      = 3
)

// retryBaseWait is scaled down in tests.
var retryBaseWait = time.Second

var reqTransport = &http.Transport{
	MaxIdleConns:          maxIdleConns,
	IdleConnTimeout:       timeoutInSeconds * time.Second,
	DisableCompression:    true,
	DisableKeepAlives:     false,
	ResponseHeaderTimeout: time.Duration(timeoutInSeconds) * time.Second,
}

// Client is a paging SODA API reader. The zero value is not usable,
// create one with NewClient.
type Client struct {
	baseURL  string
	token    string
	pageSize int
	hc       *http.Client
}

// ClientOption mutates the client during construction.
type ClientOption func(*Client)

// WithBaseURL overrides the API endpoint, used in tests.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = u }
}

// WithPageSize overrides the per-request row limit.
func WithPageSize(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// NewClient creates a SODA API client. token is the optional Socrata
// app token, an empty token works with tighter rate limits.
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:  defaultBaseURL,
		token:    token,
		pageSize: defaultPageSize,
		hc: &http.Client{
			Timeout:   time.Duration(timeoutInSeconds) * time.Second,
			Transport: reqTransport,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Query narrows a resource fetch. Empty fields are omitted from the
// request.
type Query struct {
	Where  string
	Select string
}

func (c *Client) pageURL(resource string, q Query, limit, offset int) string {
	v := url.Values{}
	v.Set("$limit", fmt.Sprintf("%d", limit))
	v.Set("$offset", fmt.Sprintf("%d", offset))
	v.Set("$order", ":id")
	if q.Where != "" {
		v.Set("$where", q.Where)
	}
	if q.Select != "" {
		v.Set("$select", q.Select)
	}
	return fmt.Sprintf("%s/%s.json?%s", c.baseURL, resource, v.Encode())
}

func (c *Client) get(ctx context.Context, u string, target any) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			wait := retryBaseWait * time.Duration(1<<attempt)
			slog.Debug("retrying request", "attempt", attempt, "wait", wait)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return errors.Wrap(err, "error creating HTTP Get request")
		}
		req.Header.Set("Accept", "application/json")
		if c.token != "" {
			req.Header.Set("X-App-Token", c.token)
		}

		resp, err := c.hc.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode != http.StatusOK {
			io.Copy(io.Discard, resp.Body) //nolint:errcheck
			resp.Body.Close()
			lastErr = errors.Errorf("unexpected status %d from %s", resp.StatusCode, u)
			continue
		}

		err = json.NewDecoder(resp.Body).Decode(target)
		resp.Body.Close()
		if err != nil {
			lastErr = errors.Wrap(err, "error decoding content")
			continue
		}
		return nil
	}
	return errors.Wrapf(lastErr, "request failed after %d attempts", maxAttempts)
}

// fetchAll pages through a resource until the result set is exhausted
// or maxRows is reached. maxRows 0 means unbounded.
func fetchAll[T any](ctx context.Context, c *Client, resource string, q Query, maxRows int) ([]T, error) {
	all := make([]T, 0)
	offset := 0
	for {
		limit := c.pageSize
		if maxRows > 0 && maxRows-len(all) < limit {
			limit = maxRows - len(all)
		}
		if limit <= 0 {
			break
		}

		var page []T
		if err := c.get(ctx, c.pageURL(resource, q, limit, offset), &page); err != nil {
			return nil, errors.Wrapf(err, "failed to fetch %s page at offset %d", resource, offset)
		}
		if len(page) == 0 {
			break
		}

		all = append(all, page...)
		slog.Debug("resource page fetched", "resource", resource, "rows", len(all))
		if len(page) < limit {
			break
		}
		offset += len(page)
	}
	return all, nil
}

// Census fetches carrier census rows matching the query.
func (c *Client) Census(ctx context.Context, q Query, maxRows int) ([]CensusRow, error) {
	if q.Select == "" {
		q.Select = censusSelect
	}
	return fetchAll[CensusRow](ctx, c, CensusResource, q, maxRows)
}

// Crashes fetches crash report rows matching the query.
func (c *Client) Crashes(ctx context.Context, q Query, maxRows int) ([]CrashRow, error) {
	return fetchAll[CrashRow](ctx, c, CrashResource, q, maxRows)
}

// Inspections fetches roadside inspection rows matching the query.
func (c *Client) Inspections(ctx context.Context, q Query, maxRows int) ([]InspectionRow, error) {
	return fetchAll[InspectionRow](ctx, c, InspectionResource, q, maxRows)
}
