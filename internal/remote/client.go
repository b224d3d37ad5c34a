// Package remote provides a read-only client for the remote store's REST
// table-select interface (Supabase/PostgREST).
//
// Writes always go through SQL; this client only pages records out of the
// remote tables for from_remote syncs when no direct DSN is configured.
package remote

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
)

// DefaultPageSize is the number of records fetched per request.
const DefaultPageSize = 500

// Client talks to a PostgREST-compatible endpoint.
type Client struct {
	baseURL  string
	apiKey   string
	pageSize int
	httpc    *http.Client
}

// New creates a client for the given base URL (e.g.
// https://xyzcompany.supabase.co). The API key is sent both as apikey and
// bearer token, as Supabase expects. A zero timeout disables the per-request
// deadline; callers should not do that, a hung call stalls the whole batch.
func New(baseURL, apiKey string, timeout time.Duration, pageSize int) *Client {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		pageSize: pageSize,
		httpc:    &http.Client{Timeout: timeout},
	}
}

// Select pages through table and returns up to limit records (0 = all).
// Records come back as decoded JSON objects keyed by column name.
func (c *Client) Select(ctx context.Context, table string, limit int) ([]map[string]any, error) {
	var records []map[string]any
	offset := 0

	for {
		size := c.pageSize
		if limit > 0 && limit-len(records) < size {
			size = limit - len(records)
		}
		if size <= 0 {
			break
		}

		page, err := c.selectPage(ctx, table, size, offset)
		if err != nil {
			return nil, err
		}
		records = append(records, page...)

		if len(page) < size {
			break
		}
		offset += len(page)
	}

	return records, nil
}

func (c *Client) selectPage(ctx context.Context, table string, limit, offset int) ([]map[string]any, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	endpoint := fmt.Sprintf("%s/rest/v1/%s?%s", c.baseURL, url.PathEscape(table), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", table, err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	res, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", table, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusPartialContent {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, fmt.Errorf("remote returned %d for %s: %s", res.StatusCode, table, strings.TrimSpace(string(body)))
	}

	var page []map[string]any
	if err := json.NewDecoder(res.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode %s page: %w", table, err)
	}
	return page, nil
}
