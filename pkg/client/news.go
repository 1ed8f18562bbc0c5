package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Sternrassler/trendnow-cache/pkg/cache"
	"github.com/Sternrassler/trendnow-cache/pkg/models"
)

// Endpoints of the news API.
const (
	TrendingsPath = cache.TrendingsPath
	TopicsPath    = "/v2/info/topics"
)

// TrendingQuery selects one page of trending news.
type TrendingQuery struct {
	Topic    string
	Language string
	Country  string // omitted when empty
	Page     int    // omitted when <= 1
}

// RawQuery encodes q in the fixed order topic, language, country, page.
// The first page carries no page parameter, so its URL is the parent URL of
// every later page.
func (q TrendingQuery) RawQuery() string {
	parts := []string{
		"topic=" + url.QueryEscape(q.Topic),
		"language=" + url.QueryEscape(q.Language),
	}
	if q.Country != "" {
		parts = append(parts, "country="+url.QueryEscape(q.Country))
	}
	if q.Page > 1 {
		parts = append(parts, cache.PageParam+"="+strconv.Itoa(q.Page))
	}
	return strings.Join(parts, "&")
}

// Endpoint returns the request path and query for q.
func (q TrendingQuery) Endpoint() string {
	return TrendingsPath + "?" + q.RawQuery()
}

// NewsResult is one decoded page of trending news.
type NewsResult struct {
	News       []models.News
	Size       int
	Page       int
	TotalPages int

	// URL is the exact request URL the page was cached under
	URL string

	// CacheStatus is the X-Cache value of the response
	CacheStatus string
}

// FromCache reports whether the page was served without a network request.
func (r *NewsResult) FromCache() bool {
	return r.CacheStatus == cache.StatusHit
}

// TrendingURL returns the absolute request URL for q.
func (c *Client) TrendingURL(q TrendingQuery) string {
	return c.config.BaseURL + q.Endpoint()
}

// FetchTrendingNews fetches one page of trending news.
// The result says whether it came from the response cache; recording the
// fetch in the metadata store is left to the caller.
func (c *Client) FetchTrendingNews(ctx context.Context, q TrendingQuery) (*NewsResult, error) {
	if q.Topic == "" || q.Language == "" {
		return nil, fmt.Errorf("topic and language are required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.TrendingURL(q), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch trending news: %w", err)
	}
	defer resp.Body.Close()

	var page models.PaginationResponse[models.News]
	if err := decodeResponse(resp, &page); err != nil {
		return nil, err
	}
	if !page.Success {
		return nil, ErrUnsuccessful
	}

	return &NewsResult{
		News:        page.Data,
		Size:        page.Size,
		Page:        page.Page,
		TotalPages:  page.TotalPages,
		URL:         req.URL.String(),
		CacheStatus: resp.Header.Get(cache.HeaderCache),
	}, nil
}

// FetchSupportedTopics fetches the topics the API supports.
func (c *Client) FetchSupportedTopics(ctx context.Context) ([]models.Topic, error) {
	resp, err := c.Get(ctx, TopicsPath)
	if err != nil {
		return nil, fmt.Errorf("fetch topics: %w", err)
	}
	defer resp.Body.Close()

	var body models.BasicResponse[[]models.Topic]
	if err := decodeResponse(resp, &body); err != nil {
		return nil, err
	}
	if !body.Success {
		return nil, ErrUnsuccessful
	}
	return body.Data, nil
}

// decodeResponse turns a non-200 response into an *APIError and decodes
// a 200 body into v.
func decodeResponse(resp *http.Response, v any) error {
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		errClass := classifyStatus(resp.StatusCode)
		if errClass == "" {
			errClass = ErrorClassClient
		}
		return &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
			Message:    strings.TrimSpace(resp.Status + " " + string(msg)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
