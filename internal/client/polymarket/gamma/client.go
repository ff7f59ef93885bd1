package gamma

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"polysignal/internal/models"
)

// Client is a read-only client for the Polymarket Gamma API (market
// metadata). Pagination is throttled by the supplied limiter.
type Client struct {
	host       string
	httpClient *http.Client
	limiter    *rate.Limiter
	pageLimit  int
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.Status, e.Body)
}

func NewClient(httpClient *http.Client, host string, pageLimit int, pagesPerSec float64) *Client {
	if host == "" {
		host = "https://gamma-api.polymarket.com"
	}
	host = strings.TrimRight(host, "/")
	if pageLimit <= 0 {
		pageLimit = 100
	}
	if pagesPerSec <= 0 {
		pagesPerSec = 4
	}
	return &Client{
		host:       host,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(pagesPerSec), 1),
		pageLimit:  pageLimit,
	}
}

func (c *Client) doGet(ctx context.Context, path string, query url.Values) ([]byte, error) {
	fullURL := c.host + path
	if len(query) > 0 {
		fullURL = fullURL + "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// FetchMarketsPage fetches one page of markets.
func (c *Client) FetchMarketsPage(ctx context.Context, limit, offset int, params url.Values) ([]models.Market, error) {
	query := url.Values{}
	for k, vs := range params {
		for _, v := range vs {
			query.Add(k, v)
		}
	}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))
	body, err := c.doGet(ctx, "/markets", query)
	if err != nil {
		return nil, err
	}
	return parseMarkets(body)
}

// FetchAllActiveMarkets pages through every active, non-closed market.
func (c *Client) FetchAllActiveMarkets(ctx context.Context) ([]models.Market, error) {
	params := url.Values{}
	params.Set("active", "true")
	params.Set("closed", "false")

	var all []models.Market
	offset := 0
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		page, err := c.FetchMarketsPage(ctx, c.pageLimit, offset, params)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		all = append(all, page...)
		if len(page) < c.pageLimit {
			break
		}
		offset += c.pageLimit
	}
	return all, nil
}
