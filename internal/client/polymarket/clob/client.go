package clob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// Client is a read-only client for the Polymarket CLOB API: order books,
// midpoints and best prices. It places no orders.
type Client struct {
	host       string
	httpClient *http.Client
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.Status, e.Body)
}

func NewClient(httpClient *http.Client, host string) *Client {
	if host == "" {
		host = "https://clob.polymarket.com"
	}
	host = strings.TrimRight(host, "/")
	return &Client{
		host:       host,
		httpClient: httpClient,
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
	return c.do(req)
}

func (c *Client) doPost(ctx context.Context, path string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+path, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
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

// GetBook fetches the full order book for a token.
func (c *Client) GetBook(ctx context.Context, tokenID string) (*OrderBook, error) {
	if tokenID == "" {
		return nil, fmt.Errorf("token_id is required")
	}
	query := url.Values{}
	query.Set("token_id", tokenID)
	body, err := c.doGet(ctx, "/book", query)
	if err != nil {
		return nil, err
	}
	return parseOrderBook(body)
}

// GetMidpoint fetches the midpoint quote for a token.
func (c *Client) GetMidpoint(ctx context.Context, tokenID string) (decimal.Decimal, error) {
	if tokenID == "" {
		return decimal.Zero, fmt.Errorf("token_id is required")
	}
	query := url.Values{}
	query.Set("token_id", tokenID)
	body, err := c.doGet(ctx, "/midpoint", query)
	if err != nil {
		return decimal.Zero, err
	}
	return parseKeyedDecimal(body, "mid")
}

// GetPrice fetches the best price for a token on the given side (BUY/SELL).
func (c *Client) GetPrice(ctx context.Context, tokenID, side string) (decimal.Decimal, error) {
	if tokenID == "" {
		return decimal.Zero, fmt.Errorf("token_id is required")
	}
	query := url.Values{}
	query.Set("token_id", tokenID)
	if side != "" {
		query.Set("side", side)
	}
	body, err := c.doGet(ctx, "/price", query)
	if err != nil {
		return decimal.Zero, err
	}
	return parseKeyedDecimal(body, "price")
}

type tokenParam struct {
	TokenID string `json:"token_id"`
}

// GetMidpoints batch-fetches midpoint quotes keyed by token id.
func (c *Client) GetMidpoints(ctx context.Context, tokenIDs []string) (map[string]decimal.Decimal, error) {
	if len(tokenIDs) == 0 {
		return map[string]decimal.Decimal{}, nil
	}
	params := make([]tokenParam, 0, len(tokenIDs))
	for _, id := range tokenIDs {
		params = append(params, tokenParam{TokenID: id})
	}
	body, err := c.doPost(ctx, "/midpoints", params)
	if err != nil {
		return nil, err
	}
	var raw map[string]Decimal
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("invalid midpoints response: %w", err)
	}
	out := make(map[string]decimal.Decimal, len(raw))
	for id, d := range raw {
		out[id] = d.Decimal
	}
	return out, nil
}

// GetBooks batch-fetches order books for multiple tokens.
func (c *Client) GetBooks(ctx context.Context, tokenIDs []string) ([]OrderBook, error) {
	if len(tokenIDs) == 0 {
		return nil, nil
	}
	params := make([]tokenParam, 0, len(tokenIDs))
	for _, id := range tokenIDs {
		params = append(params, tokenParam{TokenID: id})
	}
	body, err := c.doPost(ctx, "/books", params)
	if err != nil {
		return nil, err
	}
	var books []OrderBook
	if err := json.Unmarshal(body, &books); err != nil {
		return nil, fmt.Errorf("invalid books response: %w", err)
	}
	return books, nil
}
