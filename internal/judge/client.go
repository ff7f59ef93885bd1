// Package judge asks an LLM whether a headline is relevant to a market and
// in which direction it pushes the price.
package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"polysignal/internal/models"
)

const systemPrompt = "You are an analyst evaluating whether a news headline is relevant to a " +
	"prediction market. Respond in raw JSON only, no markdown, no backticks, " +
	"no explanation."

const userPromptTemplate = `Given this headline: %s
and this Polymarket market: %s — %s
Current YES/NO prices: YES=%s, NO=%s

Is this headline relevant to this market? If yes, which direction does it push (YES or NO), and rate your confidence 0-1.

Respond in raw JSON only, no markdown, no backticks, no explanation:
{"relevant": bool, "direction": "YES/NO/null", "confidence": float, "reasoning": "string"}`

// Client calls an OpenAI-compatible chat-completions endpoint.
type Client struct {
	baseURL    string
	model      string
	apiKey     string
	maxTokens  int
	httpClient *http.Client
}

func NewClient(httpClient *http.Client, baseURL, model, apiKey string, maxTokens int) *Client {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if maxTokens <= 0 {
		maxTokens = 256
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		apiKey:     apiKey,
		maxTokens:  maxTokens,
		httpClient: httpClient,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Temperature    float64       `json:"temperature"`
	MaxTokens      int           `json:"max_tokens,omitempty"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Assess returns the structured verdict for one (headline, market) pair.
func (c *Client) Assess(ctx context.Context, headline models.Headline, market models.Market) (*models.Judgment, error) {
	yesPrice, noPrice := "N/A", "N/A"
	if p, ok := market.OutcomePrice("YES"); ok {
		yesPrice = p.String()
	}
	if p, ok := market.OutcomePrice("NO"); ok {
		noPrice = p.String()
	}
	prompt := fmt.Sprintf(userPromptTemplate,
		headline.Title, market.Question, market.Description, yesPrice, noPrice)

	payload := chatRequest{
		Model:       c.model,
		Temperature: 0.2,
		MaxTokens:   c.maxTokens,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
	}
	payload.ResponseFormat.Type = "json_object"

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal judgment request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("judgment API error (%d): %s", resp.StatusCode, string(body))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("judgment response has no choices")
	}
	return ParseVerdict(parsed.Choices[0].Message.Content)
}

// ParseVerdict extracts a Judgment from the model's text output, tolerating
// markdown fences and a literal "null" direction.
func ParseVerdict(text string) (*models.Judgment, error) {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(trimmed, "```")
		trimmed = strings.TrimSpace(trimmed)
	}

	var raw struct {
		Relevant   bool            `json:"relevant"`
		Direction  json.RawMessage `json:"direction"`
		Confidence float64         `json:"confidence"`
		Reasoning  string          `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return nil, fmt.Errorf("parse verdict: %w", err)
	}

	j := &models.Judgment{
		Relevant:   raw.Relevant,
		Confidence: raw.Confidence,
		Reasoning:  raw.Reasoning,
	}
	if j.Confidence < 0 {
		j.Confidence = 0
	}
	if j.Confidence > 1 {
		j.Confidence = 1
	}

	var dir string
	if len(raw.Direction) > 0 && string(raw.Direction) != "null" {
		_ = json.Unmarshal(raw.Direction, &dir)
	}
	dir = strings.ToUpper(strings.TrimSpace(dir))
	if dir == "YES" || dir == "NO" {
		j.Direction = dir
	}
	return j, nil
}
