// Package gemini реализует клиент generateContent API генеративной модели.
// Временные ошибки (сеть, 429, 5xx) повторяются с экспоненциальной задержкой.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/magabrotheeeer/interview-coach/internal/config"
)

// ErrNotConfigured ключ API не задан
var ErrNotConfigured = errors.New("gemini api key is not configured")

// Client клиент API
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	maxElapsed time.Duration
}

// NewClient создает клиента по конфигу
func NewClient(cfg config.Gemini) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		maxElapsed: cfg.MaxElapsed,
	}
}

// GenerateText отправляет один текстовый промпт и возвращает текст первого кандидата
func (c *Client) GenerateText(ctx context.Context, prompt string, gen GenerationConfig) (string, error) {
	const op = "gemini.GenerateText"
	if c.apiKey == "" {
		return "", fmt.Errorf("%s: %w", op, ErrNotConfigured)
	}

	body, err := json.Marshal(GenerateRequest{
		Contents:         []Content{{Parts: []Part{{Text: prompt}}}},
		GenerationConfig: gen,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	var result GenerateResponse
	operation := func() error {
		return c.do(ctx, body, &result)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	if c.maxElapsed > 0 {
		b.MaxElapsedTime = c.maxElapsed
	}
	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%s: empty response", op)
	}
	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("%s: empty response", op)
	}
	return text, nil
}

func (c *Client) do(ctx context.Context, body []byte, out *GenerateResponse) error {
	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		statusErr := fmt.Errorf("unexpected status %d: %s", resp.StatusCode, apiMessage(respBody))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return statusErr
		}
		return backoff.Permanent(statusErr)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return backoff.Permanent(fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func apiMessage(body []byte) string {
	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return apiErr.Error.Message
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return string(body)
}
