package oembed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client asks an oEmbed-style resolver for a link's title when the user
// saves a bare URL. Strictly best effort: callers log and move on.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

type titleResponse struct {
	Title string `json:"title"`
}

func (c *Client) FetchTitle(ctx context.Context, rawURL string) (string, error) {
	if c.baseURL == "" {
		return "", fmt.Errorf("oembed resolver not configured")
	}

	endpoint := fmt.Sprintf(
		"%s/oembed?url=%s&format=json",
		c.baseURL,
		url.QueryEscape(rawURL),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf(
			"oembed resolver error: status=%d body=%s",
			resp.StatusCode,
			string(b),
		)
	}

	var payload titleResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	if payload.Title == "" {
		return "", fmt.Errorf("oembed resolver returned no title")
	}

	return payload.Title, nil
}
