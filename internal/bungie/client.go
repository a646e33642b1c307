// Package bungie talks to the aggregate activity stats REST endpoint.
package bungie

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"example.com/clanstats/internal/domain"
)

// Client fetches aggregate activity stats for one character at a time.
type Client struct {
	urlTemplate string
	apiKey      string
	httpClient  *http.Client
}

// NewClient constructs a Client. urlTemplate uses positional placeholders:
// {0} membership type, {1} destiny ID, {2} character ID.
func NewClient(urlTemplate, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		urlTemplate: urlTemplate,
		apiKey:      apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// RequestURL expands the URL template for the given character.
func (c *Client) RequestURL(character domain.Character) string {
	replacer := strings.NewReplacer(
		"{0}", strconv.Itoa(character.DestinyMembershipType),
		"{1}", character.DestinyID,
		"{2}", character.CharacterID,
	)
	return replacer.Replace(c.urlTemplate)
}

// AggregateStats issues the GET for one character and decodes the response.
func (c *Client) AggregateStats(ctx context.Context, requestURL string) (*domain.AggregateStats, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("aggregate stats request failed: status %d: %s", resp.StatusCode, body)
	}

	var stats domain.AggregateStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, fmt.Errorf("decode aggregate stats: %w", err)
	}
	return &stats, nil
}
