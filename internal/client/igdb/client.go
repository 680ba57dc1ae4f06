package igdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultBaseURL    = "https://api.igdb.com/v4"
	DefaultMaxRetries = 3
	DefaultRetryAfter = 5 * time.Second

	steamDomain = "store.steampowered.com"
)

// ErrMaxRetries is returned when the bounded retry budget is spent without a
// terminal response; the caller skips the item and moves on.
var ErrMaxRetries = errors.New("igdb: max retries reached")

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.Status, e.Body)
}

type Client struct {
	host              string
	clientID          string
	httpClient        *http.Client
	maxRetries        int
	defaultRetryAfter time.Duration

	// sleep is swapped out in tests so backoffs can be counted.
	sleep func(time.Duration)
}

func NewClient(httpClient *http.Client, host, clientID string) *Client {
	if host == "" {
		host = DefaultBaseURL
	}
	host = strings.TrimRight(host, "/")
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		host:              host,
		clientID:          clientID,
		httpClient:        httpClient,
		maxRetries:        DefaultMaxRetries,
		defaultRetryAfter: DefaultRetryAfter,
		sleep:             time.Sleep,
	}
}

func (c *Client) WithRetries(maxRetries int, defaultRetryAfter time.Duration) *Client {
	if maxRetries > 0 {
		c.maxRetries = maxRetries
	}
	if defaultRetryAfter > 0 {
		c.defaultRetryAfter = defaultRetryAfter
	}
	return c
}

// GameInfo looks up one game by its IGDB id. Rate-limit responses are
// retried after the server-supplied wait, consuming one attempt each; any
// other non-success status is terminal for this item.
func (c *Client) GameInfo(ctx context.Context, gameID, token string) (GameInfo, error) {
	query := fmt.Sprintf("fields url,first_release_date,websites.url; where id = %s;", gameID)

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		status, header, body, err := c.doRequest(ctx, "/games", token, query)
		if err != nil {
			return GameInfo{}, err
		}

		switch {
		case status == http.StatusOK:
			return parseGameInfo(body), nil
		case status == http.StatusTooManyRequests:
			c.sleep(retryAfter(header, c.defaultRetryAfter))
		default:
			return GameInfo{}, &APIError{Status: status, Body: string(body)}
		}
	}

	return GameInfo{}, ErrMaxRetries
}

func (c *Client) doRequest(ctx context.Context, path, token, query string) (int, http.Header, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+path, strings.NewReader(query))
	if err != nil {
		return 0, nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Client-ID", c.clientID)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, resp.Header, body, nil
}

// parseGameInfo treats an empty or unparseable success body as not-found:
// all fields stay empty and the item is never retried.
func parseGameInfo(body []byte) GameInfo {
	var records []gameRecord
	if err := json.Unmarshal(body, &records); err != nil || len(records) == 0 {
		return GameInfo{}
	}

	record := records[0]
	info := GameInfo{
		IGDBURL:          record.URL,
		FirstReleaseDate: record.FirstReleaseDate,
	}
	for _, site := range record.Websites {
		if strings.Contains(site.URL, steamDomain) {
			url := site.URL
			info.SteamURL = &url
			break
		}
	}
	return info
}

func retryAfter(header http.Header, fallback time.Duration) time.Duration {
	raw := header.Get("Retry-After")
	if raw == "" {
		return fallback
	}
	secs, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || secs < 0 {
		return fallback
	}
	return time.Duration(secs) * time.Second
}
