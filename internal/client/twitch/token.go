package twitch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const DefaultTokenURL = "https://id.twitch.tv/oauth2/token"

// AuthError reports a failed client-credentials exchange. There is no retry
// path for it: without a token no enrichment can run.
type AuthError struct {
	Status int
	Body   string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("token exchange failed (%d): %s", e.Status, e.Body)
}

type Client struct {
	tokenURL     string
	clientID     string
	clientSecret string
	httpClient   *http.Client
}

func NewClient(httpClient *http.Client, tokenURL, clientID, clientSecret string) *Client {
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   httpClient,
	}
}

// Token exchanges the stored client credentials for a bearer token. The
// token carries no client-side expiry; callers must treat downstream
// rejections as per-item failures rather than reauthenticate mid-run.
func (c *Client) Token(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &AuthError{Status: resp.StatusCode, Body: string(body)}
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", &AuthError{Status: resp.StatusCode, Body: "empty access_token"}
	}
	return payload.AccessToken, nil
}
