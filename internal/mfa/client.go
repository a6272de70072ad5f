// Package mfa talks to the configured second-factor provider and brokers
// the wait between a Bind asking for a challenge and the HTTP callback that
// resolves it.
package mfa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrProviderError wraps any non-2xx or malformed response from the
// provider, mirroring the original integration's blanket MultifactorError.
var ErrProviderError = errors.New("mfa: provider error")

// Client talks to the MFA provider's check and create endpoints, basic-
// auth'd with the directory's mfa_key/mfa_secret settings.
type Client struct {
	BaseURL    string
	Key        string
	Secret     string
	HTTPClient *http.Client
}

// NewClient builds a Client with a bounded-timeout http.Client.
func NewClient(baseURL, key, secret string) *Client {
	return &Client{
		BaseURL:    baseURL,
		Key:        key,
		Secret:     secret,
		HTTPClient: &http.Client{Timeout: 42 * time.Second},
	}
}

// ValidatePassCode checks a one-shot pass code against the provider's
// "/requests/ra" endpoint, for directories using inline passcode bind
// rather than the redirect flow.
func (c *Client) ValidatePassCode(ctx context.Context, identity, passCode string) (bool, error) {
	body, err := json.Marshal(map[string]string{"Identity": identity, "passCode": passCode})
	if err != nil {
		return false, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/requests/ra", bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.Key, c.Secret)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %s", ErrProviderError, err)
	}
	defer resp.Body.Close()

	var out struct {
		Success bool `json:"success"`
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("%w: status %d", ErrProviderError, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("%w: %s", ErrProviderError, err)
	}
	return out.Success, nil
}

// CreateChallenge opens a redirect-based challenge for identity, returning
// the URL the client must visit; the provider calls callbackURL with the
// result once the user completes it there.
func (c *Client) CreateChallenge(ctx context.Context, identity, callbackURL string, directoryID int64) (string, error) {
	data := map[string]any{
		"identity": identity,
		"claims": map[string]string{
			"uid":        fmt.Sprint(directoryID),
			"grant_type": "multifactor",
		},
		"callback": map[string]string{
			"action": callbackURL,
			"target": "_self",
		},
	}
	body, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/requests", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.Key, c.Secret)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrProviderError, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: status %d", ErrProviderError, resp.StatusCode)
	}

	var out struct {
		Model struct {
			URL string `json:"url"`
		} `json:"model"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.Model.URL == "" {
		return "", fmt.Errorf("%w: malformed create-challenge response", ErrProviderError)
	}
	return out.Model.URL, nil
}
