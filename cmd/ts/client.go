package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/koayon/training-song/internal/song"
)

// apiClient talks to the training-song API.
type apiClient struct {
	baseURL    string
	httpClient *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type songParams struct {
	Percentage float64
	Chart      string
	Autoplay   bool
	Email      string
	Code       string
}

// emailInDB reports whether the server already holds a credential for
// the email.
func (c *apiClient) emailInDB(ctx context.Context, email string) (bool, error) {
	reqURL := c.baseURL + "/email_in_db?" + url.Values{"email": {email}}.Encode()

	body, err := c.get(ctx, reqURL)
	if err != nil {
		return false, err
	}

	var parsed struct {
		PresentInDB string `json:"present_in_db"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return false, fmt.Errorf("parsing response: %w", err)
	}
	return parsed.PresentInDB != "", nil
}

// trainingSong requests the song for a percentage.
func (c *apiClient) trainingSong(ctx context.Context, params songParams) (song.Selection, error) {
	values := url.Values{
		"p":        {strconv.FormatFloat(params.Percentage, 'f', -1, 64)},
		"chart":    {params.Chart},
		"autoplay": {strconv.FormatBool(params.Autoplay)},
		"email":    {params.Email},
	}
	if params.Code != "" {
		values.Set("spotify_client_code", params.Code)
	}

	body, err := c.get(ctx, c.baseURL+"/?"+values.Encode())
	if err != nil {
		return song.Selection{}, err
	}

	var sel song.Selection
	if err := json.Unmarshal(body, &sel); err != nil {
		return song.Selection{}, fmt.Errorf("parsing response: %w", err)
	}
	return sel, nil
}

func (c *apiClient) get(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Detail != "" {
			return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Detail)
		}
		return nil, fmt.Errorf("API error: status %d", resp.StatusCode)
	}
	return body, nil
}
