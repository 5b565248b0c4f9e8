package chart

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const userAgent = "training-song/1.0"

// Client fetches chart data from a JSON chart API.
//
// Lookups are not cached: call volume is low and repeated requests for
// the same date simply re-fetch.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a chart API client. timeout caps each request and
// a timeout is reported like any other transport failure.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// chartResponse is the provider's wire format for one chart date.
type chartResponse struct {
	Date    string `json:"date"`
	Entries []struct {
		Rank         int    `json:"rank"`
		Title        string `json:"title"`
		Artist       string `json:"artist"`
		WeeksOnChart int    `json:"weeks_on_chart"`
	} `json:"entries"`
}

// TopEntry fetches the rank-1 entry for the given chart and date.
// Returns ErrChartUnavailable when the provider has no data for the
// date or chart, and a wrapped ErrProvider on transport or decoding
// failure.
func (c *Client) TopEntry(ctx context.Context, date time.Time, chartID string) (Entry, error) {
	reqURL := fmt.Sprintf("%s/charts/%s?%s", c.baseURL, url.PathEscape(chartID), url.Values{
		"date": {date.Format("2006-01-02")},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: creating request: %v", ErrProvider, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: executing request: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Entry{}, ErrChartUnavailable
	}
	if resp.StatusCode != http.StatusOK {
		return Entry{}, fmt.Errorf("%w: unexpected status %d", ErrProvider, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: reading response body: %v", ErrProvider, err)
	}

	var parsed chartResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Entry{}, fmt.Errorf("%w: parsing response: %v", ErrProvider, err)
	}

	if len(parsed.Entries) == 0 {
		return Entry{}, ErrChartUnavailable
	}

	// The provider returns entries rank-ordered; only the top entry
	// is ever consulted.
	top := parsed.Entries[0]
	return Entry{
		Title:        top.Title,
		Artist:       top.Artist,
		WeeksOnChart: top.WeeksOnChart,
	}, nil
}
