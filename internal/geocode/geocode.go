// Package geocode resolves free-text addresses through a Nominatim search
// endpoint, restricted to the Montgomery County, Maryland area.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Defaults for the public Nominatim service.
const (
	DefaultBaseURL   = "https://nominatim.openstreetmap.org"
	DefaultUserAgent = "MCRRCRunFinder/1.0 (community running group finder)"

	// viewbox is the search area as "minLng,minLat,maxLng,maxLat".
	viewbox = "-77.53,38.93,-76.88,39.35"
)

// Result is one candidate location.
type Result struct {
	DisplayName string  `json:"displayName"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
}

// Client queries a Nominatim-compatible search API.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// New returns a client for baseURL. Empty arguments fall back to the
// public service and the default User-Agent.
func New(baseURL, userAgent string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// nominatimResult is the upstream shape; coordinates arrive as strings.
type nominatimResult struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

// Search returns up to five matches for q. q must not be blank.
func (c *Client) Search(ctx context.Context, q string) ([]Result, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, fmt.Errorf("geocode: empty query")
	}

	params := url.Values{}
	params.Set("q", q)
	params.Set("format", "json")
	params.Set("limit", "5")
	params.Set("addressdetails", "1")
	params.Set("countrycodes", "us")
	params.Set("viewbox", viewbox)
	params.Set("bounded", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("geocode: creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode: performing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("geocode: reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode: upstream status %d", resp.StatusCode)
	}

	var raw []nominatimResult
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("geocode: decoding response: %w", err)
	}

	out := make([]Result, 0, len(raw))
	for _, r := range raw {
		lat, err := strconv.ParseFloat(r.Lat, 64)
		if err != nil {
			continue
		}
		lng, err := strconv.ParseFloat(r.Lon, 64)
		if err != nil {
			continue
		}
		out = append(out, Result{DisplayName: r.DisplayName, Lat: lat, Lng: lng})
	}
	return out, nil
}
