// Package nominatim geocodes addresses through an OpenStreetMap Nominatim server.
package nominatim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ErrNoResults is returned when a search matched nothing
var ErrNoResults = errors.New("no geocoding results")

// Place is a geocoded location
type Place struct {
	DisplayName string  `json:"displayName"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	City        string  `json:"city,omitempty"`
	Country     string  `json:"country,omitempty"`
}

// Client wraps the Nominatim API
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Config for the Nominatim client
type Config struct {
	BaseURL   string
	UserAgent string
}

type place struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	Address     struct {
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
		Country string `json:"country"`
	} `json:"address"`
	Error string `json:"error,omitempty"`
}

// NewClient creates a new Nominatim client. Requests are limited to one per
// second, the public server's usage policy.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://nominatim.openstreetmap.org"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "crimeshield-api/1.0"
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// Search geocodes a free-form address, returning at most limit places
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Place, error) {
	if limit <= 0 || limit > 10 {
		limit = 5
	}
	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "jsonv2")
	q.Set("addressdetails", "1")
	q.Set("limit", strconv.Itoa(limit))

	var raw []place
	if err := c.get(ctx, "/search?"+q.Encode(), &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, ErrNoResults
	}
	out := make([]Place, 0, len(raw))
	for _, p := range raw {
		out = append(out, p.toPlace())
	}
	return out, nil
}

// Lookup returns the best match for an address
func (c *Client) Lookup(ctx context.Context, address string) (*Place, error) {
	places, err := c.Search(ctx, address, 1)
	if err != nil {
		return nil, err
	}
	return &places[0], nil
}

// Reverse turns coordinates into an address
func (c *Client) Reverse(ctx context.Context, lat, lng float64) (*Place, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))
	q.Set("format", "jsonv2")
	q.Set("addressdetails", "1")

	var raw place
	if err := c.get(ctx, "/reverse?"+q.Encode(), &raw); err != nil {
		return nil, err
	}
	if raw.Error != "" {
		return nil, ErrNoResults
	}
	p := raw.toPlace()
	return &p, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("nominatim request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("nominatim status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (p place) toPlace() Place {
	lat, _ := strconv.ParseFloat(p.Lat, 64)
	lng, _ := strconv.ParseFloat(p.Lon, 64)
	city := p.Address.City
	if city == "" {
		city = p.Address.Town
	}
	if city == "" {
		city = p.Address.Village
	}
	return Place{DisplayName: p.DisplayName, Lat: lat, Lng: lng, City: city, Country: p.Address.Country}
}
