// Package reddit reads public posts from the Reddit JSON API.
package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultLimit and MaxLimit bound listing sizes
const (
	DefaultLimit = 25
	MaxLimit     = 100
)

var (
	// ErrNotFound is returned when a permalink does not resolve to a post
	ErrNotFound = errors.New("reddit post not found")
	// ErrInvalidURL is returned for links outside reddit.com
	ErrInvalidURL = errors.New("not a reddit post url")
)

var sorts = map[string]bool{"relevance": true, "hot": true, "top": true, "new": true, "comments": true}

// Post is a simplified Reddit submission
type Post struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Text        string    `json:"text"`
	Author      string    `json:"author"`
	Subreddit   string    `json:"subreddit"`
	Permalink   string    `json:"permalink"`
	URL         string    `json:"url"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	Score       int       `json:"score"`
	NumComments int       `json:"numComments"`
	CreatedAt   time.Time `json:"createdAt"`
}

type listing struct {
	Data struct {
		Children []struct {
			Kind string  `json:"kind"`
			Data rawPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type rawPost struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Author      string  `json:"author"`
	Subreddit   string  `json:"subreddit"`
	Permalink   string  `json:"permalink"`
	URL         string  `json:"url"`
	Thumbnail   string  `json:"thumbnail"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
	Preview     struct {
		Images []struct {
			Source struct {
				URL string `json:"url"`
			} `json:"source"`
		} `json:"images"`
	} `json:"preview"`
}

// Config for the Reddit client
type Config struct {
	BaseURL   string
	UserAgent string
}

// Client wraps the unauthenticated Reddit JSON endpoints
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// NewClient creates a new Reddit client
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.reddit.com"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "crimeshield-api/1.0"
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// ClampLimit keeps a requested listing size inside 1..MaxLimit
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Search runs a Reddit search, optionally restricted to one subreddit
func (c *Client) Search(ctx context.Context, query, subreddit, sort string, limit int) ([]Post, error) {
	if !sorts[sort] {
		sort = "new"
	}
	q := url.Values{}
	q.Set("q", query)
	q.Set("sort", sort)
	q.Set("limit", strconv.Itoa(ClampLimit(limit)))
	q.Set("raw_json", "1")

	path := "/search.json"
	if subreddit != "" {
		path = "/r/" + url.PathEscape(subreddit) + "/search.json"
		q.Set("restrict_sr", "1")
	}

	var l listing
	if err := c.get(ctx, path+"?"+q.Encode(), &l); err != nil {
		return nil, err
	}
	return l.posts(), nil
}

// Hot returns the hot posts of a subreddit
func (c *Client) Hot(ctx context.Context, subreddit string, limit int) ([]Post, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(ClampLimit(limit)))
	q.Set("raw_json", "1")

	var l listing
	if err := c.get(ctx, "/r/"+url.PathEscape(subreddit)+"/hot.json?"+q.Encode(), &l); err != nil {
		return nil, err
	}
	return l.posts(), nil
}

// Fetch loads a single post from a permalink ("/r/x/comments/id/slug/") or a
// full reddit.com URL
func (c *Client) Fetch(ctx context.Context, link string) (*Post, error) {
	permalink, err := Permalink(link)
	if err != nil {
		return nil, err
	}

	// The comments page is an array of two listings, the post then its comments.
	var pages []listing
	if err := c.get(ctx, strings.TrimRight(permalink, "/")+".json?raw_json=1", &pages); err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, ErrNotFound
	}
	posts := pages[0].posts()
	if len(posts) == 0 {
		return nil, ErrNotFound
	}
	return &posts[0], nil
}

// Permalink extracts the /r/.../comments/... path from a link
func Permalink(link string) (string, error) {
	link = strings.TrimSpace(link)
	if strings.HasPrefix(link, "/r/") {
		if !strings.Contains(link, "/comments/") {
			return "", ErrInvalidURL
		}
		return link, nil
	}
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return "", ErrInvalidURL
	}
	host := strings.ToLower(u.Hostname())
	if host != "reddit.com" && !strings.HasSuffix(host, ".reddit.com") {
		return "", ErrInvalidURL
	}
	if !strings.Contains(u.Path, "/comments/") {
		return "", ErrInvalidURL
	}
	return u.Path, nil
}

// PostURL returns the canonical reddit.com URL of a post
func (p Post) PostURL() string {
	return "https://www.reddit.com" + p.Permalink
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("reddit request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("reddit status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (l listing) posts() []Post {
	out := make([]Post, 0, len(l.Data.Children))
	for _, ch := range l.Data.Children {
		if ch.Kind != "t3" {
			continue
		}
		out = append(out, ch.Data.toPost())
	}
	return out
}

func (p rawPost) toPost() Post {
	image := ""
	if len(p.Preview.Images) > 0 {
		image = html.UnescapeString(p.Preview.Images[0].Source.URL)
	} else if strings.HasPrefix(p.Thumbnail, "http") {
		image = p.Thumbnail
	}
	return Post{
		ID:          p.ID,
		Title:       p.Title,
		Text:        p.Selftext,
		Author:      p.Author,
		Subreddit:   p.Subreddit,
		Permalink:   p.Permalink,
		URL:         p.URL,
		ImageURL:    image,
		Score:       p.Score,
		NumComments: p.NumComments,
		CreatedAt:   time.Unix(int64(p.CreatedUTC), 0).UTC(),
	}
}
