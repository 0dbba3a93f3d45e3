package crawler

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/crimeshield/crimeshield-api/models"
)

// Article is the content extracted from a news article page
type Article struct {
	URL         string
	Title       string
	Description string
	Body        string
	ImageURL    string
	PublishedAt time.Time
}

// maxBodyChars caps the stored article text
const maxBodyChars = 5000

// minParagraphChars drops captions, bylines and share widgets
const minParagraphChars = 40

// nonContentSelectors lists elements to strip before extracting body text.
const nonContentSelectors = "script, style, nav, header, footer, aside, form, figure"

var digitRun = regexp.MustCompile(`[0-9]{3,}`)

// skipSegments are path segments that mark listing or utility pages
var skipSegments = map[string]bool{
	"category": true, "categories": true, "tag": true, "tags": true, "topic": true, "topics": true,
	"author": true, "authors": true, "video": true, "videos": true, "live": true, "login": true,
	"signin": true, "register": true, "subscribe": true, "newsletter": true, "account": true,
	"search": true, "page": true, "contact": true, "about": true, "privacy": true, "terms": true,
}

// Extract parses an article page
func Extract(pageURL string, body []byte) (*Article, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	a := &Article{URL: pageURL}
	a.Title = extractTitle(doc)
	a.Description = metaContent(doc, "meta[property='og:description']", "meta[name='description']", "meta[name='twitter:description']")
	a.Body = extractParagraphs(doc)
	if a.Description == "" {
		a.Description = truncate(a.Body, 300)
	}
	if img := metaContent(doc, "meta[property='og:image']", "meta[name='twitter:image']"); img != "" {
		a.ImageURL = resolve(pageURL, img)
	}
	a.PublishedAt = extractPublished(doc)
	return a, nil
}

func extractTitle(doc *goquery.Document) string {
	if t := metaContent(doc, "meta[property='og:title']", "meta[name='twitter:title']"); t != "" {
		return t
	}
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		return t
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

func metaContent(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if v, ok := doc.Find(sel).First().Attr("content"); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

// extractParagraphs prefers <article> paragraphs and falls back to the whole body.
func extractParagraphs(doc *goquery.Document) string {
	root := doc.Find("article").First()
	if root.Length() == 0 {
		root = doc.Find("body").First()
	}
	root.Find(nonContentSelectors).Remove()

	var parts []string
	size := 0
	root.Find("p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.Join(strings.Fields(s.Text()), " ")
		if len(text) < minParagraphChars {
			return true
		}
		parts = append(parts, text)
		size += len(text)
		return size < maxBodyChars
	})
	return truncate(strings.Join(parts, "\n\n"), maxBodyChars)
}

func extractPublished(doc *goquery.Document) time.Time {
	raw := metaContent(doc, "meta[property='article:published_time']", "meta[name='pubdate']", "meta[itemprop='datePublished']")
	if raw == "" {
		raw, _ = doc.Find("time[datetime]").First().Attr("datetime")
	}
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05Z0700", "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// ExtractLinks returns the candidate article links of a listing page, normalized
// and deduplicated in document order
func ExtractLinks(pageURL string, body []byte) ([]models.ArticleLink, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	seen := map[string]bool{NormalizeURL(pageURL): true}
	var links []models.ArticleLink
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		u := base.ResolveReference(ref)
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text == "" {
			text, _ = s.Attr("title")
		}
		if !IsArticleLink(base, u, text) {
			return
		}
		norm := NormalizeURL(u.String())
		if seen[norm] {
			return
		}
		seen[norm] = true
		links = append(links, models.ArticleLink{URL: norm, Title: text})
	})
	return links, nil
}

// IsArticleLink applies the article heuristics to a resolved link
func IsArticleLink(base, u *url.URL, text string) bool {
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if hostKey(u.Host) != hostKey(base.Host) {
		return false
	}

	var segments []string
	for _, seg := range strings.Split(u.Path, "/") {
		if seg == "" {
			continue
		}
		if skipSegments[strings.ToLower(seg)] {
			return false
		}
		segments = append(segments, seg)
	}
	if len(segments) == 0 {
		return false
	}
	if len(segments) < 2 && !digitRun.MatchString(u.Path) {
		return false
	}

	slug := segments[len(segments)-1]
	return len(text) >= 25 || strings.Count(slug, "-") >= 3
}

// NormalizeURL strips fragments, tracking parameters and trailing slashes so the
// same article always hashes the same
func NormalizeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return raw
	}
	u.Fragment = ""
	u.Host = strings.ToLower(u.Host)
	u.Scheme = strings.ToLower(u.Scheme)

	q := u.Query()
	for k := range q {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, "utm_") || lk == "fbclid" || lk == "gclid" {
			q.Del(k)
		}
	}
	u.RawQuery = q.Encode()

	if len(u.Path) > 1 {
		u.Path = strings.TrimRight(u.Path, "/")
		u.RawPath = ""
	}
	return u.String()
}

// Hash is the sourceHash of a URL
func Hash(rawURL string) string {
	h := sha256.Sum256([]byte(NormalizeURL(rawURL)))
	return hex.EncodeToString(h[:])
}

func hostKey(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}

func resolve(pageURL, ref string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(r).String()
}

// truncate shortens s to at most n runes, preferring the last word break
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	cut := string(runes[:n])
	if i := strings.LastIndex(cut, " "); i > len(cut)/2 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut) + "..."
}
