package crawler

import (
	"net/url"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const articleHTML = `<!DOCTYPE html>
<html>
<head>
  <title>Man arrested after downtown robbery | City News</title>
  <meta property="og:title" content="Man arrested after downtown robbery">
  <meta property="og:description" content="Police arrested a 34-year-old man on Tuesday.">
  <meta property="og:image" content="/img/robbery.jpg">
  <meta property="article:published_time" content="2024-05-14T09:30:00Z">
</head>
<body>
  <nav><p>Home News Sports Weather and everything else in the menu</p></nav>
  <article>
    <h1>Man arrested after downtown robbery</h1>
    <p>Share</p>
    <p>Police arrested a 34-year-old man after a convenience store was robbed on Main Street.</p>
    <p>Officers said the suspect was found two blocks away with the stolen cash on him.</p>
    <script>var tracking = "should not appear in the body text at all";</script>
  </article>
  <footer><p>Copyright City News, all rights reserved, do not republish anything.</p></footer>
</body>
</html>`

const listingHTML = `<html><body>
  <a href="/news/local/man-arrested-after-downtown-robbery">Man arrested after downtown robbery</a>
  <a href="/news/local/man-arrested-after-downtown-robbery/?utm_source=home#comments">Man arrested after downtown robbery (again)</a>
  <a href="/news/2024/0514">Council approves new budget for police</a>
  <a href="/category/crime">Crime news from around the whole region</a>
  <a href="/tag/robbery/more-robbery-stories-here">More robbery stories and other coverage</a>
  <a href="/about">About us and everything we do for the city</a>
  <a href="/news/x">Tiny</a>
  <a href="mailto:tips@citynews.test">Send us your tips about crimes in town</a>
  <a href="https://other.test/news/local/a-b-c-d">Someone else reported a robbery downtown</a>
</body></html>`

func TestExtract(t *testing.T) {
	a, err := Extract("https://citynews.test/news/local/man-arrested", []byte(articleHTML))
	require.NoError(t, err)

	assert.Equal(t, "Man arrested after downtown robbery", a.Title)
	assert.Equal(t, "Police arrested a 34-year-old man on Tuesday.", a.Description)
	assert.Equal(t, "https://citynews.test/img/robbery.jpg", a.ImageURL)
	assert.Equal(t, time.Date(2024, 5, 14, 9, 30, 0, 0, time.UTC), a.PublishedAt)
	assert.Contains(t, a.Body, "convenience store was robbed")
	assert.Contains(t, a.Body, "\n\nOfficers said")
	assert.NotContains(t, a.Body, "Share")
	assert.NotContains(t, a.Body, "tracking")
	assert.NotContains(t, a.Body, "Copyright")
}

func TestExtractFallsBackToBody(t *testing.T) {
	html := `<html><head><title>Fallback title</title></head><body>
	<p>This paragraph is long enough to be kept as article body text.</p></body></html>`
	a, err := Extract("https://citynews.test/a", []byte(html))
	require.NoError(t, err)
	assert.Equal(t, "Fallback title", a.Title)
	assert.Equal(t, "This paragraph is long enough to be kept as article body text.", a.Description)
	assert.True(t, a.PublishedAt.IsZero())
}

func TestExtractNonLatinDescription(t *testing.T) {
	body := strings.Repeat("警察逮捕了一名嫌疑人", 100)
	html := `<html><head><title>市中心抢劫案</title></head><body><p>` + body + `</p></body></html>`
	a, err := Extract("https://citynews.test/zh/a", []byte(html))
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(a.Description))
	assert.Equal(t, 303, utf8.RuneCountInString(a.Description))
	assert.True(t, strings.HasSuffix(a.Description, "..."))
	assert.True(t, strings.HasPrefix(a.Description, "警察逮捕了一名嫌疑人"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "héllo wörld...", truncate("héllo wörld again", 13))
	cut := truncate(strings.Repeat("警察逮捕了一名嫌疑人", 100), 301)
	assert.True(t, utf8.ValidString(cut))
	assert.Equal(t, 304, utf8.RuneCountInString(cut))
}

func TestExtractLinks(t *testing.T) {
	links, err := ExtractLinks("https://www.citynews.test/news", []byte(listingHTML))
	require.NoError(t, err)

	var urls []string
	for _, l := range links {
		urls = append(urls, l.URL)
	}
	assert.Equal(t, []string{
		"https://www.citynews.test/news/local/man-arrested-after-downtown-robbery",
		"https://www.citynews.test/news/2024/0514",
	}, urls)
	assert.Equal(t, "Man arrested after downtown robbery", links[0].Title)
}

func TestIsArticleLink(t *testing.T) {
	base, _ := url.Parse("https://citynews.test/")
	cases := []struct {
		link string
		text string
		want bool
	}{
		{"https://citynews.test/crime/police-seek-witnesses-shooting", "", true},
		{"https://www.citynews.test/crime/ok", "A long enough anchor text for an article", true},
		{"https://citynews.test/crime/ok", "short", false},
		{"https://citynews.test/12345", "A long enough anchor text for an article", true},
		{"https://citynews.test/crime", "A long enough anchor text for an article", false},
		{"https://citynews.test/author/jane-doe-the-reporter", "", false},
		{"ftp://citynews.test/crime/a-b-c-d", "", false},
	}
	for _, c := range cases {
		u, err := url.Parse(c.link)
		require.NoError(t, err)
		assert.Equal(t, c.want, IsArticleLink(base, u, c.text), c.link)
	}
}

func TestNormalizeURLAndHash(t *testing.T) {
	assert.Equal(t, "https://citynews.test/a/b?id=7",
		NormalizeURL("HTTPS://CityNews.test/a/b/?utm_source=x&id=7&fbclid=abc#top"))
	assert.Equal(t, "https://citynews.test/", NormalizeURL("https://citynews.test/"))

	assert.Equal(t, Hash("https://citynews.test/a/b/"), Hash("https://citynews.test/a/b?utm_medium=email"))
	assert.Len(t, Hash("https://citynews.test/a"), 64)
}
