package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

const (
	DefaultSearchURL = "https://www.google.com/search"
	// DefaultRatingSelector is the knowledge-panel block listing review scores.
	DefaultRatingSelector = "div.Ap5OSd"
	DefaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/58.0.3029.110 Safari/537.3"
)

// GoogleSearch scrapes the rating panel of a web search for a title.
type GoogleSearch struct {
	BaseURL   string
	Selector  string
	UserAgent string
	Client    *http.Client
}

func NewGoogleSearch(baseURL, selector, userAgent string, client *http.Client) *GoogleSearch {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultSearchURL
	}
	if strings.TrimSpace(selector) == "" {
		selector = DefaultRatingSelector
	}
	if strings.TrimSpace(userAgent) == "" {
		userAgent = DefaultUserAgent
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &GoogleSearch{BaseURL: baseURL, Selector: selector, UserAgent: userAgent, Client: client}
}

func (s *GoogleSearch) Name() string { return "google" }

// RatingText searches for "{title} - {type}" and returns the flattened text of
// the first element matching Selector, one visual line per text line. A page
// without the panel yields "" and no error.
func (s *GoogleSearch) RatingText(ctx context.Context, title, contentType string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", fmt.Errorf("google: empty title")
	}
	u, err := url.Parse(s.BaseURL)
	if err != nil {
		return "", fmt.Errorf("google: parse base url: %w", err)
	}
	q := u.Query()
	q.Set("q", title+" - "+contentType)
	u.RawQuery = q.Encode()

	header := http.Header{}
	header.Set("Cache-Control", "no-cache")
	header.Set("Referer", "https://www.google.com/")
	header.Set("User-Agent", s.UserAgent)

	resp, err := get(ctx, s.Client, u.String(), header)
	if err != nil {
		return "", fmt.Errorf("google: %w", err)
	}
	defer resp.Body.Close()

	body, err := charset.NewReader(io.LimitReader(resp.Body, maxHTMLBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		return "", fmt.Errorf("google: charset: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return "", fmt.Errorf("google: parse html: %w", err)
	}
	return RegionText(doc, s.Selector), nil
}

// RegionText flattens the first element matching selector, or returns "".
func RegionText(doc *goquery.Document, selector string) string {
	region := doc.Find(selector).First()
	if region.Length() == 0 {
		return ""
	}
	return FlattenText(region.Nodes[0])
}

var blockElements = map[string]bool{
	"address": true, "article": true, "div": true, "dl": true, "dt": true, "dd": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"li": true, "ol": true, "p": true, "section": true, "table": true, "tr": true, "ul": true,
}

// FlattenText renders n's text with a line break around every block element
// and <br>. Blank lines are dropped and invalid UTF-8 becomes U+FFFD.
func FlattenText(n *html.Node) string {
	var sb strings.Builder
	flatten(n, &sb, 0)

	lines := strings.Split(strings.ToValidUTF8(sb.String(), "\uFFFD"), "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func flatten(n *html.Node, sb *strings.Builder, depth int) {
	if depth > 64 {
		return
	}
	switch n.Type {
	case html.TextNode:
		sb.WriteString(strings.ReplaceAll(n.Data, "\n", " "))
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript", "svg":
			return
		case "br":
			sb.WriteString("\n")
			return
		}
	}

	block := n.Type == html.ElementNode && blockElements[n.Data]
	if block {
		sb.WriteString("\n")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		flatten(c, sb, depth+1)
	}
	if block {
		sb.WriteString("\n")
	}
}
