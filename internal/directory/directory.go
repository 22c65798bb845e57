// Package directory scrapes the department member roster. The roster is
// a read-only snapshot: it is fetched once per run and never written.
package directory

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"deptbot/internal/model"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Scraper fetches and parses the department directory page.
type Scraper struct {
	client  HTTPClient
	url     string
	timeout time.Duration
}

// New creates a Scraper for the given directory URL.
func New(client HTTPClient, url string) *Scraper {
	return &Scraper{
		client:  client,
		url:     url,
		timeout: 30 * time.Second,
	}
}

var (
	emailRe      = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[a-z]{2,}$`)
	fieldSplitRe = regexp.MustCompile(`,\s*|\s+and\s+`)
)

const fieldPrefix = "Research Field:"

// Fetch downloads the directory page and extracts member profiles.
// A listing that cannot be parsed into a profile is skipped and counted,
// not fatal: the roster is noisy by nature.
func (s *Scraper) Fetch(ctx context.Context) (profiles []model.MemberProfile, skipped int, err error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "DeptBot/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, 5*1024*1024))
	if err != nil {
		return nil, 0, fmt.Errorf("parse page: %w", err)
	}

	doc.Find("#main-content article.people").Each(func(_ int, sel *goquery.Selection) {
		profile, ok := extractProfile(sel)
		if !ok {
			skipped++
			return
		}
		profiles = append(profiles, profile)
	})

	return profiles, skipped, nil
}

// extractProfile parses one directory listing. The listing holds a name
// heading, a "Year N" paragraph, and an info paragraph carrying the
// research fields and the email address in separate text nodes.
func extractProfile(sel *goquery.Selection) (model.MemberProfile, bool) {
	content := sel.Find(".people-content")

	name := strings.TrimSpace(content.Find("h3").First().Text())
	name = strings.TrimSpace(strings.TrimSuffix(name, "(Financial Economics Student)"))
	if name == "" {
		return model.MemberProfile{}, false
	}

	profile := model.MemberProfile{FullName: name}

	content.Find("p").Each(func(_ int, p *goquery.Selection) {
		for _, text := range strippedStrings(p) {
			switch {
			case strings.HasPrefix(text, "Year"):
				if year, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(text, "Year"))); err == nil {
					profile.Year = year
				}
			case strings.HasPrefix(text, fieldPrefix):
				profile.Fields = splitFields(strings.TrimPrefix(text, fieldPrefix))
			case emailRe.MatchString(strings.ToLower(text)):
				profile.Email = strings.ToLower(text)
			}
		}
	})

	return profile, true
}

func splitFields(raw string) []string {
	var fields []string
	for _, part := range fieldSplitRe.Split(raw, -1) {
		if part = strings.TrimSpace(part); part != "" {
			fields = append(fields, part)
		}
	}
	return fields
}

// strippedStrings collects the trimmed, non-empty text nodes of a
// selection. Field and email lines share a paragraph, separated only by
// <br> elements, so the paragraph text must be walked node by node.
func strippedStrings(sel *goquery.Selection) []string {
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				out = append(out, text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return out
}
