package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"

	"deptbot/internal/model"
	"deptbot/internal/streams"
)

// papersTopic is the topic all paper digests are posted under.
const papersTopic = "working papers"

// PapersAPI ingests one stream's worth of working papers from the
// paper-listing search API. Each field stream queries its own set of
// search terms, so each stream is its own source (and its own seen-set
// partition); the same paper showing up under two streams is two
// distinct digest entries.
type PapersAPI struct {
	client  HTTPClient
	baseURL string
	stream  model.StreamTag
	terms   []streams.SearchTerm
}

type paperListing struct {
	Results []paperRecord `json:"results"`
}

type paperRecord struct {
	Type        string   `json:"type"`
	NewThisWeek bool     `json:"newthisweek"`
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	Abstract    string   `json:"abstract"`
	DisplayDate string   `json:"displaydate"`
	Authors     []string `json:"authors"`
}

// NewPapersSources builds one source per stream that has search terms.
func NewPapersSources(client HTTPClient, baseURL string, terms map[model.StreamTag][]streams.SearchTerm) []Source {
	var sources []Source
	for stream, streamTerms := range terms {
		if len(streamTerms) == 0 {
			continue
		}
		sources = append(sources, &PapersAPI{
			client:  client,
			baseURL: baseURL,
			stream:  stream,
			terms:   streamTerms,
		})
	}
	return sources
}

// Name implements Source.
func (p *PapersAPI) Name() string { return "papers/" + string(p.stream) }

// Fetch implements Source. Search terms overlap, so results are deduped
// by canonical URL within the run. A term whose query fails drops only
// that term's results; the source fails only when every term fails.
func (p *PapersAPI) Fetch(ctx context.Context) ([]model.FeedItem, int, error) {
	var (
		items    []model.FeedItem
		seen     = make(map[string]bool)
		skipped  int
		failures int
		lastErr  error
	)

	for _, term := range p.terms {
		listing, err := p.query(ctx, term)
		if err != nil {
			failures++
			lastErr = err
			continue
		}

		for _, rec := range listing.Results {
			if rec.Type != "working_paper" || !rec.NewThisWeek {
				continue
			}
			item, ok := p.normalize(rec)
			if !ok {
				skipped++
				continue
			}
			if seen[item.ID] {
				continue
			}
			seen[item.ID] = true
			items = append(items, item)
		}
	}

	if failures == len(p.terms) {
		return nil, skipped, fmt.Errorf("all %d term queries failed: %w", failures, lastErr)
	}
	return items, skipped, nil
}

func (p *PapersAPI) query(ctx context.Context, term streams.SearchTerm) (*paperListing, error) {
	q := url.Values{
		"facet":   {term.Facet + ":" + term.Term},
		"page":    {"1"},
		"perPage": {"50"},
		"sortBy":  {"public_date"},
	}

	body, err := getBody(ctx, p.client, p.baseURL+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("query %s:%s: %w", term.Facet, term.Term, err)
	}

	var listing paperListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("decode %s:%s: %w", term.Facet, term.Term, err)
	}
	return &listing, nil
}

func (p *PapersAPI) normalize(rec paperRecord) (model.FeedItem, bool) {
	if strings.TrimSpace(rec.Title) == "" || rec.URL == "" {
		return model.FeedItem{}, false
	}

	published, err := dateparse.ParseAny(rec.DisplayDate)
	if err != nil {
		return model.FeedItem{}, false
	}

	canonical := canonicalURL(rec.URL, p.baseURL)

	return model.FeedItem{
		ID:          canonical,
		Title:       strings.TrimSpace(rec.Title),
		URL:         canonical,
		Description: strings.TrimSpace(rec.Abstract),
		Authors:     parseAuthors(rec.Authors, p.baseURL),
		PublishedAt: published,
		Stream:      p.stream,
		Topic:       papersTopic,
	}, true
}

// canonicalURL drops the fragment and absolutizes site-relative links
// against the API host, so the same paper always yields the same id.
func canonicalURL(raw, base string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Fragment = ""

	if u.Host == "" {
		b, err := url.Parse(base)
		if err != nil {
			return u.String()
		}
		return b.ResolveReference(u).String()
	}
	return u.String()
}

// parseAuthors extracts author names and profile links from the HTML
// fragments the listing embeds per author.
func parseAuthors(raw []string, base string) []model.Author {
	var authors []model.Author
	for _, fragment := range raw {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
		if err != nil {
			continue
		}
		name := strings.TrimSpace(doc.Text())
		if name == "" {
			continue
		}
		author := model.Author{Name: name}
		if href, ok := doc.Find("a").First().Attr("href"); ok {
			author.URL = canonicalURL(href, base)
		}
		authors = append(authors, author)
	}
	return authors
}
