package ingest

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"deptbot/internal/model"
	"deptbot/internal/streams"
)

const papersBase = "https://www.nber.org/api/v1/working_page_listing/contentType/working_paper/_/_/search"

func TestPapersAPIFetch(t *testing.T) {
	body := loadFixture(t, "../../testdata/papers.json")
	src := &PapersAPI{
		client:  &mockTransport{body: body, statusCode: 200},
		baseURL: papersBase,
		stream:  "field/macro",
		terms:   []streams.SearchTerm{{Facet: "programs", Term: "Monetary Economics"}},
	}

	items, skipped, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	want := []model.FeedItem{
		{
			ID:          "https://www.nber.org/papers/w33021",
			Title:       "Monetary Policy in a World of Rigid Prices",
			URL:         "https://www.nber.org/papers/w33021",
			Description: "We study the transmission of monetary policy when prices adjust infrequently.",
			Authors: []model.Author{
				{Name: "Jane Doe", URL: "https://www.nber.org/people/jdoe"},
				{Name: "Richard Roe"},
			},
			PublishedAt: time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC),
			Stream:      "field/macro",
			Topic:       "working papers",
		},
		{
			ID:          "https://www.nber.org/papers/w33022",
			Title:       "Business Cycles and Household Expectations",
			URL:         "https://www.nber.org/papers/w33022",
			Description: "Survey evidence on expectation formation over the cycle.",
			Authors: []model.Author{
				{Name: "Alice Smith", URL: "https://www.nber.org/people/asmith"},
			},
			PublishedAt: time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC),
			Stream:      "field/macro",
			Topic:       "working papers",
		},
	}

	if diff := cmp.Diff(want, items); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
	// The dateless working paper; stale and non-paper results are
	// filtered, not malformed.
	if skipped != 1 {
		t.Errorf("skipped = %d, want 1", skipped)
	}
}

func TestPapersAPIDedupsOverlappingTerms(t *testing.T) {
	body := loadFixture(t, "../../testdata/papers.json")
	src := &PapersAPI{
		client:  &mockTransport{body: body, statusCode: 200},
		baseURL: papersBase,
		stream:  "field/macro",
		terms: []streams.SearchTerm{
			{Facet: "programs", Term: "Monetary Economics"},
			{Facet: "topics", Term: "Business Cycles"},
		},
	}

	items, _, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items across overlapping terms, want 2", len(items))
	}
}

func TestPapersAPIAllTermsFailing(t *testing.T) {
	src := &PapersAPI{
		client:  &mockTransport{err: io.ErrUnexpectedEOF},
		baseURL: papersBase,
		stream:  "field/macro",
		terms:   []streams.SearchTerm{{Facet: "programs", Term: "Monetary Economics"}},
	}

	if _, _, err := src.Fetch(context.Background()); err == nil {
		t.Fatal("expected error when every term query fails")
	}
}

func TestNewPapersSources(t *testing.T) {
	terms := map[model.StreamTag][]streams.SearchTerm{
		"field/macro":        {{Facet: "programs", Term: "Monetary Economics"}},
		"field/appliedmicro": {},
	}

	sources := NewPapersSources(&mockTransport{}, papersBase, terms)
	if len(sources) != 1 {
		t.Fatalf("got %d sources, want 1 (empty term lists excluded)", len(sources))
	}
	if sources[0].Name() != "papers/field/macro" {
		t.Errorf("source name = %q", sources[0].Name())
	}
}

func TestPapersRSSFetch(t *testing.T) {
	body := loadFixture(t, "../../testdata/papers.xml")
	src := NewPapersRSS(&mockTransport{body: body, statusCode: 200}, "https://papers.example.edu/rss", "general")

	items, skipped, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if skipped != 1 {
		t.Errorf("skipped = %d, want 1 (dateless entry)", skipped)
	}

	if items[0].ID != "https://papers.example.edu/wp/2026-11" {
		t.Errorf("first item should use the feed guid, got %q", items[0].ID)
	}
	// The second entry carries no guid: a deterministic hash stands in.
	if !strings.HasPrefix(items[1].ID, "sha256:") {
		t.Errorf("second item id = %q, want sha256 fallback", items[1].ID)
	}
	for _, item := range items {
		if item.Stream != "general" || item.Topic != "working papers" {
			t.Errorf("item %q routed to (%s, %s)", item.ID, item.Stream, item.Topic)
		}
	}
}
