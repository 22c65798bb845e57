package ingest

import (
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/mmcdole/gofeed"

	"deptbot/internal/model"
)

// PapersRSS ingests a working-paper listing published as RSS/Atom and
// digests it into a single stream.
type PapersRSS struct {
	client HTTPClient
	url    string
	stream model.StreamTag
}

// NewPapersRSS creates the RSS paper source for one stream.
func NewPapersRSS(client HTTPClient, url string, stream model.StreamTag) *PapersRSS {
	return &PapersRSS{client: client, url: url, stream: stream}
}

// Name implements Source.
func (p *PapersRSS) Name() string { return "papers-rss/" + string(p.stream) }

// Fetch implements Source. Entries without a publication date or title
// are skipped and counted.
func (p *PapersRSS) Fetch(ctx context.Context) ([]model.FeedItem, int, error) {
	body, err := getBody(ctx, p.client, p.url)
	if err != nil {
		return nil, 0, err
	}

	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, 0, fmt.Errorf("parse feed: %w", err)
	}

	var items []model.FeedItem
	skipped := 0
	for _, entry := range feed.Items {
		if entry.Title == "" || entry.PublishedParsed == nil {
			skipped++
			continue
		}

		var authors []model.Author
		for _, a := range entry.Authors {
			if a != nil && a.Name != "" {
				authors = append(authors, model.Author{Name: a.Name})
			}
		}

		items = append(items, model.FeedItem{
			ID:          entryID(entry),
			Title:       entry.Title,
			URL:         entry.Link,
			Description: entry.Description,
			Authors:     authors,
			PublishedAt: *entry.PublishedParsed,
			Stream:      p.stream,
			Topic:       papersTopic,
		})
	}
	return items, skipped, nil
}

// entryID returns the entry GUID, or a SHA-256 of title+link when the
// feed carries none.
func entryID(entry *gofeed.Item) string {
	if entry.GUID != "" {
		return entry.GUID
	}
	h := sha256.Sum256([]byte(entry.Title + "|" + entry.Link))
	return fmt.Sprintf("sha256:%x", h[:16])
}
