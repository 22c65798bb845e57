// Package digest turns a run's new items into per-stream digest batches.
package digest

import (
	"sort"
	"time"

	"deptbot/internal/model"
)

// Build groups items by (stream, topic) and orders each group by
// publication time ascending, keeping input order for ties. Streams
// with nothing new simply have no group: a digest group is never empty.
// Group order is deterministic (stream, then topic).
func Build(period model.Period, items []model.FeedItem) model.DigestBatch {
	type key struct {
		stream model.StreamTag
		topic  string
	}

	grouped := make(map[key][]model.FeedItem)
	var order []key
	for _, item := range items {
		k := key{item.Stream, item.Topic}
		if _, ok := grouped[k]; !ok {
			order = append(order, k)
		}
		grouped[k] = append(grouped[k], item)
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].stream != order[j].stream {
			return order[i].stream < order[j].stream
		}
		return order[i].topic < order[j].topic
	})

	batch := model.DigestBatch{Period: period}
	for _, k := range order {
		group := grouped[k]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].PublishedAt.Before(group[j].PublishedAt)
		})
		batch.Groups = append(batch.Groups, model.DigestGroup{
			Stream: k.stream,
			Topic:  k.topic,
			Items:  group,
		})
	}
	return batch
}

// FilterSpan keeps the items a period's digest covers: for Daily, items
// dated today; for Weekly, items from today through Sunday. Each item
// counts on its own wall-clock date, so an evening event stays on the
// day its feed printed regardless of the host timezone. Callers pass
// now in the location that defines "today".
func FilterSpan(items []model.FeedItem, period model.Period, now time.Time) []model.FeedItem {
	today := dateOf(now)
	sunday := today.AddDate(0, 0, (7-int(now.Weekday()))%7)

	var kept []model.FeedItem
	for _, item := range items {
		day := dateOf(item.PublishedAt)
		switch period {
		case model.Daily:
			if day.Equal(today) {
				kept = append(kept, item)
			}
		case model.Weekly:
			if !day.Before(today) && !day.After(sunday) {
				kept = append(kept, item)
			}
		}
	}
	return kept
}

// dateOf reduces a time to its wall-clock date. Normalizing to UTC
// makes dates from different zones comparable as plain y/m/d values.
func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
