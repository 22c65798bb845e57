package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"deptbot/internal/model"
)

// eventsTopic is the topic all calendar digests are posted under.
const eventsTopic = "events"

// Calendar ingests the university calendar JSON export. Every record is
// one occurrence of an event on a single day; occurrence ids are stable,
// so a stream-qualified occurrence id makes a stable item id.
type Calendar struct {
	client    HTTPClient
	feedURL   string
	eventBase string
	loc       *time.Location
	calendars map[int][]model.StreamTag
}

// calendarRecord is the raw export shape. All values arrive as strings.
type calendarRecord struct {
	ID          string `json:"id"`
	CalendarID  string `json:"cal_id"`
	Title       string `json:"title"`
	EventDate   string `json:"eventdate"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	IsAllDay    string `json:"is_allday"`
	IsCancelled string `json:"is_cancelled"`
}

// NewCalendar creates the calendar source. calendars routes a calendar
// id to the streams its events are digested into; events of unrouted
// calendars are ignored.
func NewCalendar(client HTTPClient, feedURL string, loc *time.Location, calendars map[int][]model.StreamTag) (*Calendar, error) {
	u, err := url.Parse(feedURL)
	if err != nil {
		return nil, fmt.Errorf("parse feed url: %w", err)
	}
	return &Calendar{
		client:    client,
		feedURL:   feedURL,
		eventBase: u.Scheme + "://" + u.Host + "/event/",
		loc:       loc,
		calendars: calendars,
	}, nil
}

// Name implements Source.
func (c *Calendar) Name() string { return "events" }

// Fetch implements Source. Cancelled occurrences and records missing a
// title or a parseable date are skipped, not fatal.
func (c *Calendar) Fetch(ctx context.Context) ([]model.FeedItem, int, error) {
	body, err := getBody(ctx, c.client, c.feedURL)
	if err != nil {
		return nil, 0, err
	}

	var records []calendarRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, 0, fmt.Errorf("decode calendar feed: %w", err)
	}

	var items []model.FeedItem
	skipped := 0
	for _, rec := range records {
		item, ok := c.normalize(rec)
		if !ok {
			skipped++
			continue
		}
		// An unrouted calendar yields no streams. Not malformed: the
		// occurrence just is not digested anywhere.
		calID, err := strconv.Atoi(rec.CalendarID)
		if err != nil {
			continue
		}
		for _, stream := range c.calendars[calID] {
			fanned := item
			fanned.Stream = stream
			// Each stream's copy dedups on its own id, so a failed post
			// to one stream is retried even after the others went out.
			fanned.ID = string(stream) + "/" + rec.ID
			items = append(items, fanned)
		}
	}
	return items, skipped, nil
}

func (c *Calendar) normalize(rec calendarRecord) (model.FeedItem, bool) {
	if rec.ID == "" || strings.TrimSpace(rec.Title) == "" {
		return model.FeedItem{}, false
	}

	cancelled, _ := strconv.Atoi(rec.IsCancelled)
	if cancelled != 0 {
		return model.FeedItem{}, false
	}

	start, ok := c.parseStart(rec)
	if !ok {
		return model.FeedItem{}, false
	}

	return model.FeedItem{
		ID:          rec.ID,
		Title:       strings.TrimSpace(rec.Title),
		URL:         c.eventBase + rec.ID,
		PublishedAt: start,
		Topic:       eventsTopic,
	}, true
}

// parseStart combines the record's date and start time in the feed's
// timezone. The export has wobbled between date formats before, so the
// parse is tolerant; a record with no usable date is malformed.
func (c *Calendar) parseStart(rec calendarRecord) (time.Time, bool) {
	raw := strings.TrimSpace(rec.EventDate)
	if raw == "" {
		return time.Time{}, false
	}

	allDay, _ := strconv.Atoi(rec.IsAllDay)
	if allDay == 0 && rec.StartTime != "" {
		raw += " " + rec.StartTime
	}

	start, err := dateparse.ParseIn(raw, c.loc)
	if err != nil {
		return time.Time{}, false
	}
	return start, true
}
