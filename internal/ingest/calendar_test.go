package ingest

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"deptbot/internal/model"
)

type mockTransport struct {
	body       string
	statusCode int
	err        error
}

func (m *mockTransport) Do(_ *http.Request) (*http.Response, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &http.Response{
		StatusCode: m.statusCode,
		Body:       io.NopCloser(bytes.NewBufferString(m.body)),
	}, nil
}

func loadFixture(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path) //nolint:gosec // test-only fixture loading
	if err != nil {
		t.Fatalf("read fixture %s: %v", path, err)
	}
	return string(data)
}

func chicago(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

var testCalendars = map[int][]model.StreamTag{
	3554: {"field/macro"},
	3553: {"field/metrics"},
	3178: {"general"},
	4559: {"field/health", "field/labor", "field/public"},
}

func newTestCalendar(t *testing.T, transport *mockTransport) *Calendar {
	t.Helper()
	cal, err := NewCalendar(transport, "https://calendar.example.edu/feed/json/2103", chicago(t), testCalendars)
	if err != nil {
		t.Fatalf("new calendar: %v", err)
	}
	return cal
}

func TestCalendarFetch(t *testing.T) {
	body := loadFixture(t, "../../testdata/events.json")
	cal := newTestCalendar(t, &mockTransport{body: body, statusCode: 200})

	items, skipped, err := cal.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	loc := chicago(t)
	joint := func(stream model.StreamTag) model.FeedItem {
		return model.FeedItem{
			ID:          string(stream) + "/620007",
			Title:       "Applied Seminar: Minimum Wages and Hospital Staffing",
			URL:         "https://calendar.example.edu/event/620007",
			PublishedAt: time.Date(2026, 3, 4, 15, 0, 0, 0, loc),
			Stream:      stream,
			Topic:       "events",
		}
	}
	want := []model.FeedItem{
		{
			ID:          "field/macro/620001",
			Title:       "Macro Lunch: Nominal Rigidities Revisited",
			URL:         "https://calendar.example.edu/event/620001",
			PublishedAt: time.Date(2026, 3, 2, 12, 0, 0, 0, loc),
			Stream:      "field/macro",
			Topic:       "events",
		},
		{
			ID:          "field/metrics/620002",
			Title:       "Econometrics Seminar: Weak Instruments",
			URL:         "https://calendar.example.edu/event/620002",
			PublishedAt: time.Date(2026, 3, 2, 14, 30, 0, 0, loc),
			Stream:      "field/metrics",
			Topic:       "events",
		},
		// One occurrence on a calendar shared by three field streams
		// fans out to three copies, each with its own dedup id.
		joint("field/health"),
		joint("field/labor"),
		joint("field/public"),
		{
			ID:          "general/620006",
			Title:       "Department Retreat",
			URL:         "https://calendar.example.edu/event/620006",
			PublishedAt: time.Date(2026, 3, 6, 0, 0, 0, 0, loc),
			Stream:      "general",
			Topic:       "events",
		},
	}

	if diff := cmp.Diff(want, items); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
	// One cancelled occurrence and one record without a date.
	if skipped != 2 {
		t.Errorf("skipped = %d, want 2", skipped)
	}
}

func TestCalendarFetchErrors(t *testing.T) {
	tests := []struct {
		name      string
		transport *mockTransport
	}{
		{name: "http error status", transport: &mockTransport{body: "oops", statusCode: 500}},
		{name: "network error", transport: &mockTransport{err: io.ErrUnexpectedEOF}},
		{name: "invalid json", transport: &mockTransport{body: "not json", statusCode: 200}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cal := newTestCalendar(t, tt.transport)
			if _, _, err := cal.Fetch(context.Background()); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

type stubSource struct {
	name  string
	items []model.FeedItem
	err   error
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Fetch(_ context.Context) ([]model.FeedItem, int, error) {
	return s.items, 0, s.err
}

func TestFetchAllIsolatesSourceFailures(t *testing.T) {
	sources := []Source{
		&stubSource{name: "ok", items: []model.FeedItem{{ID: "a"}}},
		&stubSource{name: "down", err: io.ErrUnexpectedEOF},
		&stubSource{name: "also-ok", items: []model.FeedItem{{ID: "b"}}},
	}

	results := FetchAll(context.Background(), sources)

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].Err != nil || results[2].Err != nil {
		t.Errorf("healthy sources reported errors: %v, %v", results[0].Err, results[2].Err)
	}
	if results[1].Err == nil {
		t.Error("failed source reported no error")
	}
	if results[0].Source != "ok" || results[1].Source != "down" || results[2].Source != "also-ok" {
		t.Errorf("result order does not follow source order: %+v", results)
	}
	if len(results[0].Items) != 1 || results[0].Items[0].ID != "a" {
		t.Errorf("unexpected items for first source: %+v", results[0].Items)
	}
}
