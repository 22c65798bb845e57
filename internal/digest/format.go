package digest

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"deptbot/internal/model"
)

const maxAbstract = 300

// Render produces the message body for one digest group.
func Render(period model.Period, group model.DigestGroup) string {
	switch group.Topic {
	case "working papers":
		return renderPapers(group)
	default:
		return renderEvents(period, group)
	}
}

func renderEvents(period model.Period, group model.DigestGroup) string {
	var b strings.Builder

	switch period {
	case model.Weekly:
		b.WriteString("**This week's events**\n")
		var day string
		for _, item := range group.Items {
			if d := item.PublishedAt.Format("Monday, January 2"); d != day {
				day = d
				fmt.Fprintf(&b, "\n%s\n", day)
			}
			writeEventLine(&b, item)
		}
	default:
		b.WriteString("**Today's events**\n\n")
		for _, item := range group.Items {
			writeEventLine(&b, item)
		}
	}
	return b.String()
}

func writeEventLine(b *strings.Builder, item model.FeedItem) {
	t := item.PublishedAt
	// Midnight marks an all-day occurrence; showing 12:00 AM would mislead.
	if t.Hour() == 0 && t.Minute() == 0 {
		fmt.Fprintf(b, "* [%s](%s)\n", item.Title, item.URL)
		return
	}
	fmt.Fprintf(b, "* %s — [%s](%s)\n", t.Format("3:04 PM"), item.Title, item.URL)
}

func renderPapers(group model.DigestGroup) string {
	var b strings.Builder
	b.WriteString("**New working papers**\n")

	for _, item := range group.Items {
		fmt.Fprintf(&b, "\n* [%s](%s)", item.Title, item.URL)
		if names := formatAuthors(item.Authors); names != "" {
			fmt.Fprintf(&b, " by %s", names)
		}
		b.WriteString("\n")
		if item.Description != "" {
			fmt.Fprintf(&b, "  > %s\n", truncate(item.Description, maxAbstract))
		}
	}
	return b.String()
}

func formatAuthors(authors []model.Author) string {
	parts := make([]string, 0, len(authors))
	for _, a := range authors {
		if a.URL != "" {
			parts = append(parts, fmt.Sprintf("[%s](%s)", a.Name, a.URL))
		} else {
			parts = append(parts, a.Name)
		}
	}
	return strings.Join(parts, ", ")
}

// truncate caps s at n bytes, backing up so a multi-byte rune is never
// split mid-sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
