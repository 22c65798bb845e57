// Package model defines the domain types used across the application.
package model

import (
	"strings"
	"time"
)

// MemberProfile is one entry of the scraped department roster.
// Profiles are a read-only snapshot taken once per run.
type MemberProfile struct {
	FullName string
	Email    string
	Year     int // 0 when the directory lists no year
	Fields   []string
}

// ChatAccount is the chat-side identity to be matched against the roster.
type ChatAccount struct {
	ID       int64
	FullName string
	Email    string
	IsBot    bool
	IsActive bool
}

// Confidence describes how a roster profile was matched to a chat account.
type Confidence string

// Match confidence levels.
const (
	MatchExact Confidence = "exact"
	MatchFuzzy Confidence = "fuzzy"
	MatchNone  Confidence = "none"
)

// MatchResult is the outcome of matching one chat account against the
// roster. Profile is nil when Confidence is MatchNone.
type MatchResult struct {
	Profile    *MemberProfile
	Confidence Confidence
}

// StreamTag is a namespaced stream identifier, e.g. "field/macro" or
// "course/ECON 410-1". The namespace prefix is lowercase.
type StreamTag string

// IsField reports whether the tag is in the field/ namespace.
func (s StreamTag) IsField() bool { return strings.HasPrefix(string(s), "field/") }

// IsCourse reports whether the tag is in the course/ namespace.
func (s StreamTag) IsCourse() bool { return strings.HasPrefix(string(s), "course/") }

// Name returns the part of the tag after the namespace prefix.
func (s StreamTag) Name() string {
	if i := strings.IndexByte(string(s), '/'); i >= 0 {
		return string(s)[i+1:]
	}
	return string(s)
}

// Author is a paper author with an optional profile link.
type Author struct {
	Name string
	URL  string
}

// FeedItem is the normalized shape every source adapter produces.
// ID is deterministic for a given source record, so re-fetching the
// same item yields the same ID.
type FeedItem struct {
	ID          string
	Title       string
	URL         string
	Description string
	Authors     []Author
	PublishedAt time.Time
	Stream      StreamTag
	Topic       string
}

// Period selects the span a digest covers.
type Period string

// Digest periods.
const (
	Daily  Period = "daily"
	Weekly Period = "weekly"
)

// DigestGroup is the set of new items for one (stream, topic) pair,
// ordered by PublishedAt ascending. Groups are never empty.
type DigestGroup struct {
	Stream StreamTag
	Topic  string
	Items  []FeedItem
}

// DigestBatch is one run's worth of digests. Transient: rebuilt each run.
type DigestBatch struct {
	Period Period
	Groups []DigestGroup
}
