// Package config handles CLI and environment configuration.
package config

import (
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"

	"deptbot/internal/model"
)

// Config holds the application configuration.
type Config struct {
	Mode model.Period // daily/weekly event runs; "" for papers/welcome

	Command string // "events", "papers" or "welcome"

	ZulipSite   string `long:"zulip-site" env:"ZULIP_SITE" description:"Zulip server base URL" required:"true"`
	ZulipEmail  string `long:"zulip-email" env:"ZULIP_EMAIL" description:"Bot account email" required:"true"`
	ZulipAPIKey string `long:"zulip-api-key" env:"ZULIP_API_KEY" description:"Bot API key" required:"true"`

	DatabasePath string `long:"db" env:"DATABASE_PATH" default:"./data/seen.db" description:"Path to the seen-items database"`

	RosterURL    string `long:"roster-url" env:"ROSTER_URL" default:"https://economics.northwestern.edu/people/graduate/index.html" description:"Department roster page"`
	EventsURL    string `long:"events-url" env:"EVENTS_URL" default:"https://planitpurple.northwestern.edu/feed/json/2103" description:"Calendar JSON feed"`
	PapersAPIURL string `long:"papers-api-url" env:"PAPERS_API_URL" default:"https://www.nber.org/api/v1/working_page_listing/contentType/working_paper/_/_/search" description:"Working-paper search API"`
	PapersRSSURL string `long:"papers-rss-url" env:"PAPERS_RSS_URL" description:"Optional working-paper RSS listing"`

	Timezone      string `long:"timezone" env:"TZ_NAME" default:"America/Chicago" description:"Timezone event dates are expressed in"`
	RetentionDays int    `long:"retention-days" env:"RETENTION_DAYS" default:"90" description:"Seen-item retention window in days"`
	LogLevel      string `long:"log-level" env:"LOG_LEVEL" default:"info" description:"Log level (debug, info, warn, error)"`

	FuzzyThreshold float64 `long:"fuzzy-threshold" env:"FUZZY_THRESHOLD" default:"0.8" description:"Minimum name-match score"`
	FuzzyMargin    float64 `long:"fuzzy-margin" env:"FUZZY_MARGIN" default:"0.1" description:"Required lead over the runner-up"`

	DryRun bool   `long:"dry-run" description:"Print messages instead of posting, record nothing"`
	Email  string `long:"email" description:"Welcome a single account by email"`
	Force  bool   `long:"force" description:"Re-welcome even if already recorded (with --email)"`

	Args struct {
		Mode string `positional-arg-name:"mode" description:"daily | weekly | papers | welcome"`
	} `positional-args:"yes" required:"yes"`

	location *time.Location
}

// Load parses configuration from args (flags) and the environment.
func Load(args []string) (*Config, error) {
	var cfg Config

	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}

	switch cfg.Args.Mode {
	case "daily":
		cfg.Command, cfg.Mode = "events", model.Daily
	case "weekly":
		cfg.Command, cfg.Mode = "events", model.Weekly
	case "papers":
		cfg.Command = "papers"
	case "welcome":
		cfg.Command = "welcome"
	default:
		return nil, fmt.Errorf("unknown mode %q (want daily, weekly, papers or welcome)", cfg.Args.Mode)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}
	cfg.location = loc

	if cfg.RetentionDays <= 0 {
		return nil, fmt.Errorf("retention-days must be positive, got %d", cfg.RetentionDays)
	}

	return &cfg, nil
}

// Location returns the configured timezone.
func (c *Config) Location() *time.Location {
	return c.location
}

// Retention returns the seen-item retention window as a duration.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}
