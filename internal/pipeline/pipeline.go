// Package pipeline wires the run-to-completion flows behind each
// schedule trigger: event digests (daily/weekly), paper digests, and
// one-shot welcomes. Failures are isolated to the smallest unit —
// item over source over run — so one bad record never blocks a digest
// for unrelated items.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"deptbot/internal/digest"
	"deptbot/internal/ingest"
	"deptbot/internal/match"
	"deptbot/internal/model"
	"deptbot/internal/storage"
	"deptbot/internal/zulip"
)

// welcomeSource is the seen-set partition recording welcomed accounts.
// It is never pruned: accounts are not periodic items.
const welcomeSource = "welcome"

// Pipeline holds the shared run dependencies.
type Pipeline struct {
	store     storage.Storage
	chat      zulip.Client
	log       *slog.Logger
	matchOpts match.Options
	retention time.Duration
	loc       *time.Location
	dryRun    bool
	out       io.Writer

	now func() time.Time
}

// New creates a Pipeline. loc is the department's timezone: it decides
// which date counts as today, independent of the host clock's zone.
// out receives rendered messages in dry-run mode.
func New(store storage.Storage, chat zulip.Client, log *slog.Logger, opts match.Options, retention time.Duration, loc *time.Location, dryRun bool, out io.Writer) *Pipeline {
	return &Pipeline{
		store:     store,
		chat:      chat,
		log:       log,
		matchOpts: opts,
		retention: retention,
		loc:       loc,
		dryRun:    dryRun,
		out:       out,
		now:       time.Now,
	}
}

type itemKey struct {
	stream model.StreamTag
	topic  string
	id     string
}

// RunEvents fetches the calendar sources and posts the daily or weekly
// event digests. Daily and weekly runs share the same seen namespace,
// so an occurrence surfaced by one is never re-surfaced by the other.
func (p *Pipeline) RunEvents(ctx context.Context, sources []ingest.Source, period model.Period) error {
	return p.runDigest(ctx, sources, period, true)
}

// RunPapers fetches the working-paper sources and posts their digests.
func (p *Pipeline) RunPapers(ctx context.Context, sources []ingest.Source) error {
	return p.runDigest(ctx, sources, model.Weekly, false)
}

func (p *Pipeline) runDigest(ctx context.Context, sources []ingest.Source, period model.Period, spanFilter bool) error {
	results := ingest.FetchAll(ctx, sources)

	var (
		newItems []model.FeedItem
		sourceOf = make(map[itemKey]string)
	)
	for _, res := range results {
		if res.Err != nil {
			p.log.Warn("source failed, items omitted this run", "source", res.Source, "error", res.Err)
			continue
		}
		if res.Skipped > 0 {
			p.log.Warn("skipped malformed records", "source", res.Source, "count", res.Skipped)
		}

		for _, item := range res.Items {
			isNew, err := p.store.IsNew(ctx, res.Source, item.ID)
			if err != nil {
				return fmt.Errorf("seen lookup for %s: %w", res.Source, err)
			}
			if !isNew {
				continue
			}
			newItems = append(newItems, item)
			sourceOf[itemKey{item.Stream, item.Topic, item.ID}] = res.Source
		}
	}

	if spanFilter {
		newItems = digest.FilterSpan(newItems, period, p.now().In(p.loc))
	}

	batch := digest.Build(period, newItems)
	if len(batch.Groups) == 0 {
		p.log.Info("nothing new to post")
		p.pruneAll(ctx, results)
		return nil
	}

	published, failed := 0, 0
	for _, group := range batch.Groups {
		body := digest.Render(batch.Period, group)

		if p.dryRun {
			fmt.Fprintf(p.out, "To: %s\nTopic: %s\n\n%s\n", group.Stream, group.Topic, body)
			continue
		}

		if err := p.chat.PostMessage(ctx, group.Stream, group.Topic, body); err != nil {
			// Items stay unmarked: the next scheduled run retries them.
			p.log.Error("publish failed", "stream", group.Stream, "topic", group.Topic, "error", err)
			failed++
			continue
		}
		published++

		// Mark immediately after the successful publish, not at the end
		// of the run: a crash here must not re-post what already went out.
		for _, item := range group.Items {
			source := sourceOf[itemKey{item.Stream, item.Topic, item.ID}]
			if err := p.store.MarkPosted(ctx, source, item.ID, p.now()); err != nil {
				p.log.Error("mark posted failed", "source", source, "item_id", item.ID, "error", err)
			}
		}
	}

	p.log.Info("digest run complete", "period", period, "groups", len(batch.Groups), "published", published, "failed", failed)

	if failed > 0 && published == 0 {
		return fmt.Errorf("all %d digest messages failed to publish", failed)
	}

	p.pruneAll(ctx, results)
	return nil
}

// pruneAll trims each source's seen entries older than the retention
// window. Sources cannot resurrect ids that old, so a pruned id cannot
// cause a duplicate post.
func (p *Pipeline) pruneAll(ctx context.Context, results []ingest.Result) {
	if p.dryRun {
		return
	}
	cutoff := p.now().Add(-p.retention)
	for _, res := range results {
		n, err := p.store.Prune(ctx, res.Source, cutoff)
		if err != nil {
			p.log.Error("prune failed", "source", res.Source, "error", err)
			continue
		}
		if n > 0 {
			p.log.Info("pruned seen entries", "source", res.Source, "count", n)
		}
	}
}
