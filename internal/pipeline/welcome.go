package pipeline

import (
	"context"
	"fmt"
	"strings"

	"deptbot/internal/match"
	"deptbot/internal/model"
	"deptbot/internal/streams"
)

// WelcomeOptions narrow a welcome run.
type WelcomeOptions struct {
	// Email restricts the run to a single account.
	Email string
	// Force re-welcomes an account already recorded as welcomed.
	// Only honored together with Email.
	Force bool
}

// RunWelcome onboards chat accounts that have not been welcomed yet:
// match against the roster, auto-subscribe to resolved streams, send the
// welcome DM, and record the account so re-runs are no-ops. The roster
// is a snapshot taken by the caller; match results are never cached
// across runs.
func (p *Pipeline) RunWelcome(ctx context.Context, roster []model.MemberProfile, opts WelcomeOptions) error {
	accounts, err := p.chat.ListAccounts(ctx)
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}

	available, err := p.chat.ListStreams(ctx)
	if err != nil {
		return fmt.Errorf("list streams: %w", err)
	}

	welcomed, failed := 0, 0
	for _, account := range accounts {
		if account.IsBot || !account.IsActive {
			continue
		}
		if opts.Email != "" && !strings.EqualFold(account.Email, opts.Email) {
			continue
		}

		if !(opts.Force && opts.Email != "") {
			isNew, err := p.store.IsNew(ctx, welcomeSource, strings.ToLower(account.Email))
			if err != nil {
				return fmt.Errorf("welcome lookup: %w", err)
			}
			if !isNew {
				continue
			}
		}

		if err := p.welcome(ctx, account, roster, available); err != nil {
			p.log.Error("welcome failed", "email", account.Email, "error", err)
			failed++
			continue
		}
		welcomed++
	}

	// A failed welcome stays unmarked and is retried next run.
	p.log.Info("welcome run complete", "welcomed", welcomed, "failed", failed)
	return nil
}

func (p *Pipeline) welcome(ctx context.Context, account model.ChatAccount, roster []model.MemberProfile, available []string) error {
	result := match.MatchWith(account, roster, p.matchOpts)
	p.log.Debug("matched account", "email", account.Email, "confidence", result.Confidence)

	auto, unknown := streams.Resolve(result.Profile)
	for _, field := range unknown {
		p.log.Warn("field has no stream in the catalog", "email", account.Email, "field", field)
	}

	body := welcomeMessage(account, result, auto, available)

	if p.dryRun {
		fmt.Fprintf(p.out, "To: %s\nSubscribe: %v\n\n%s\n", account.Email, auto, body)
		return nil
	}

	// Subscription troubles should not block the welcome message; the
	// message tells the reader how to subscribe by hand.
	if err := p.chat.Subscribe(ctx, account.ID, auto); err != nil {
		p.log.Error("auto-subscribe failed", "email", account.Email, "error", err)
	}

	if err := p.chat.PostDirect(ctx, account.ID, body); err != nil {
		return err
	}

	return p.store.MarkPosted(ctx, welcomeSource, strings.ToLower(account.Email), p.now())
}

// welcomeMessage assembles the onboarding DM. Wording stays plain on
// purpose; the interesting part is which stream lists appear.
func welcomeMessage(account model.ChatAccount, result model.MatchResult, auto []model.StreamTag, available []string) string {
	var b strings.Builder

	firstName := account.FullName
	if i := strings.IndexByte(firstName, ' '); i > 0 {
		firstName = firstName[:i]
	}
	fmt.Fprintf(&b, "Welcome, %s!\n\n", firstName)

	if len(auto) > 0 {
		b.WriteString("Based on the department directory you have been subscribed to:\n")
		for _, tag := range auto {
			fmt.Fprintf(&b, "* #**%s**\n", tag)
		}
		b.WriteString("\n")
	} else {
		b.WriteString("We could not find you in the department directory, so nothing was set up automatically.\n\n")
	}

	var courses, fields []string
	for _, name := range available {
		tag := model.StreamTag(name)
		switch {
		case tag.IsCourse():
			courses = append(courses, name)
		case tag.IsField():
			fields = append(fields, name)
		}
	}

	if streams.EligibleForCourses(result.Profile) && len(courses) > 0 {
		b.WriteString("Course streams you can join:\n")
		for _, name := range courses {
			fmt.Fprintf(&b, "* #**%s**\n", name)
		}
		b.WriteString("\n")
	}

	if len(fields) > 0 {
		b.WriteString("Field streams are open to everyone:\n")
		for _, name := range fields {
			fmt.Fprintf(&b, "* #**%s**\n", name)
		}
	}

	return b.String()
}
