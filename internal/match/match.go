// Package match fuzzy-matches a chat account against the scraped
// department roster. Matching is a pure function of its inputs; the
// roster may change between runs, so results are never cached.
package match

import (
	"regexp"

	"deptbot/internal/model"
)

// Options hold the fuzzy-match policy. The cutoffs are deliberately
// configuration, not law; they want calibration against real roster data.
type Options struct {
	// Threshold is the minimum token-overlap score a fuzzy candidate
	// needs to be considered at all.
	Threshold float64
	// Margin is how far the best candidate must lead the runner-up.
	// Two candidates within the margin are ambiguous: prefer no match
	// over a wrong guess.
	Margin float64
}

// DefaultOptions is the policy used when no options are given.
var DefaultOptions = Options{Threshold: 0.8, Margin: 0.1}

// Registration emails often add a year suffix to the directory address
// (jdoe2024@u.example.edu for jdoe@u.example.edu).
var yearSuffixRe = regexp.MustCompile(`^([a-z]+)\d{4}@([a-z.]+)$`)

// Match finds the roster profile for a chat account, or reports
// MatchNone when the roster is empty or no unambiguous candidate
// exists. Exact email equality always wins over name similarity.
func Match(account model.ChatAccount, roster []model.MemberProfile) model.MatchResult {
	return MatchWith(account, roster, DefaultOptions)
}

// MatchWith is Match with an explicit fuzzy policy.
func MatchWith(account model.ChatAccount, roster []model.MemberProfile, opts Options) model.MatchResult {
	none := model.MatchResult{Confidence: model.MatchNone}
	if len(roster) == 0 {
		return none
	}

	if p := byEmail(account.Email, roster); p != nil {
		return model.MatchResult{Profile: p, Confidence: model.MatchExact}
	}

	if p := byUniqueName(account.FullName, roster); p != nil {
		return model.MatchResult{Profile: p, Confidence: model.MatchExact}
	}

	if p := byTokenOverlap(account.FullName, roster, opts); p != nil {
		return model.MatchResult{Profile: p, Confidence: model.MatchFuzzy}
	}

	return none
}

func byEmail(email string, roster []model.MemberProfile) *model.MemberProfile {
	addr := normalizeEmail(email)
	if addr == "" {
		return nil
	}

	candidates := []string{addr}
	if m := yearSuffixRe.FindStringSubmatch(addr); m != nil {
		candidates = append(candidates, m[1]+"@"+m[2])
	}

	for _, cand := range candidates {
		for i := range roster {
			if normalizeEmail(roster[i].Email) == cand {
				return &roster[i]
			}
		}
	}
	return nil
}

// byUniqueName matches on normalized full-name equality, but only when
// exactly one roster entry carries that name. Duplicate names are
// ambiguous and never guessed.
func byUniqueName(name string, roster []model.MemberProfile) *model.MemberProfile {
	norm := normalizeName(name)
	if norm == "" {
		return nil
	}

	var found *model.MemberProfile
	for i := range roster {
		if normalizeName(roster[i].FullName) != norm {
			continue
		}
		if found != nil {
			return nil
		}
		found = &roster[i]
	}
	return found
}

func byTokenOverlap(name string, roster []model.MemberProfile, opts Options) *model.MemberProfile {
	tokens := nameTokens(name)
	if len(tokens) == 0 {
		return nil
	}

	var (
		best       *model.MemberProfile
		bestScore  float64
		otherScore float64
	)
	for i := range roster {
		score := overlapScore(tokens, nameTokens(roster[i].FullName))
		switch {
		case score > bestScore:
			best, otherScore, bestScore = &roster[i], bestScore, score
		case score > otherScore:
			otherScore = score
		}
	}

	if best == nil || bestScore < opts.Threshold || bestScore-otherScore < opts.Margin {
		return nil
	}
	return best
}

// overlapScore is the Dice coefficient of two token sets.
func overlapScore(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := 0
	for tok := range a {
		if b[tok] {
			shared++
		}
	}
	return 2 * float64(shared) / float64(len(a)+len(b))
}
