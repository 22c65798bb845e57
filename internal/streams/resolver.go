package streams

import (
	"sort"

	"deptbot/internal/model"
)

// Resolve computes the streams a member is auto-subscribed to, as the
// union of independent rules over (year, fields). unknown lists field
// names that have no stream in the catalog; they are skipped, not
// errors, but worth operator follow-up.
//
// A nil profile resolves to no streams: the caller falls back to
// manual-subscription messaging.
func Resolve(profile *model.MemberProfile) (streams []model.StreamTag, unknown []string) {
	if profile == nil {
		return nil, nil
	}

	seen := make(map[model.StreamTag]bool)
	add := func(tag model.StreamTag) {
		if !seen[tag] {
			seen[tag] = true
			streams = append(streams, tag)
		}
	}

	if profile.Year == 1 {
		for _, tag := range CoreCourseStreams {
			add(tag)
		}
	}

	for _, field := range profile.Fields {
		tag, ok := FieldStream(field)
		if !ok {
			unknown = append(unknown, field)
			continue
		}
		add(tag)
	}

	sort.Slice(streams, func(i, j int) bool { return streams[i] < streams[j] })
	return streams, unknown
}

// EligibleForCourses reports whether a member may self-subscribe to
// course streams (years 1 through 3). Course streams beyond the core
// set are never auto-added; this only gates the invitation.
func EligibleForCourses(profile *model.MemberProfile) bool {
	return profile != nil && profile.Year >= 1 && profile.Year <= 3
}
