package threads

import (
	"net/mail"
	"regexp"
	"strings"
	"time"
)

// Provider date headers arrive in several near-RFC-2822 shapes, e.g.
// "Fri, 8 Aug 2025 03:58:49 +0530 (IST)" or "8 Aug 2025 03:58:49 +0530".
var dateLayouts = []string{
	"Mon, 2 Jan 2006 15:04:05 -0700 (MST)",
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

var (
	tzCommentPattern = regexp.MustCompile(`\s+\(.*\)$`)
	utcOffsetPattern = regexp.MustCompile(`\s[+-]\d{4}`)
)

// ParseDate never fails: when every layout, the stripped retry and the
// lenient RFC-5322 pass all miss, the zero time comes back so the affected
// message sorts to the front instead of aborting the run.
func ParseDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}

	stripped := tzCommentPattern.ReplaceAllString(raw, "")
	stripped = utcOffsetPattern.ReplaceAllString(stripped, "")
	if t, err := time.Parse("Mon, 2 Jan 2006 15:04:05", stripped); err == nil {
		return t
	}

	if t, err := mail.ParseDate(raw); err == nil {
		return t
	}

	return time.Time{}
}
