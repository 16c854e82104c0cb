// Package threads reconciles a conversation's messages into its reply,
// priority and draft-needed state.
package threads

import (
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/mailpilot-ai/mailpilot/pkg/gmail"
)

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

var (
	highPriorityKeywords   = []string{"urgent", "action required", "important", "deadline", "asap"}
	mediumPriorityKeywords = []string{"follow up", "request", "question", "meeting"}
)

// Analysis is the derived per-thread state, recomputed every run.
type Analysis struct {
	Replied           bool     `json:"replied"`
	Priority          Priority `json:"priority"`
	DraftReplyNeeded  bool     `json:"draftReplyNeeded"`
	LastEmailFromUser bool     `json:"lastEmailFromUser"`
	LastEmailID       string   `json:"lastEmailId"`
}

// SortByDate returns the thread's messages in chronological order without
// mutating the input. Unparseable dates sort first.
func SortByDate(emails []gmail.EmailRecord) []gmail.EmailRecord {
	sorted := make([]gmail.EmailRecord, len(emails))
	copy(sorted, emails)
	sort.SliceStable(sorted, func(i, j int) bool {
		return ParseDate(sorted[i].Date).Before(ParseDate(sorted[j].Date))
	})
	return sorted
}

// Analyze walks the thread chronologically. Replied latches the moment any
// message's sender contains the user's address; LastEmailFromUser is
// overwritten on every message so it ends up reflecting only the final one.
// A draft is wanted only when the user never replied and the thread does
// not end with the user's own message.
func Analyze(userAddress string, emails []gmail.EmailRecord) Analysis {
	if len(emails) == 0 {
		return Analysis{Priority: PriorityLow}
	}

	sorted := SortByDate(emails)

	var replied, lastFromUser bool
	var lastID string
	for _, email := range sorted {
		if strings.Contains(email.Sender, userAddress) {
			replied = true
			lastFromUser = true
		} else {
			lastFromUser = false
		}
		lastID = email.ID
	}

	last := sorted[len(sorted)-1]
	return Analysis{
		Replied:           replied,
		Priority:          classifyPriority(last.Subject, last.Body),
		DraftReplyNeeded:  !replied && !lastFromUser,
		LastEmailFromUser: lastFromUser,
		LastEmailID:       lastID,
	}
}

// classifyPriority inspects only the chronologically last message. Subject
// and body share the same keyword sets, no separate weighting.
func classifyPriority(subject, body string) Priority {
	subject = strings.ToLower(subject)
	body = strings.ToLower(body)
	contains := func(keyword string) bool {
		return strings.Contains(subject, keyword) || strings.Contains(body, keyword)
	}
	if lo.SomeBy(highPriorityKeywords, contains) {
		return PriorityHigh
	}
	if lo.SomeBy(mediumPriorityKeywords, contains) {
		return PriorityMedium
	}
	return PriorityLow
}
