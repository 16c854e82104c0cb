// Package assistant orchestrates one processing run: fetch, normalize,
// group by thread, analyze, summarize and draft replies.
package assistant

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"github.com/mailpilot-ai/mailpilot/pkg/gmail"
	"github.com/mailpilot-ai/mailpilot/pkg/threads"
)

const defaultDaysToProcess = 7

// Generator is the text-generation capability the assistant drives for
// summaries and reply drafts.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// RunOptions configure a single run. They are plain values: nothing here is
// shared or mutated across requests.
type RunOptions struct {
	Days                  int
	TodayOnly             bool
	EnableReplyGeneration bool
	ReplyInstructions     string
}

// ResultRecord is the externally visible per-thread outcome, keyed by the
// thread's chronologically last message.
type ResultRecord struct {
	ID         string           `json:"id"`
	Sender     string           `json:"sender"`
	Subject    string           `json:"subject"`
	Date       string           `json:"date"`
	Summary    string           `json:"summary"`
	Replied    bool             `json:"replied"`
	DraftReply string           `json:"draftReply"`
	Priority   threads.Priority `json:"priority"`
	ThreadID   string           `json:"threadId"`
}

type Assistant struct {
	logger *log.Logger
	mail   gmail.MailService
	gen    Generator
	now    func() time.Time
}

func New(logger *log.Logger, mail gmail.MailService, gen Generator) *Assistant {
	return &Assistant{
		logger: logger,
		mail:   mail,
		gen:    gen,
		now:    time.Now,
	}
}

// Run executes one processing pass over the configured window. Partial
// failures (a message that cannot be fetched or normalized, a generation
// call that degrades to a placeholder) never abort the batch; only a
// missing authenticated identity does.
func (a *Assistant) Run(ctx context.Context, opts RunOptions) ([]ResultRecord, error) {
	userAddress, err := a.mail.Profile(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "could not resolve authenticated user")
	}

	days := opts.Days
	if days <= 0 {
		days = defaultDaysToProcess
	}
	query := gmail.QueryLastNDays(a.now(), days)
	if opts.TodayOnly {
		query = gmail.QueryToday(a.now())
	}
	a.logger.Info("processing mailbox", "user", userAddress, "query", query)

	ids, err := a.mail.ListMessageIDs(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "could not list messages")
	}
	a.logger.Info("found messages", "count", len(ids))

	// Group by thread, preserving first-seen order so output is
	// deterministic for a given input.
	var threadOrder []string
	threadEmails := make(map[string][]gmail.EmailRecord)
	for _, id := range ids {
		msg, err := a.mail.Message(ctx, id)
		if err != nil {
			a.logger.Error("failed to fetch message, skipping", "id", id, "error", err)
			continue
		}
		rec, err := gmail.Normalize(a.logger, msg)
		if err != nil {
			a.logger.Error("failed to normalize message, skipping", "id", id, "error", err)
			continue
		}
		if _, seen := threadEmails[rec.ThreadID]; !seen {
			threadOrder = append(threadOrder, rec.ThreadID)
		}
		threadEmails[rec.ThreadID] = append(threadEmails[rec.ThreadID], rec)
	}
	a.logger.Info("grouped messages", "threads", len(threadOrder))

	results := make([]ResultRecord, 0, len(threadOrder))
	for _, threadID := range threadOrder {
		sorted := threads.SortByDate(threadEmails[threadID])
		analysis := threads.Analyze(userAddress, sorted)
		last := sorted[len(sorted)-1]
		a.logger.Debug("analyzed thread", "thread", threadID,
			"replied", analysis.Replied, "priority", analysis.Priority,
			"draft_needed", analysis.DraftReplyNeeded)

		summary := a.summarize(ctx, threadID, sorted)

		draftReply := notApplicable
		if opts.EnableReplyGeneration && analysis.DraftReplyNeeded {
			draftReply = a.draftReply(ctx, threadID, sorted, opts.ReplyInstructions)
		}

		results = append(results, ResultRecord{
			ID:         last.ID,
			Sender:     last.Sender,
			Subject:    last.Subject,
			Date:       last.Date,
			Summary:    summary,
			Replied:    analysis.Replied,
			DraftReply: draftReply,
			Priority:   analysis.Priority,
			ThreadID:   threadID,
		})
	}

	a.logger.Info("processing complete", "results", len(results))
	return results, nil
}

func (a *Assistant) summarize(ctx context.Context, threadID string, emails []gmail.EmailRecord) string {
	prompt := fmt.Sprintf(summaryPromptTemplate, threadContent(emails))
	summary, err := a.gen.Generate(ctx, prompt)
	if err != nil {
		a.logger.Error("failed to summarize thread", "thread", threadID, "error", err)
		return summaryFailurePlaceholder
	}
	return summary
}

func (a *Assistant) draftReply(ctx context.Context, threadID string, emails []gmail.EmailRecord, instructions string) string {
	if instructions == "" {
		instructions = DefaultReplyInstructions
	}
	prompt := fmt.Sprintf(replyPromptTemplate, threadContent(emails), instructions)
	reply, err := a.gen.Generate(ctx, prompt)
	if err != nil {
		a.logger.Error("failed to generate reply draft", "thread", threadID, "error", err)
		return replyFailurePlaceholder
	}
	return reply
}
