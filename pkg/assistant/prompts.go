package assistant

import (
	"fmt"
	"strings"

	"github.com/mailpilot-ai/mailpilot/pkg/gmail"
)

// DefaultReplyInstructions is used when the caller does not supply its own
// guidance for the reply draft.
const DefaultReplyInstructions = "Generate a professional and concise reply."

const (
	summaryFailurePlaceholder = "Could not generate summary."
	replyFailurePlaceholder   = "Could not generate reply draft."
	notApplicable             = "N/A"
)

const summaryPromptTemplate = `You are an AI assistant specialized in summarizing email threads.
Your goal is to provide a concise and informative summary of the given email thread.
Focus on the main topic, key decisions, action items, and important details.
Keep the summary under 200 words.

Email Thread:
%s`

const replyPromptTemplate = `You are an AI assistant specialized in generating email replies.
Your goal is to craft a concise and appropriate reply based on the given email thread and the user's instructions.
Consider the context of the conversation and maintain a professional tone.

Email Thread:
%s

User Instructions:
%s`

// threadContent serializes an already-sorted thread as one From/Subject/
// Date/Body block per message, blank line between blocks.
func threadContent(emails []gmail.EmailRecord) string {
	var b strings.Builder
	for _, email := range emails {
		fmt.Fprintf(&b, "From: %s\n", email.Sender)
		fmt.Fprintf(&b, "Subject: %s\n", email.Subject)
		fmt.Fprintf(&b, "Date: %s\n", email.Date)
		fmt.Fprintf(&b, "Body: %s\n\n", email.Body)
	}
	return b.String()
}
