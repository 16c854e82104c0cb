package gmail

import (
	"encoding/base64"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/jaytaylor/html2text"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	gmailapi "google.golang.org/api/gmail/v1"
)

const headerPlaceholder = "N/A"

const unreadLabel = "UNREAD"

// Normalize decodes a raw Gmail message into an EmailRecord. Header lookup
// is by exact provider-reported name; a missing header yields "N/A". Body
// decoding never fails: anything undecodable collapses to an empty string.
func Normalize(logger *log.Logger, msg *gmailapi.Message) (EmailRecord, error) {
	if msg == nil || msg.Payload == nil {
		return EmailRecord{}, errors.New("message has no payload")
	}

	headers := make(map[string]string, len(msg.Payload.Headers))
	for _, h := range msg.Payload.Headers {
		headers[h.Name] = h.Value
	}

	return EmailRecord{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		Snippet:  msg.Snippet,
		Sender:   headerValue(headers, "From"),
		Subject:  headerValue(headers, "Subject"),
		Date:     headerValue(headers, "Date"),
		Body:     extractBody(logger, msg.Payload),
		IsRead:   !lo.Contains(msg.LabelIds, unreadLabel),
		Labels:   msg.LabelIds,
	}, nil
}

func headerValue(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return v
	}
	return headerPlaceholder
}

// extractBody walks the MIME part tree depth-first. A text/plain part wins
// outright, text/html is stripped down to its visible text, and for
// container parts the first non-empty nested result wins. A message with no
// parts falls back to its inline body. Empty means "nothing decodable",
// which is not an error.
func extractBody(logger *log.Logger, payload *gmailapi.MessagePart) string {
	if len(payload.Parts) > 0 {
		for _, part := range payload.Parts {
			switch {
			case part.MimeType == "text/plain":
				return decodePart(logger, part)
			case part.MimeType == "text/html":
				return htmlToText(logger, decodePart(logger, part))
			case len(part.Parts) > 0:
				if nested := extractBody(logger, part); nested != "" {
					return nested
				}
			}
		}
		return ""
	}
	if payload.Body != nil && payload.Body.Data != "" {
		return decodeBodyData(logger, payload.Body.Data)
	}
	return ""
}

func decodePart(logger *log.Logger, part *gmailapi.MessagePart) string {
	if part.Body == nil {
		return ""
	}
	return decodeBodyData(logger, part.Body.Data)
}

// decodeBodyData decodes the URL-safe base64 the Gmail API uses for body
// payloads, tolerating missing padding.
func decodeBodyData(logger *log.Logger, data string) string {
	if data == "" {
		return ""
	}
	if m := len(data) % 4; m != 0 {
		data += strings.Repeat("=", 4-m)
	}
	data = strings.ReplaceAll(data, "-", "+")
	data = strings.ReplaceAll(data, "_", "/")
	b, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		logger.Warn("failed to decode message body", "error", err)
		return ""
	}
	return string(b)
}

func htmlToText(logger *log.Logger, html string) string {
	if html == "" {
		return ""
	}
	text, err := html2text.FromString(html, html2text.Options{OmitLinks: true, TextOnly: true})
	if err != nil {
		logger.Warn("failed to convert html body", "error", err)
		return html
	}
	return text
}
