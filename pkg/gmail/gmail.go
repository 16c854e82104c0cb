// Package gmail provides the mail-provider capability for the pipeline:
// fetching, normalizing and sending messages through the Gmail API.
package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
)

// ErrAuthRequired marks the absence of an authenticated identity. It is the
// one error that aborts a whole processing run.
var ErrAuthRequired = errors.New("google authentication required")

// MailService is the provider capability consumed by the orchestrator.
// Implementations must paginate transparently in ListMessageIDs.
type MailService interface {
	Profile(ctx context.Context) (string, error)
	ListMessageIDs(ctx context.Context, query string) ([]string, error)
	Message(ctx context.Context, id string) (*gmailapi.Message, error)
	Send(ctx context.Context, to, subject, body string) error
}

var _ MailService = (*Client)(nil)

// Client implements MailService against the Gmail REST API.
type Client struct {
	srv    *gmailapi.Service
	logger *log.Logger
}

const listPageSize = 500

// Profile returns the authenticated user's email address.
func (c *Client) Profile(ctx context.Context) (string, error) {
	profile, err := c.srv.Users.GetProfile("me").Context(ctx).Do()
	if err != nil {
		if isAuthError(err) {
			return "", errors.Wrap(ErrAuthRequired, err.Error())
		}
		return "", errors.Wrap(err, "failed to retrieve user profile")
	}
	return profile.EmailAddress, nil
}

// ListMessageIDs lists all message ids matching the query, following page
// tokens until exhaustion.
func (c *Client) ListMessageIDs(ctx context.Context, query string) ([]string, error) {
	var ids []string
	pageToken := ""
	for {
		req := c.srv.Users.Messages.List("me").Q(query).MaxResults(listPageSize).Context(ctx)
		if pageToken != "" {
			req = req.PageToken(pageToken)
		}
		resp, err := req.Do()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to list messages for query %q", query)
		}
		for _, m := range resp.Messages {
			ids = append(ids, m.Id)
		}
		if resp.NextPageToken == "" {
			return ids, nil
		}
		pageToken = resp.NextPageToken
	}
}

func (c *Client) Message(ctx context.Context, id string) (*gmailapi.Message, error) {
	msg, err := c.srv.Users.Messages.Get("me", id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to retrieve message %s", id)
	}
	return msg, nil
}

// Send composes and sends a plain-text message from the authenticated user.
func (c *Client) Send(ctx context.Context, to, subject, body string) error {
	from, err := c.Profile(ctx)
	if err != nil {
		return err
	}
	_, err = c.srv.Users.Messages.Send("me", composeMessage(from, to, subject, body)).Context(ctx).Do()
	if err != nil {
		return errors.Wrap(err, "failed to send message")
	}
	c.logger.Info("sent message", "to", to, "subject", subject)
	return nil
}

func composeMessage(from, to, subject, body string) *gmailapi.Message {
	raw := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"utf-8\"\r\n\r\n%s",
		from, to, subject, body)
	return &gmailapi.Message{
		Raw: base64.URLEncoding.EncodeToString([]byte(raw)),
	}
}

func isAuthError(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden
	}
	return false
}

// QueryLastNDays builds the provider query for the trailing-days window.
func QueryLastNDays(now time.Time, days int) string {
	cutoff := now.AddDate(0, 0, -days)
	return "after:" + cutoff.Format("2006/01/02")
}

// QueryToday bounds the query to messages received on the current date.
func QueryToday(now time.Time) string {
	return fmt.Sprintf("after:%s before:%s",
		now.Format("2006/01/02"), now.AddDate(0, 0, 1).Format("2006/01/02"))
}
