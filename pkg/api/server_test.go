package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/mailpilot-ai/mailpilot/pkg/assistant"
	"github.com/mailpilot-ai/mailpilot/pkg/export"
	"github.com/mailpilot-ai/mailpilot/pkg/gmail"
)

type stubMail struct {
	profileErr error
	messages   map[string]*gmailapi.Message
	order      []string
	sentTo     []string
}

func (s *stubMail) Profile(ctx context.Context) (string, error) {
	if s.profileErr != nil {
		return "", s.profileErr
	}
	return "me@example.com", nil
}

func (s *stubMail) ListMessageIDs(ctx context.Context, query string) ([]string, error) {
	return s.order, nil
}

func (s *stubMail) Message(ctx context.Context, id string) (*gmailapi.Message, error) {
	msg, ok := s.messages[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return msg, nil
}

func (s *stubMail) Send(ctx context.Context, to, subject, body string) error {
	s.sentTo = append(s.sentTo, to)
	return nil
}

type stubGen struct{}

func (stubGen) Generate(ctx context.Context, prompt string) (string, error) {
	return "generated text", nil
}

func testServer(t *testing.T, mail gmail.MailService) *Server {
	t.Helper()
	logger := log.New(os.Stdout)
	asst := assistant.New(logger, mail, stubGen{})
	exporter := export.NewExporter(logger, filepath.Join(t.TempDir(), "emails_%s.csv"))
	return NewServer(logger, asst, exporter, mail, Defaults{Days: 7, EnableReplyGeneration: true})
}

func oneMessageMail() *stubMail {
	return &stubMail{
		order: []string{"m1"},
		messages: map[string]*gmailapi.Message{
			"m1": {
				Id:       "m1",
				ThreadId: "t1",
				LabelIds: []string{"INBOX"},
				Payload: &gmailapi.MessagePart{
					MimeType: "text/plain",
					Headers: []*gmailapi.MessagePartHeader{
						{Name: "From", Value: "alice@example.com"},
						{Name: "Subject", Value: "hi"},
						{Name: "Date", Value: "Fri, 8 Aug 2025 09:00:00 +0000"},
					},
					Body: &gmailapi.MessagePartBody{
						Data: base64.URLEncoding.EncodeToString([]byte("hello")),
					},
				},
			},
		},
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := testServer(t, oneMessageMail())
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestProcessEmailsEndpoint(t *testing.T) {
	srv := testServer(t, oneMessageMail())
	body := bytes.NewBufferString(`{"days_to_process": 3, "enable_reply_generation": true}`)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/process_emails", body))

	assert.Equal(t, http.StatusOK, rec.Code)

	var results []assistant.ResultRecord
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	assert.Len(t, results, 1)
	assert.Equal(t, "t1", results[0].ThreadID)
	assert.Equal(t, "generated text", results[0].Summary)
}

func TestProcessEmailsUnauthenticated(t *testing.T) {
	srv := testServer(t, &stubMail{profileErr: gmail.ErrAuthRequired})
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/process_emails", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "detail")
}

func TestExportRequiresProcessedData(t *testing.T) {
	srv := testServer(t, oneMessageMail())
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/export_data", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportAfterProcessing(t *testing.T) {
	srv := testServer(t, oneMessageMail())

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/process_emails", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/export_data", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	_, err := os.Stat(resp["path"])
	assert.NoError(t, err)
}

func TestSendReplyEndpoint(t *testing.T) {
	mail := oneMessageMail()
	srv := testServer(t, mail)

	body := bytes.NewBufferString(`{"to":"alice@example.com","subject":"Re: hi","body":"hello back"}`)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/send_reply", body))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"alice@example.com"}, mail.sentTo)
}

func TestSendReplyRequiresRecipient(t *testing.T) {
	srv := testServer(t, oneMessageMail())
	body := bytes.NewBufferString(`{"subject":"x","body":"y"}`)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/send_reply", body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
