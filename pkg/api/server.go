// Package api exposes the processing pipeline over HTTP.
package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi"
	"github.com/pkg/errors"
	"github.com/rs/cors"

	"github.com/mailpilot-ai/mailpilot/pkg/assistant"
	"github.com/mailpilot-ai/mailpilot/pkg/export"
	"github.com/mailpilot-ai/mailpilot/pkg/gmail"
)

// Defaults hold the config-supplied fallbacks for per-request options.
type Defaults struct {
	Days                  int
	EnableReplyGeneration bool
}

type Server struct {
	logger    *log.Logger
	assistant *assistant.Assistant
	exporter  *export.Exporter
	mail      gmail.MailService
	defaults  Defaults

	mu          sync.Mutex
	lastResults []assistant.ResultRecord
}

func NewServer(logger *log.Logger, asst *assistant.Assistant, exporter *export.Exporter, mail gmail.MailService, defaults Defaults) *Server {
	return &Server{
		logger:    logger,
		assistant: asst,
		exporter:  exporter,
		mail:      mail,
		defaults:  defaults,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/api/health", s.handleHealth)
	r.Post("/api/process_emails", s.handleProcess(false))
	r.Post("/api/process_emails_today", s.handleProcess(true))
	r.Post("/api/export_data", s.handleExport)
	r.Post("/api/send_reply", s.handleSendReply)

	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}).Handler(r)
}

type processRequest struct {
	DaysToProcess         int    `json:"days_to_process"`
	EnableReplyGeneration *bool  `json:"enable_reply_generation"`
	ReplyInstructions     string `json:"reply_instructions"`
}

type exportRequest struct {
	Filename string `json:"filename"`
}

type sendReplyRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{"status": "ok", "message": "API is running"})
}

func (s *Server) handleProcess(todayOnly bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req processRequest
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				s.respondError(w, http.StatusBadRequest, errors.Wrap(err, "invalid request body"))
				return
			}
		}

		opts := assistant.RunOptions{
			Days:                  s.defaults.Days,
			TodayOnly:             todayOnly,
			EnableReplyGeneration: s.defaults.EnableReplyGeneration,
			ReplyInstructions:     req.ReplyInstructions,
		}
		if req.DaysToProcess > 0 {
			opts.Days = req.DaysToProcess
		}
		if req.EnableReplyGeneration != nil {
			opts.EnableReplyGeneration = *req.EnableReplyGeneration
		}

		results, err := s.assistant.Run(r.Context(), opts)
		if err != nil {
			if errors.Is(err, gmail.ErrAuthRequired) {
				s.respondError(w, http.StatusUnauthorized, err)
				return
			}
			s.respondError(w, http.StatusInternalServerError, err)
			return
		}

		s.mu.Lock()
		s.lastResults = results
		s.mu.Unlock()

		s.respond(w, http.StatusOK, results)
	}
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, errors.Wrap(err, "invalid request body"))
			return
		}
	}

	s.mu.Lock()
	records := s.lastResults
	s.mu.Unlock()

	if len(records) == 0 {
		s.respondError(w, http.StatusNotFound,
			errors.New("no processed data found to export, run process_emails first"))
		return
	}

	path, err := s.exporter.Export(records, req.Filename)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"path": path})
}

func (s *Server) handleSendReply(w http.ResponseWriter, r *http.Request) {
	var req sendReplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, errors.Wrap(err, "invalid request body"))
		return
	}
	if req.To == "" {
		s.respondError(w, http.StatusBadRequest, errors.New("recipient is required"))
		return
	}

	if err := s.mail.Send(r.Context(), req.To, req.Subject, req.Body); err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"status": "sent"})
}

func (s *Server) respond(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, err error) {
	s.logger.Error("request failed", "status", status, "error", err)
	s.respond(w, status, map[string]string{"detail": err.Error()})
}
