// Package main provides the local admin HTTP API for inspektord.
package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tkmserwis/inspektor/internal/archive"
	"github.com/tkmserwis/inspektor/internal/config"
	apperrors "github.com/tkmserwis/inspektor/internal/errors"
	"github.com/tkmserwis/inspektor/internal/logging"
	"github.com/tkmserwis/inspektor/internal/mail"
	"github.com/tkmserwis/inspektor/internal/models"
	"github.com/tkmserwis/inspektor/internal/netstatus"
	"github.com/tkmserwis/inspektor/internal/outbox"
	"github.com/tkmserwis/inspektor/internal/outbox/scheduler"
)

// server exposes the local admin surface: queue status, manual drain,
// the inspection archive and a WebSocket event stream.
type server struct {
	outbox   *outbox.Outbox
	sched    *scheduler.Scheduler
	monitor  *netstatus.Monitor
	archive  *archive.Archive
	reminder *archive.ReminderScanner
	hub      *wsHub
	mailCfg  config.Mail
}

func newServer(ob *outbox.Outbox, sched *scheduler.Scheduler, monitor *netstatus.Monitor, arch *archive.Archive, reminder *archive.ReminderScanner, hub *wsHub, mailCfg config.Mail) *server {
	return &server{
		outbox:   ob,
		sched:    sched,
		monitor:  monitor,
		archive:  arch,
		reminder: reminder,
		hub:      hub,
		mailCfg:  mailCfg,
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/status", s.handleStatus)
	r.Post("/drain", s.handleDrain)

	r.Route("/outbox", func(r chi.Router) {
		r.Get("/", s.handleListOutbox)
		r.Post("/", s.handleEnqueue)
		r.Post("/report", s.handleEnqueueReport)
	})

	r.Route("/inspections", func(r chi.Router) {
		r.Get("/", s.handleListInspections)
		r.Post("/", s.handleSaveInspection)
		r.Delete("/{id}", s.handleDeleteInspection)
	})

	r.Post("/reminders/scan", s.handleReminderScan)

	r.Get("/ws", handleWebSocket(s.hub))

	return r
}

type statusResponse struct {
	Online          bool                `json:"online"`
	Pending         int                 `json:"pending"`
	DrainInProgress bool                `json:"drainInProgress"`
	LastDrainTime   *time.Time          `json:"lastDrainTime,omitempty"`
	LastResult      *outbox.DrainResult `json:"lastResult,omitempty"`
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	pending, err := s.outbox.Pending()
	if err != nil {
		writeError(w, err)
		return
	}

	st := s.sched.GetStatus()
	writeJSON(w, http.StatusOK, statusResponse{
		Online:          s.monitor.Online(),
		Pending:         pending,
		DrainInProgress: st.DrainInProgress,
		LastDrainTime:   st.LastDrainTime,
		LastResult:      st.LastResult,
	})
}

// handleDrain requests a "retry now" drain. The drain itself runs on
// the scheduler's own context; tying it to the request context would
// kill it the moment this handler returns.
func (s *server) handleDrain(w http.ResponseWriter, r *http.Request) {
	started := s.sched.TriggerDrain()
	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"started": started,
	})
}

type enqueueRequest struct {
	To          string              `json:"to"`
	Subject     string              `json:"subject"`
	HTML        string              `json:"html"`
	Attachments []models.Attachment `json:"attachments,omitempty"`
}

func (s *server) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"code":  string(apperrors.ErrValidation),
			"error": "invalid request body",
		})
		return
	}
	if req.To == "" || req.Subject == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"code":  string(apperrors.ErrValidation),
			"error": "to and subject are required",
		})
		return
	}

	id, err := s.outbox.Enqueue(outbox.Job{
		Recipient:   req.To,
		Subject:     req.Subject,
		HTML:        req.HTML,
		Attachments: req.Attachments,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"id": id})
}

type reportRequest struct {
	To          string              `json:"to"`
	Date        string              `json:"date"` // inspection date as shown to the client
	Attachments []models.Attachment `json:"attachments,omitempty"`
}

// handleEnqueueReport renders the client report email and queues it.
// The finalize flow sends the report PDF here as a base64 attachment;
// if the device is offline the email simply waits in the queue.
func (s *server) handleEnqueueReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"code":  string(apperrors.ErrValidation),
			"error": "invalid request body",
		})
		return
	}
	if req.To == "" || req.Date == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"code":  string(apperrors.ErrValidation),
			"error": "to and date are required",
		})
		return
	}

	html, err := mail.RenderReportHTML(mail.ReportParams{
		Date:     req.Date,
		ReplyTo:  s.mailCfg.ReplyTo,
		TeamName: s.mailCfg.TeamName,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	id, err := s.outbox.Enqueue(outbox.Job{
		Recipient:   req.To,
		Subject:     mail.ReportSubject,
		HTML:        html,
		Attachments: req.Attachments,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"id": id})
}

func (s *server) handleListOutbox(w http.ResponseWriter, r *http.Request) {
	items, err := s.outbox.Items()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *server) handleListInspections(w http.ResponseWriter, r *http.Request) {
	inspections, err := s.archive.List()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inspections)
}

func (s *server) handleSaveInspection(w http.ResponseWriter, r *http.Request) {
	var insp models.Inspection
	if err := json.NewDecoder(r.Body).Decode(&insp); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"code":  string(apperrors.ErrValidation),
			"error": "invalid request body",
		})
		return
	}

	id, err := s.archive.Save(&insp)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"id": id})
}

func (s *server) handleDeleteInspection(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"code":  string(apperrors.ErrValidation),
			"error": "invalid inspection id",
		})
		return
	}

	if err := s.archive.Delete(id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleReminderScan(w http.ResponseWriter, r *http.Request) {
	queued, err := s.reminder.Scan()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"queued": queued})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("Failed to encode response", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := apperrors.CodeOf(err)

	status := http.StatusInternalServerError
	switch code {
	case apperrors.ErrNotFound:
		status = http.StatusNotFound
	case apperrors.ErrValidation, apperrors.ErrInvalid:
		status = http.StatusBadRequest
	case apperrors.ErrStorageUnavailable:
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, map[string]string{
		"code":  string(code),
		"error": err.Error(),
	})
}
