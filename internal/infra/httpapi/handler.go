// Package httpapi exposes the standup operations over HTTP for dashboards and ops tooling.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"standup_bot/internal/app"
	"standup_bot/internal/domain/standup"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// StandupService is the subset of the standup service served over HTTP.
type StandupService interface {
	StartNow(ctx context.Context, teamID int64) (*app.StartResult, error)
	GetStatus(ctx context.Context, teamID int64, date *time.Time) (standup.StatusCounts, error)
	GetSummary(ctx context.Context, teamID int64, date *time.Time) (*standup.Summary, error)
}

type Handler struct {
	standups StandupService
	logger   *logrus.Entry
}

func NewHandler(standups StandupService, logger *logrus.Entry) *Handler {
	return &Handler{standups: standups, logger: logger.WithField("component", "httpapi")}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/teams/{teamID}", func(r chi.Router) {
		r.Post("/standup", h.startStandup)
		r.Get("/status", h.getStatus)
		r.Get("/summary", h.getSummary)
	})
	return r
}

type startResponse struct {
	SessionID          string    `json:"session_id"`
	ParticipantCount   int       `json:"participant_count"`
	Date               string    `json:"date"`
	EscalationDeadline time.Time `json:"escalation_deadline"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (h *Handler) startStandup(w http.ResponseWriter, r *http.Request) {
	teamID, ok := h.teamID(w, r)
	if !ok {
		return
	}
	res, err := h.standups.StartNow(r.Context(), teamID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, startResponse{
		SessionID:          res.Session.ID,
		ParticipantCount:   res.ParticipantCount,
		Date:               res.Date.Format("2006-01-02"),
		EscalationDeadline: res.Session.EscalationDeadline,
	})
}

func (h *Handler) getStatus(w http.ResponseWriter, r *http.Request) {
	teamID, ok := h.teamID(w, r)
	if !ok {
		return
	}
	date, ok := h.date(w, r)
	if !ok {
		return
	}
	counts, err := h.standups.GetStatus(r.Context(), teamID, date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func (h *Handler) getSummary(w http.ResponseWriter, r *http.Request) {
	teamID, ok := h.teamID(w, r)
	if !ok {
		return
	}
	date, ok := h.date(w, r)
	if !ok {
		return
	}
	summary, err := h.standups.GetSummary(r.Context(), teamID, date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) teamID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "teamID"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: string(app.KindValidation), Message: "team id must be a number"})
		return 0, false
	}
	return id, true
}

func (h *Handler) date(w http.ResponseWriter, r *http.Request) (*time.Time, bool) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return nil, true
	}
	day, err := time.ParseInLocation("2006-01-02", raw, time.Local)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: string(app.KindValidation), Message: "date must be YYYY-MM-DD"})
		return nil, false
	}
	return &day, true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *app.Error
	if !errors.As(err, &appErr) {
		h.logger.WithError(err).WithField("path", r.URL.Path).Error("Request failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Code: "INTERNAL", Message: "internal error"})
		return
	}
	status := http.StatusBadRequest
	switch appErr.Kind {
	case app.KindNotFound:
		status = http.StatusNotFound
	case app.KindAlreadyStarted:
		status = http.StatusConflict
	case app.KindConfiguration:
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, errorResponse{Code: string(appErr.Kind), Message: appErr.Message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
