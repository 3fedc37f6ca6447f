// Package http exposes the operator surface: health, metrics, the WebSocket
// entry points and a small JSON API over the exam, chat and notification
// services.
package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"classroom-quiz-service/internal/app"
	"classroom-quiz-service/internal/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Notifier is the part of the notification engine the API drives.
type Notifier interface {
	Registrations() (exam, clients []domain.Registration)
	Notify(text string) int
	Announce(text string) int
	Remind(text string) int
	StartPoll(question string, options []string) (domain.PollTally, error)
	Tally() (domain.PollTally, error)
	ClosePoll() (domain.PollTally, error)
}

type AdminHandler struct {
	exams    *app.ExamService
	notifier Notifier
}

func NewAdminHandler(exams *app.ExamService, notifier Notifier) *AdminHandler {
	return &AdminHandler{exams: exams, notifier: notifier}
}

// NewMux wires every route.
func NewMux(admin *AdminHandler, ws *WSHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ws/results", ws.ServeResults)
	mux.HandleFunc("/ws/chat", ws.ServeChat)

	mux.HandleFunc("GET /api/results", admin.results)
	mux.HandleFunc("GET /api/sessions", admin.sessions)
	mux.HandleFunc("POST /api/quiz/reload", admin.reloadQuiz)
	mux.HandleFunc("GET /api/registrations", admin.registrations)
	mux.HandleFunc("POST /api/notifications", admin.notify)
	mux.HandleFunc("POST /api/polls", admin.startPoll)
	mux.HandleFunc("GET /api/polls/current", admin.currentPoll)
	mux.HandleFunc("POST /api/polls/current/close", admin.closePoll)
	return mux
}

type errorPayload struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api encode failed: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorPayload{Message: err.Error()})
}

func (h *AdminHandler) results(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.exams.Board().Snapshot())
}

func (h *AdminHandler) sessions(w http.ResponseWriter, r *http.Request) {
	active, err := h.exams.ActiveSessions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if active == nil {
		active = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"students": active})
}

func (h *AdminHandler) reloadQuiz(w http.ResponseWriter, r *http.Request) {
	n, err := h.exams.ReloadQuiz(r.Context())
	switch {
	case errors.Is(err, domain.ErrQuizNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, domain.ErrInvalidQuiz):
		writeError(w, http.StatusUnprocessableEntity, err)
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
	default:
		writeJSON(w, http.StatusOK, map[string]int{"questions": n})
	}
}

func (h *AdminHandler) registrations(w http.ResponseWriter, r *http.Request) {
	exam, clients := h.notifier.Registrations()
	writeJSON(w, http.StatusOK, map[string][]domain.Registration{
		"exam":    exam,
		"clients": clients,
	})
}

type notificationRequest struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

func (h *AdminHandler) notify(w http.ResponseWriter, r *http.Request) {
	var req notificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		writeError(w, http.StatusBadRequest, errors.New("expected {\"kind\",\"text\"}"))
		return
	}
	var sent int
	switch req.Kind {
	case "announce":
		sent = h.notifier.Announce(req.Text)
	case "remind":
		sent = h.notifier.Remind(req.Text)
	case "notify", "":
		sent = h.notifier.Notify(req.Text)
	default:
		writeError(w, http.StatusBadRequest, errors.New("kind must be announce, remind or notify"))
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]int{"sent": sent})
}

type pollRequest struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

func (h *AdminHandler) startPoll(w http.ResponseWriter, r *http.Request) {
	var req pollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	tally, err := h.notifier.StartPoll(req.Question, req.Options)
	switch {
	case errors.Is(err, domain.ErrPollActive):
		writeError(w, http.StatusConflict, err)
	case err != nil:
		writeError(w, http.StatusBadRequest, err)
	default:
		writeJSON(w, http.StatusCreated, tally)
	}
}

func (h *AdminHandler) currentPoll(w http.ResponseWriter, r *http.Request) {
	tally, err := h.notifier.Tally()
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, tally)
}

func (h *AdminHandler) closePoll(w http.ResponseWriter, r *http.Request) {
	tally, err := h.notifier.ClosePoll()
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, tally)
}
