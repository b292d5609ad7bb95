package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

// ResultsHandler serves finished-session reads over plain HTTP.
type ResultsHandler struct {
	service *app.GameService
	log     logrus.FieldLogger
}

func NewResultsHandler(service *app.GameService, log logrus.FieldLogger) *ResultsHandler {
	return &ResultsHandler{service: service, log: log}
}

func (h *ResultsHandler) Results(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]
	snap, err := h.service.GetResults(r.Context(), sessionID)
	if err != nil {
		h.writeError(w, sessionID, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *ResultsHandler) History(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]
	records, err := h.service.ListHistory(r.Context(), sessionID, r.URL.Query().Get("userId"))
	if err != nil {
		h.writeError(w, sessionID, err)
		return
	}
	if records == nil {
		records = []domain.HistoryRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *ResultsHandler) writeError(w http.ResponseWriter, sessionID string, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, domain.ErrorPayload{Message: err.Error()})
	case errors.Is(err, domain.ErrResultsNotReady):
		writeJSON(w, http.StatusConflict, domain.ErrorPayload{Message: err.Error()})
	default:
		h.log.WithError(err).WithField("session", sessionID).Error("results query failed")
		writeJSON(w, http.StatusInternalServerError, domain.ErrorPayload{Message: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
