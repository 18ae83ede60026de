// File: internal/handlers/history_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/iyunix/go-chatstats/internal/domain"
	"github.com/iyunix/go-chatstats/internal/dtos"
	"github.com/iyunix/go-chatstats/internal/middleware"
	"github.com/iyunix/go-chatstats/internal/services"
)

const (
	maxMessageBody = 1 << 20
	maxBatchBody   = 32 << 20
)

type HistoryHandler struct {
	History *services.HistoryService
	Stats   *services.StatsService
	Logger  services.Logger
}

func NewHistoryHandler(history *services.HistoryService, stats *services.StatsService, logger services.Logger) *HistoryHandler {
	if logger == nil {
		logger = &services.NoOpLogger{}
	}
	return &HistoryHandler{History: history, Stats: stats, Logger: logger}
}

// Health reports liveness.
func (h *HistoryHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ===== INGESTION =====

// RecordMessage stores one message posted by an ingestion client.
func (h *HistoryHandler) RecordMessage(w http.ResponseWriter, r *http.Request) {
	var msg domain.IncomingMessage
	r.Body = http.MaxBytesReader(w, r.Body, maxMessageBody)
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.History.Record(r.Context(), msg); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, dtos.IngestResponseDTO{Accepted: 1})
}

// ImportMessages stores a batch of messages; nothing is stored if any message is invalid.
func (h *HistoryHandler) ImportMessages(w http.ResponseWriter, r *http.Request) {
	var req dtos.BatchRequestDTO
	r.Body = http.MaxBytesReader(w, r.Body, maxBatchBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, "messages must not be empty", http.StatusBadRequest)
		return
	}

	n, err := h.History.Import(r.Context(), req.Messages)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.Logger.Info("batch imported", "count", n, "subject", middleware.Subject(r.Context()))
	writeJSON(w, http.StatusAccepted, dtos.IngestResponseDTO{Accepted: n})
}

// ===== CHAT QUERIES =====

func (h *HistoryHandler) ChatStats(w http.ResponseWriter, r *http.Request) {
	chatID, since, ok := chatParams(w, r)
	if !ok {
		return
	}
	stats, err := h.History.ChatStats(r.Context(), chatID, since)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.ToChatStats(chatID, since, stats))
}

func (h *HistoryHandler) ChatLastSeen(w http.ResponseWriter, r *http.Request) {
	chatID, _, ok := chatParams(w, r)
	if !ok {
		return
	}
	seen, err := h.History.LastSeenByChat(r.Context(), chatID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.ToChatLastSeen(chatID, seen))
}

func (h *HistoryHandler) ChatFirstMessage(w http.ResponseWriter, r *http.Request) {
	chatID, since, ok := chatParams(w, r)
	if !ok {
		return
	}
	first, err := h.History.FirstMessage(r.Context(), chatID, nil, since)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.DateResponseDTO{ChatID: chatID, Date: first.Unix()})
}

// ChatReport serves the Markdown activity report of a chat.
func (h *HistoryHandler) ChatReport(w http.ResponseWriter, r *http.Request) {
	md, ok := h.chatMarkdown(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(md))
}

func (h *HistoryHandler) ChatReportHTML(w http.ResponseWriter, r *http.Request) {
	md, ok := h.chatMarkdown(w, r)
	if !ok {
		return
	}
	body, err := h.Stats.RenderHTML(md)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>Chat activity</title></head>\n<body>\n%s</body></html>\n", body)
}

func (h *HistoryHandler) chatMarkdown(w http.ResponseWriter, r *http.Request) (string, bool) {
	chatID, since, ok := chatParams(w, r)
	if !ok {
		return "", false
	}
	report, err := h.Stats.ChatReport(r.Context(), chatID, since)
	if err != nil {
		h.writeServiceError(w, r, err)
		return "", false
	}
	md, err := h.Stats.RenderMarkdown(report)
	if err != nil {
		h.writeServiceError(w, r, err)
		return "", false
	}
	return md, true
}

// ===== USER QUERIES =====

func (h *HistoryHandler) UserDaily(w http.ResponseWriter, r *http.Request) {
	chatID, userID, since, ok := userParams(w, r)
	if !ok {
		return
	}
	days, err := h.History.DailyStats(r.Context(), chatID, userID, since)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.ToDailyStats(days))
}

func (h *HistoryHandler) UserLastSeen(w http.ResponseWriter, r *http.Request) {
	chatID, userID, _, ok := userParams(w, r)
	if !ok {
		return
	}
	last, err := h.History.LastSeen(r.Context(), chatID, userID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.DateResponseDTO{ChatID: chatID, UserID: &userID, Date: last.Unix()})
}

func (h *HistoryHandler) UserFirstMessage(w http.ResponseWriter, r *http.Request) {
	chatID, userID, since, ok := userParams(w, r)
	if !ok {
		return
	}
	first, err := h.History.FirstMessage(r.Context(), chatID, &userID, since)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.DateResponseDTO{ChatID: chatID, UserID: &userID, Date: first.Unix()})
}

func (h *HistoryHandler) UserMessages(w http.ResponseWriter, r *http.Request) {
	chatID, userID, since, ok := userParams(w, r)
	if !ok {
		return
	}
	messages, err := h.History.Messages(r.Context(), chatID, userID, since)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.ToMessages(messages))
}

func (h *HistoryHandler) UserReport(w http.ResponseWriter, r *http.Request) {
	chatID, userID, since, ok := userParams(w, r)
	if !ok {
		return
	}
	report, err := h.Stats.UserReport(r.Context(), chatID, userID, since)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.ToUserReport(report))
}

// ===== HELPERS =====

func chatParams(w http.ResponseWriter, r *http.Request) (int64, *time.Time, bool) {
	chatID, err := strconv.ParseInt(mux.Vars(r)["chatID"], 10, 64)
	if err != nil || chatID == 0 {
		writeError(w, "Invalid chat ID", http.StatusBadRequest)
		return 0, nil, false
	}
	since, err := parseSince(r.URL.Query().Get("since"))
	if err != nil {
		writeError(w, "since must be epoch seconds", http.StatusBadRequest)
		return 0, nil, false
	}
	return chatID, since, true
}

func userParams(w http.ResponseWriter, r *http.Request) (int64, int64, *time.Time, bool) {
	chatID, since, ok := chatParams(w, r)
	if !ok {
		return 0, 0, nil, false
	}
	userID, err := strconv.ParseInt(mux.Vars(r)["userID"], 10, 64)
	if err != nil {
		writeError(w, "Invalid user ID", http.StatusBadRequest)
		return 0, 0, nil, false
	}
	return chatID, userID, since, true
}

func parseSince(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	seconds, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || seconds < 0 {
		return nil, errors.New("invalid since")
	}
	since := domain.EpochToTime(seconds)
	return &since, nil
}

// writeServiceError maps service error types to HTTP status codes.
func (h *HistoryHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var herr *services.HistoryError
	errors.As(err, &herr)

	switch services.ErrorTypeOf(err) {
	case services.ErrTypeValidation:
		writeJSON(w, http.StatusBadRequest, dtos.ErrorResponse{Error: herr.Message, Type: string(herr.Type)})
	case services.ErrTypeNotFound:
		writeJSON(w, http.StatusNotFound, dtos.ErrorResponse{Error: herr.Message, Type: string(herr.Type)})
	default:
		h.Logger.Error("request failed",
			"request_id", middleware.RequestID(r.Context()),
			"path", r.URL.Path,
			"error", err)
		writeJSON(w, http.StatusInternalServerError, dtos.ErrorResponse{Error: "internal error", Type: string(services.ErrTypeStorage)})
	}
}

// writeJSON is a helper for sending JSON responses.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError is a helper for sending JSON error responses.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, dtos.ErrorResponse{Error: message})
}
