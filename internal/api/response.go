package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Envelope provides a consistent JSON response structure.
type Envelope struct {
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Success bool   `json:"success"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	envelope := Envelope{
		Success: status < 400,
		Data:    data,
	}
	if err := json.NewEncoder(w).Encode(envelope); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

// writeError writes an error response with the given status code.
func writeError(w http.ResponseWriter, status int, message string, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	envelope := Envelope{
		Success: false,
		Error:   message,
	}
	if err := json.NewEncoder(w).Encode(envelope); err != nil {
		logger.Error("failed to encode error response", "error", err)
	}
}

func (s *Server) success(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, data, s.logger)
}

func (s *Server) created(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusCreated, data, s.logger)
}

func (s *Server) badRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, message, s.logger)
}

func (s *Server) notFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, message, s.logger)
}

func (s *Server) badGateway(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadGateway, message, s.logger)
}
