package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"pongarena/internal/engine"
)

type errorBody struct {
	Error string `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func InternalServerError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "error", err)
	WriteJSON(w, http.StatusInternalServerError, errorBody{Error: "operation failed"})
}

func BadRequest(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("bad request", "message", msg, "error", err)
	} else {
		slog.Warn("bad request", "message", msg)
	}
	WriteJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

func NotFound(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("not found", "message", msg, "error", err)
	} else {
		slog.Warn("not found", "message", msg)
	}
	WriteJSON(w, http.StatusNotFound, errorBody{Error: msg})
}

func Conflict(w http.ResponseWriter, msg string, err error) {
	slog.Warn("conflict", "message", msg, "error", err)
	WriteJSON(w, http.StatusConflict, errorBody{Error: msg})
}

// EngineError maps the tournament engine's error taxonomy onto HTTP
// responses. Invariant violations and storage failures surface as a
// generic internal error; clients never see partially applied state.
func EngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrValidation), errors.Is(err, engine.ErrInvalidWinner):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, engine.ErrNotFound):
		NotFound(w, err.Error(), nil)
	case errors.Is(err, engine.ErrAlreadyCompleted):
		Conflict(w, err.Error(), err)
	default:
		InternalServerError(w, "tournament operation failed", err)
	}
}
