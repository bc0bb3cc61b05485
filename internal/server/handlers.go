package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/pushtotalk/internal/voiceinput"
)

// Controller is the subset of voiceinput.Manager driven over HTTP.
type Controller interface {
	ToggleOn()
	ToggleOff()
	Reset()
	State() voiceinput.State
}

var _ Controller = (*voiceinput.Manager)(nil)

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	controller Controller
	validator  *validator.Validate
	logger     *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(controller Controller, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		controller: controller,
		validator:  validator.New(),
		logger:     logger,
	}
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Signal handles POST /signals requests.
func (h *Handlers) Signal(w http.ResponseWriter, r *http.Request) {
	var req SignalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	switch req.Type {
	case SignalPress:
		h.controller.ToggleOn()
	case SignalRelease:
		h.controller.ToggleOff()
	}

	state := h.controller.State()
	h.logger.Info("signal applied",
		slog.String("type", req.Type),
		slog.String("state", state.String()),
	)
	writeJSON(w, http.StatusAccepted, stateResponse(state))
}

// Reset handles POST /reset requests.
func (h *Handlers) Reset(w http.ResponseWriter, r *http.Request) {
	h.controller.Reset()
	h.logger.Info("controller reset")
	writeJSON(w, http.StatusOK, stateResponse(h.controller.State()))
}

// Status handles GET /status requests.
func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, stateResponse(h.controller.State()))
}

func stateResponse(s voiceinput.State) StateResponse {
	resp := StateResponse{Phase: s.Phase().String()}
	if p, ok := s.Pending(); ok {
		resp.Pending = p.String()
	}
	return resp
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
