// Package server provides the HTTP control surface for the push-to-talk
// controller. It includes handlers, middleware, routes, the websocket event
// hub, and DTOs separated from domain types.
package server

// Signal types accepted by POST /signals.
const (
	SignalPress   = "press"
	SignalRelease = "release"
)

// SignalRequest is the HTTP request body for a button signal.
type SignalRequest struct {
	// Type is the button transition: "press" or "release".
	Type string `json:"type" validate:"required,oneof=press release"`
}

// StateResponse describes the controller state.
type StateResponse struct {
	// Phase is the current lifecycle phase.
	Phase string `json:"phase"`
	// Pending is the deferred phase while stopping or sending, if any.
	Pending string `json:"pending,omitempty"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
