package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/contactbook/apiserver/internal/services"
	"github.com/contactbook/apiserver/internal/session"
	"github.com/go-chi/chi/v5/middleware"
)

const maxBodyBytes = 1 << 20

type contextKey string

const contextClaimsKey contextKey = "claims"

// ErrorResponse is the error payload shared by every endpoint.
type ErrorResponse struct {
	Kind   services.Kind        `json:"kind"`
	Fields services.FieldErrors `json:"fields"`
}

func claimsFromContext(ctx context.Context) (session.Claims, bool) {
	claims, ok := ctx.Value(contextClaimsKey).(session.Claims)
	return claims, ok
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// writeError maps err to the error envelope. Anything that is not a
// *services.Error is logged and reported as an internal error.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var domainErr *services.Error
	if !errors.As(err, &domainErr) {
		slog.ErrorContext(r.Context(), "request failed",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		domainErr = services.Internal("An unexpected error occurred")
	}
	writeJSON(w, statusFor(domainErr.Kind), ErrorResponse{Kind: domainErr.Kind, Fields: domainErr.Fields})
}

func statusFor(kind services.Kind) int {
	switch kind {
	case services.KindValidation, services.KindMalformed:
		return http.StatusBadRequest
	case services.KindConflict:
		return http.StatusConflict
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindForbidden:
		return http.StatusForbidden
	case services.KindAuthFailure:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// decodeObject reads a JSON object body into dst.
func decodeObject(w http.ResponseWriter, r *http.Request, dst any) error {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return services.Malformed("Request body is too large or unreadable")
	}

	var object map[string]json.RawMessage
	if err := json.Unmarshal(data, &object); err != nil || object == nil {
		return services.Malformed("Request body must be a JSON object")
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return services.Malformed("Invalid JSON body")
	}
	return nil
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
