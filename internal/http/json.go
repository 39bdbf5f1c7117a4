package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	apperrors "github.com/eduhub/authbroker/internal/errors"
)

// maxBodyBytes caps request bodies; the broker only ever receives small JSON
// payloads carrying a token.
const maxBodyBytes = 1 << 16

// WriteJSON writes data as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// errorResponse is the wire shape of every error the broker returns.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// statusForCode maps AppError codes to HTTP status codes.
func statusForCode(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrCodeValidation:
		return http.StatusBadRequest
	case apperrors.ErrCodeToken:
		return http.StatusUnauthorized
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeConflict:
		return http.StatusConflict
	case apperrors.ErrCodeUpstream:
		return http.StatusBadGateway
	case apperrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// WriteError renders err as a JSON error response. AppError codes choose the
// status; anything else is an opaque 500 so internals never leak to clients.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		slog.ErrorContext(r.Context(), "unhandled error", "error", err,
			"path", r.URL.Path)
		WriteJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	status := statusForCode(appErr.Code)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed", "error", err,
			"code", appErr.Code, "path", r.URL.Path)
		// Storage and internal failures get a generic message.
		WriteJSON(w, status, errorResponse{Error: "internal server error", Code: string(appErr.Code)})
		return
	}

	WriteJSON(w, status, errorResponse{Error: appErr.Message, Code: string(appErr.Code)})
}

// DecodeJSON decodes the request body into dst, returning a Validation
// AppError on malformed input.
func DecodeJSON(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, "read request body")
	}
	if len(body) == 0 {
		return apperrors.Validation("request body is required")
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, "malformed JSON body")
	}
	return nil
}
