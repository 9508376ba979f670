package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/durvaajgaonkar/secure-file-storage-system/internal/common"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/logging"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MessageResponse is the body of replies that only confirm an action.
type MessageResponse struct {
	Message string `json:"message"`
}

// JSON writes data as a JSON body with status.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		// Headers are already out; nothing useful to do on failure.
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Error writes an ErrorResponse.
func Error(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, ErrorResponse{Code: code, Message: message})
}

type apiError struct {
	status  int
	code    string
	message string
}

var (
	errInvalidRequest = apiError{http.StatusBadRequest, "INVALID_REQUEST", "invalid request"}
	errTooLarge       = apiError{http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body too large"}
	errUnauthorized   = apiError{http.StatusUnauthorized, "UNAUTHORIZED", "authentication required"}
	errEmailTaken     = apiError{http.StatusConflict, "EMAIL_TAKEN", "an account with this email already exists"}
	errNotFound       = apiError{http.StatusNotFound, "NOT_FOUND", "file not found"}
	errDecryption     = apiError{http.StatusUnprocessableEntity, "DECRYPTION_FAILED", "file could not be decrypted with this key"}
	errNotification   = apiError{http.StatusBadGateway, "NOTIFICATION_FAILED", "file stored but the receipt could not be delivered"}
	errStorage        = apiError{http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "storage temporarily unavailable"}
	errInternal       = apiError{http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"}
)

// classify maps a service error onto its fixed reply. Error text never
// reaches the client.
func classify(err error) apiError {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge), errors.Is(err, common.ErrorTooLarge):
		return errTooLarge
	case errors.Is(err, common.ErrorInvalidRequest):
		return errInvalidRequest
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		return errUnauthorized
	case errors.Is(err, common.ErrorAlreadyExists):
		return errEmailTaken
	case errors.Is(err, common.ErrorNotFound):
		return errNotFound
	case errors.Is(err, common.ErrorDecryption):
		return errDecryption
	case errors.Is(err, common.ErrorNotification):
		return errNotification
	case errors.Is(err, common.ErrorStorage):
		return errStorage
	default:
		return errInternal
	}
}

// writeError logs err in full and replies with its classification.
func writeError(ctx context.Context, w http.ResponseWriter, log logging.Logger, op string, err error) {
	e := classify(err)
	switch {
	case e.status >= http.StatusInternalServerError && !errors.Is(err, context.Canceled):
		log.Error(ctx, "request failed", "op", op, "error", err, "status", e.status)
	default:
		log.Warn(ctx, "request rejected", "op", op, "error", err, "status", e.status)
	}
	Error(w, e.status, e.code, e.message)
}
