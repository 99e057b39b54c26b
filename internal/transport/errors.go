package transport

import (
	"errors"
	"net/http"

	"stockboard/internal/docstore"
	"stockboard/internal/media"
	"stockboard/internal/middleware"
	"stockboard/internal/repository"
	"stockboard/internal/service"

	"go.uber.org/zap"
)

// statusFor maps a service failure onto an HTTP status.
func statusFor(err error) int {
	var validationErr *service.ValidationError
	var uploadErr *media.UploadError

	switch {
	case errors.As(err, &validationErr),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrUnknownSection):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrProductNotFound),
		errors.Is(err, repository.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInsufficientStock):
		return http.StatusConflict
	case errors.As(err, &uploadErr),
		errors.Is(err, media.ErrMissingURL):
		return http.StatusBadGateway
	case errors.Is(err, media.ErrNotConfigured),
		errors.Is(err, docstore.ErrFeedFailed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondWithServiceError writes err in the error envelope. Expected
// outcomes log at warn, everything else at error.
func respondWithServiceError(w http.ResponseWriter, logger *zap.Logger, msg string, err error) {
	status := statusFor(err)

	var validationErr *service.ValidationError
	message := err.Error()
	if errors.As(err, &validationErr) {
		message = validationErr.Message
	}

	if status >= http.StatusInternalServerError {
		logger.Error(msg, zap.Error(err))
	} else {
		logger.Warn(msg, zap.Error(err))
	}

	var uploadErr *media.UploadError
	if errors.As(err, &uploadErr) {
		middleware.RespondWithErrorDetails(w, status, message, map[string]any{
			"upload_status": uploadErr.StatusCode,
			"upload_body":   uploadErr.Body,
		})
		return
	}
	middleware.RespondWithError(w, status, message)
}

// respondWithDecodeError reports a bad JSON request body.
func respondWithDecodeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	logger.Debug("Request validation failed", zap.Error(err))
	if fieldErrors := middleware.FormatValidationErrors(err); len(fieldErrors) > 0 {
		middleware.RespondWithFieldErrors(w, fieldErrors)
		return
	}
	middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
}
