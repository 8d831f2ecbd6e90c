package http

import (
	"errors"
	"net/http"

	"caribook/internal/auth"
	"caribook/internal/core"
	"caribook/internal/log"
	"caribook/internal/services"
	"caribook/internal/store"
)

const (
	msgDuplicateInstagramID = "An event with this Instagram ID already exists!"
	msgInvalidCredentials   = "Invalid email or password. Please check your credentials."
	msgSaveFailed           = "Error saving event. Please try again."
	msgLoadFailed           = "Error loading events. Please try again."
	msgNotFound             = "Not found"
)

// isValidationError reports whether err is a rejected input value.
func isValidationError(err error) bool {
	for _, target := range []error{
		core.ErrInvalidDate,
		core.ErrUnknownStatus,
		core.ErrUnknownMonth,
		core.ErrEmptyLabel,
		core.ErrEmptyArtist,
		core.ErrArtistTooLong,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// writeError maps err to a response. fallback is the message sent for
// unexpected failures, which are logged with their cause.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, errBadRequest):
		BadRequestError(err.Error()).Write(w)
	case isValidationError(err):
		UnprocessableEntityError(err.Error()).Write(w)
	case errors.Is(err, services.ErrDuplicateInstagramID):
		ConflictError(msgDuplicateInstagramID).Write(w)
	case errors.Is(err, store.ErrNotFound):
		NotFoundError(msgNotFound).Write(w)
	case errors.Is(err, auth.ErrInvalidCredentials):
		UnauthorizedError(msgInvalidCredentials).Write(w)
	case errors.Is(err, auth.ErrInvalidToken):
		UnauthorizedError("Unauthorized").Write(w)
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeInternal)
		InternalServerError(fallback).Write(w)
	}
}
