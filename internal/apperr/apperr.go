// Package apperr defines the error taxonomy shared by every layer of the
// service and its mapping onto HTTP status codes.
package apperr

import (
	"errors"
	"net/http"
)

var (
	// ErrValidation indicates a missing or malformed request field.
	ErrValidation = errors.New("invalid request")

	// ErrAuth indicates a missing, invalid or expired bearer token.
	ErrAuth = errors.New("authentication required")

	// ErrForbidden indicates a valid token that no configured client accepts.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound indicates an unknown documentary base or reference.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a reference name already present in its base.
	ErrConflict = errors.New("already exists")

	// ErrUnsupportedFormat indicates an uploaded file outside epub, docx and pdf.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrUnsupportedLanguagePair indicates no translation model serves the pair.
	ErrUnsupportedLanguagePair = errors.New("unsupported language pair")

	// ErrParse indicates an unreadable or corrupt document.
	ErrParse = errors.New("cannot parse document")

	// ErrStorage indicates a vector store or catalog write failure.
	ErrStorage = errors.New("storage failure")

	// ErrUpstream indicates a failure reported by an inference backend.
	ErrUpstream = errors.New("model backend failure")
)

// Status returns the HTTP status code for err.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnsupportedLanguagePair):
		return http.StatusBadRequest
	case errors.Is(err, ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, ErrParse):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
