package transport

import (
	"errors"
	"net/http"
	"strconv"

	"minimarket/internal/apiclient"
	"minimarket/internal/middleware"
	"minimarket/internal/service"
	"minimarket/internal/validation"

	"github.com/go-chi/chi/v5"
)

// respondWithServiceError maps a coordinator error onto a view API status.
// The message is the same text the notification carried.
func respondWithServiceError(w http.ResponseWriter, err error) {
	if fieldErrs := middleware.FormatValidationErrors(err); len(fieldErrs) > 0 {
		middleware.RespondWithValidationErrors(w, fieldErrs)
		return
	}
	middleware.RespondWithError(w, statusForError(err), service.UserMessage(err))
}

func statusForError(err error) int {
	var appErr *apiclient.ApplicationError
	switch {
	case errors.Is(err, validation.ErrStockStatusMismatch), errors.Is(err, validation.ErrNegativeStock):
		return http.StatusBadRequest
	case errors.Is(err, validation.ErrLastActiveAdmin), errors.Is(err, validation.ErrLastAdmin):
		return http.StatusConflict
	case errors.Is(err, validation.ErrAdminNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrLoginLocked):
		return http.StatusTooManyRequests
	case errors.Is(err, apiclient.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, apiclient.ErrNetwork), errors.Is(err, apiclient.ErrMalformedResponse):
		return http.StatusBadGateway
	case errors.As(err, &appErr):
		return http.StatusUnprocessableEntity
	}

	if status := apiclient.StatusCode(err); status != 0 {
		if status >= 500 {
			return http.StatusBadGateway
		}
		return status
	}
	return http.StatusInternalServerError
}

func respondWithDecodeError(w http.ResponseWriter, err error) {
	if fieldErrs := middleware.FormatValidationErrors(err); len(fieldErrs) > 0 {
		middleware.RespondWithValidationErrors(w, fieldErrs)
		return
	}
	middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
}

// idParam reads a positive numeric id from the route
func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
