package httpx

import (
	"errors"
	"net/http"

	"github.com/tillbridge/tillbridge/internal/shared"
)

// RespondError maps domain errors to the {success,error} envelope. No core
// error escapes the boundary without classification.
func RespondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, shared.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, shared.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, shared.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, shared.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, shared.ErrRemote):
		status = http.StatusBadGateway
	}
	JSON(w, status, Result{Success: false, Error: err.Error()})
}
