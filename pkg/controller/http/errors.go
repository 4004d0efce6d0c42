package http

import (
	"errors"
	"net/http"

	"github.com/secmon-lab/mnemosyne/pkg/domain/types"
)

// statusFor maps domain sentinel errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrTransientProvider):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
