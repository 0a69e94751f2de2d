// SPDX-License-Identifier: AGPL-3.0-only
package handlers

import (
	"errors"
	"net/http"

	"github.com/sticktock/mirror/internal/fetcher/common"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusForError maps pipeline failures onto HTTP statuses.
func StatusForError(err error) int {
	switch {
	case errors.Is(err, common.ErrDomainNotAllowed),
		errors.Is(err, common.ErrInvalidURL),
		errors.Is(err, common.ErrPostIDMissing):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrNoItemFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrPostInactive):
		return http.StatusGone
	case errors.Is(err, common.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, common.ErrNoDataFound),
		errors.Is(err, common.ErrSchemaMismatch),
		errors.Is(err, common.ErrAuthorMissing),
		errors.Is(err, common.ErrSignerUnavailable),
		errors.Is(err, common.ErrTransport):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
