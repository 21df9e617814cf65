// Package handler exposes the trace service HTTP API.
package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/agrotrace/agrotrace-backend/pkg/errors"
)

// pathID parses a numeric chi route parameter.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, apperrors.BadRequest("invalid " + name)
	}
	return id, nil
}
