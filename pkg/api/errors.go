package api

import (
	"errors"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/Sam-at-git/aipms-sub001/pkg/debugstore"
)

// mapStoreError maps pkg/debugstore errors to HTTP error responses.
func mapStoreError(err error) *echo.HTTPError {
	if errors.Is(err, debugstore.ErrSessionNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
