package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/vitabid/marketplace/internal/apperr"
)

// errorJSON maps a domain error to its wire response. Unclassified errors
// never leak internals.
func errorJSON(c echo.Context, err error) error {
	var be *apperr.Error
	if errors.As(err, &be) {
		return c.JSON(be.Status, echo.Map{"error": be.APIMessage})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
}

func bearerToken(c echo.Context) (string, bool) {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(h, prefix))
	return token, token != ""
}
