package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vitabid/marketplace/internal/middleware"
	"github.com/vitabid/marketplace/internal/service"
)

type UserHandler struct {
	Users *service.UserService
}

func (h *UserHandler) Me(c echo.Context) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	return c.JSON(http.StatusOK, user)
}

func (h *UserHandler) UpdateInfo(c echo.Context) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	var req struct {
		RealName string `json:"real_name"`
		Phone    string `json:"phone"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if err := h.Users.UpdateAdditionalInfo(c.Request().Context(), user.ID, req.RealName, req.Phone); err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "additional info registered"})
}

func (h *UserHandler) DeleteMe(c echo.Context) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	if err := h.Users.Delete(c.Request().Context(), user.ID); err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "account deleted"})
}
