package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/campusconnect/internal/auth"
)

type UserHandler struct {
	directory auth.Directory
}

func NewUserHandler(directory auth.Directory) *UserHandler {
	return &UserHandler{directory: directory}
}

type PublicUserResponse struct {
	UID         string  `json:"uid"`
	DisplayName string  `json:"displayName"`
	PhotoURL    *string `json:"photoURL"`
}

func (h *UserHandler) GetPublic(c echo.Context) error {
	uid := c.Param("uid")
	if uid == "" {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid uid"))
	}
	user, err := h.directory.Lookup(c.Request().Context(), uid)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "user not found"))
		}
		return c.JSON(http.StatusBadGateway, NewErrorResponse("upstream_error", "user directory unavailable"))
	}
	resp := PublicUserResponse{
		UID:         user.UID,
		DisplayName: user.DisplayName,
		PhotoURL:    strPtrOrNil(user.PhotoURL),
	}
	return c.JSON(http.StatusOK, resp)
}

func strPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
