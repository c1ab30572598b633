package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/campusconnect/internal/auth"
	"github.com/shinyyama/campusconnect/internal/errs"
)

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error errorPayload `json:"error"`
}

func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{
		Error: errorPayload{
			Code:    code,
			Message: message,
		},
	}
}

// respondError writes err using the shared error taxonomy. Persistence
// details never reach the client.
func respondError(c echo.Context, err error) error {
	return c.JSON(errs.ToHTTP(err), NewErrorResponse(errs.Code(err), errs.Message(err)))
}

func unauthorized(c echo.Context) error {
	return respondError(c, errs.ErrUnauthenticated)
}

func currentUID(c echo.Context) string {
	uid, _ := c.Get("uid").(string)
	return uid
}

func currentIdentity(c echo.Context) (auth.Identity, bool) {
	id, ok := auth.FromContext(c.Request().Context())
	if !ok || id.UserID == "" {
		return auth.Identity{}, false
	}
	return id, true
}

func queryInt(c echo.Context, name string) int {
	v, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return 0
	}
	return v
}
