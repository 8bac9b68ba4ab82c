package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
)

const headerRequestID = "X-Request-Id"

func writeBadRequest(c *echo.Context, id, msg string) error {
	return writeError(c, http.StatusBadRequest, id, "invalid_request_error", msg, "")
}

func writeError(c *echo.Context, status int, id, errType, msg, code string) error {
	return c.JSON(status, ErrorResponse{
		ID: id,
		Error: ResponseError{
			Message: msg,
			Type:    errType,
			Code:    code,
		},
	})
}

// boolQuery parses an optional boolean query parameter. Absent means false.
func boolQuery(c *echo.Context, name string) (bool, error) {
	v := strings.TrimSpace(c.Request().URL.Query().Get(name))
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}

func newValidationID() string {
	return "val_" + uuid.NewString()
}
