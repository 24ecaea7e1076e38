package cloudtest

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"evalgo.org/portico/models"
)

// HTTPErrorHandler renders every handler error as a models.APIError body.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var apiErr *models.APIError
	var he *echo.HTTPError
	switch {
	case errors.As(err, &apiErr):
	case errors.As(err, &he):
		apiErr = &models.APIError{
			Code:    he.Code,
			Message: httpMessage(he.Code),
			Details: fmt.Sprintf("%v", he.Message),
		}
	default:
		apiErr = &models.APIError{
			Code:    http.StatusInternalServerError,
			Message: "Internal server error",
			Details: err.Error(),
		}
	}

	if err := c.JSON(apiErr.Code, apiErr); err != nil {
		c.Logger().Error(err)
	}
}

func httpMessage(code int) string {
	switch code {
	case http.StatusUnauthorized:
		return "Unauthorized"
	case http.StatusNotFound:
		return "Resource not found"
	case http.StatusMethodNotAllowed:
		return "Method not allowed"
	default:
		return http.StatusText(code)
	}
}
