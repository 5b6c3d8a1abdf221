package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chatwire/logger"
	"chatwire/tools/errs"
)

// OK writes data as the JSON body with the given status.
func OK(c *gin.Context, status int, data any) {
	c.JSON(status, data)
}

// Fail maps a service error to an HTTP status. CodeErrors carry their own
// code; anything else is an internal error and gets logged.
func Fail(c *gin.Context, err error) {
	var ce *errs.CodeError
	if errors.As(err, &ce) {
		c.JSON(httpStatus(ce.Code), ce)
		return
	}
	logger.Errorf("request failed: %v", err)
	c.JSON(http.StatusInternalServerError, errs.ErrInternal)
}

func httpStatus(code int) int {
	switch code {
	case errs.ErrArgs.Code:
		return http.StatusBadRequest
	case errs.ErrTokenInvalid.Code:
		return http.StatusUnauthorized
	case errs.ErrNoPermission.Code:
		return http.StatusForbidden
	case errs.ErrNotFound.Code:
		return http.StatusNotFound
	case errs.ErrRecordExists.Code:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
