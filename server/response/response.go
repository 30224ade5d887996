package response

import (
	stderrors "errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	errs "github.com/techagentng/findmenow/errors"
)

// JSON writes the standard envelope. Only the message of err is exposed, never its cause.
func JSON(c *gin.Context, message string, status int, data interface{}, err error) {
	responsedata := gin.H{
		"message":   message,
		"data":      data,
		"errors":    errorMessage(err),
		"status":    http.StatusText(status),
		"timestamp": time.Now().Format("2006-01-02 15:04:05"),
	}

	var e *errs.Error
	if stderrors.As(err, &e) && len(e.Fields) > 0 {
		responsedata["fields"] = e.Fields
	}

	c.JSON(status, responsedata)
}

func errorMessage(err error) interface{} {
	if err == nil {
		return nil
	}
	var e *errs.Error
	if stderrors.As(err, &e) {
		return e.Message
	}
	return errs.ErrInternalServerError.Message
}
