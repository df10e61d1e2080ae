package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/taylorsterlingwrites/threshold-compass/internal"
	"github.com/taylorsterlingwrites/threshold-compass/internal/response"
	"github.com/taylorsterlingwrites/threshold-compass/internal/storage"
)

func HandleError(c *gin.Context, logger internal.Logger, err error, status int, msg string) {
	requestID := c.GetString("request_id")
	logger.Errorf("[request_id=%s] %s: %v", requestID, msg, err)
	if status >= http.StatusInternalServerError {
		c.JSON(status, response.Internal(msg))
		return
	}
	c.JSON(status, response.Fail(status, msg+": "+err.Error()))
}

// HandleStorageError maps storage.ErrNotFound to 404 and everything else to 500.
func HandleStorageError(c *gin.Context, logger internal.Logger, err error, msg string) {
	if errors.Is(err, storage.ErrNotFound) {
		HandleError(c, logger, err, http.StatusNotFound, msg)
		return
	}
	HandleError(c, logger, err, http.StatusInternalServerError, msg)
}

func HandleSuccess(c *gin.Context, logger internal.Logger, body response.Envelope) {
	logger.Infof("[request_id=%s] %s %s ok", c.GetString("request_id"), c.Request.Method, c.FullPath())
	c.JSON(http.StatusOK, body)
}

func HandleCreated(c *gin.Context, logger internal.Logger, data interface{}) {
	logger.Infof("[request_id=%s] %s %s created", c.GetString("request_id"), c.Request.Method, c.FullPath())
	c.JSON(http.StatusCreated, response.OK(data, nil))
}

func currentUser(c *gin.Context) *internal.User {
	return c.MustGet("user").(*internal.User)
}

// pagination reads limit and offset, defaulting to 50 and 0.
func pagination(c *gin.Context) (limit, offset int, err error) {
	limit, offset = 50, 0
	if v := c.Query("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 1 || limit > 500 {
			return 0, 0, errors.New("limit must be an integer between 1 and 500")
		}
	}
	if v := c.Query("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil || offset < 0 {
			return 0, 0, errors.New("offset must be a non-negative integer")
		}
	}
	return limit, offset, nil
}
