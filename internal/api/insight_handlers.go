package api

import (
	"github.com/gin-gonic/gin"
	"github.com/taylorsterlingwrites/threshold-compass/internal/response"
	"github.com/taylorsterlingwrites/threshold-compass/internal/service"
)

func GetPatterns(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		patterns, err := service.DetectPatterns(c.Request.Context(), app.DoseRepo(), app.CheckInRepo(), app.Engine(), currentUser(c))
		if err != nil {
			HandleError(c, app.Logger(), err, 500, "Failed to detect patterns")
			return
		}
		HandleSuccess(c, app.Logger(), response.Counted(patterns, len(patterns)))
	}
}

// GetThreshold answers 200 with a null range and a reason when there is too little data.
func GetThreshold(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := service.BatchThreshold(c.Request.Context(), app.DoseRepo(), app.CheckInRepo(), app.BatchRepo(), app.Engine(), currentUser(c), c.Param("id"))
		if err != nil {
			HandleStorageError(c, app.Logger(), err, "Failed to estimate threshold range")
			return
		}
		HandleSuccess(c, app.Logger(), response.OK(result, nil))
	}
}
