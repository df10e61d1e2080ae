package api

import (
	"github.com/gin-gonic/gin"
	"github.com/taylorsterlingwrites/threshold-compass/internal/response"
	"github.com/taylorsterlingwrites/threshold-compass/internal/service"
)

func PostCheckIn(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)

		var body service.CheckInRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			HandleError(c, app.Logger(), err, 400, "Invalid JSON")
			return
		}
		if err := service.ValidateCheckInRequest(&body); err != nil {
			HandleError(c, app.Logger(), err, 400, "Validation failed")
			return
		}

		checkIn, err := service.CreateCheckIn(c.Request.Context(), app.CheckInRepo(), user, &body)
		if err != nil {
			HandleError(c, app.Logger(), err, 500, "Failed to create check-in")
			return
		}
		HandleCreated(c, app.Logger(), checkIn)
	}
}

func GetCheckIns(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		limit, offset, err := pagination(c)
		if err != nil {
			HandleError(c, app.Logger(), err, 400, "Invalid query")
			return
		}

		checkIns, err := service.ListCheckIns(c.Request.Context(), app.CheckInRepo(), user, c.Query("dose_id"), limit, offset)
		if err != nil {
			HandleError(c, app.Logger(), err, 500, "Failed to fetch check-ins")
			return
		}
		HandleSuccess(c, app.Logger(), response.Page(checkIns, limit, offset))
	}
}
