package api

import (
	"github.com/gin-gonic/gin"
	"github.com/taylorsterlingwrites/threshold-compass/internal/response"
	"github.com/taylorsterlingwrites/threshold-compass/internal/service"
)

func PostDose(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)

		var body service.DoseRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			HandleError(c, app.Logger(), err, 400, "Invalid JSON")
			return
		}
		if err := service.ValidateDoseRequest(&body); err != nil {
			HandleError(c, app.Logger(), err, 400, "Validation failed")
			return
		}

		dose, err := service.CreateDose(c.Request.Context(), app.DoseRepo(), app.BatchRepo(), app.Engine(), app.Logger(), user, &body)
		if err != nil {
			HandleError(c, app.Logger(), err, 500, "Failed to create dose log")
			return
		}

		HandleCreated(c, app.Logger(), gin.H{"dose": dose, "carryover": dose.Carryover})
	}
}

func GetDoses(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		limit, offset, err := pagination(c)
		if err != nil {
			HandleError(c, app.Logger(), err, 400, "Invalid query")
			return
		}

		doses, err := service.ListDoses(c.Request.Context(), app.DoseRepo(), user, limit, offset)
		if err != nil {
			HandleError(c, app.Logger(), err, 500, "Failed to fetch doses")
			return
		}
		HandleSuccess(c, app.Logger(), response.Page(doses, limit, offset))
	}
}

func GetCarryover(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := service.CurrentCarryover(c.Request.Context(), app.DoseRepo(), app.Engine(), currentUser(c))
		if err != nil {
			HandleError(c, app.Logger(), err, 500, "Failed to compute carryover")
			return
		}
		HandleSuccess(c, app.Logger(), response.OK(result, nil))
	}
}
