package api

import (
	"github.com/gin-gonic/gin"
	"github.com/taylorsterlingwrites/threshold-compass/internal/response"
	"github.com/taylorsterlingwrites/threshold-compass/internal/service"
)

func PostBatch(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body service.BatchRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			HandleError(c, app.Logger(), err, 400, "Invalid JSON")
			return
		}
		if err := service.ValidateBatchRequest(&body); err != nil {
			HandleError(c, app.Logger(), err, 400, "Validation failed")
			return
		}

		batch, err := service.CreateBatch(c.Request.Context(), app.BatchRepo(), currentUser(c), &body)
		if err != nil {
			HandleError(c, app.Logger(), err, 500, "Failed to create batch")
			return
		}
		HandleCreated(c, app.Logger(), batch)
	}
}

func GetBatches(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		batches, err := app.BatchRepo().ListBatches(c.Request.Context(), currentUser(c).ID)
		if err != nil {
			HandleError(c, app.Logger(), err, 500, "Failed to fetch batches")
			return
		}
		HandleSuccess(c, app.Logger(), response.OK(batches, nil))
	}
}
