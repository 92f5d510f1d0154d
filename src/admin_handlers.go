package main

import (
	"abm/src/common"
	"abm/src/db"
	"abm/src/models"
	"abm/src/types"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

func adminHandlers(g *gin.RouterGroup, bookings *common.BookingService) *gin.RouterGroup {
	g.
		PUT("/admin/bookings/:id/force", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.ForceUpdateRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			initiator := fmt.Sprintf("admin:%d", ctx.GetUint("id"))
			booking, err := bookings.ForceUpdate(params.ID, initiator, &body)
			if err != nil {
				ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": booking})
		}).
		DELETE("/bookings/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if err := bookings.Delete(params.ID); err != nil {
				ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
				return
			}
			ctx.Status(http.StatusNoContent)
		}).
		GET("/admin/tasks", func(ctx *gin.Context) {
			var filters types.TaskQueryFilters
			if err := ctx.ShouldBindQuery(&filters); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			d := db.GetDb()
			var tasks []models.AutomatedTask
			q := d.Model(&models.AutomatedTask{})
			if filters.Status != "" {
				q = q.Where("status = ?", filters.Status)
			}
			if filters.Type != "" {
				q = q.Where("task_type = ?", filters.Type)
			}
			if err := q.Order("scheduled_for asc").Limit(200).Find(&tasks).Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": tasks, "count": len(tasks)})
		}).
		GET("/admin/trail", func(ctx *gin.Context) {
			d := db.GetDb()
			var trail []models.TrailLog
			if err := d.Model(&models.TrailLog{}).Order("created_at desc").Limit(200).Find(&trail).Error; err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": trail, "count": len(trail)})
		})
	return g
}
