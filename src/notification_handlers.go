package main

import (
	"abm/src/db"
	"abm/src/models"
	"net/http"

	"github.com/gin-gonic/gin"
)

func notificationHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/notifications", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			d := db.GetDb()
			var notifications []models.Notification
			err := d.Model(&models.Notification{}).
				Where(&models.Notification{UserID: userId}).
				Order("created_at desc").
				Limit(100).
				Find(&notifications).
				Error
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": notifications, "count": len(notifications)})
		})
	return g
}
