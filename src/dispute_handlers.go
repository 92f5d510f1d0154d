package main

import (
	"abm/src/common"
	"abm/src/types"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func disputeHandlers(g *gin.RouterGroup, disputes *common.DisputeService) *gin.RouterGroup {
	g.
		GET("/disputes", func(ctx *gin.Context) {
			list, err := disputes.List()
			if err != nil {
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": list, "count": len(list)})
		}).
		GET("/disputes/:id", func(ctx *gin.Context) {
			var params types.UUIDRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			disputeId, err := uuid.Parse(params.ID)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			dispute, err := disputes.Get(disputeId)
			if err != nil {
				ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": dispute})
		}).
		POST("/bookings/:id/disputes", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.OpenDisputeRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			reporterId := ctx.GetUint("id")
			dispute, err := disputes.Open(params.ID, reporterId, body.Description)
			if err != nil {
				ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": dispute})
		})
	return g
}

func disputeAdminHandlers(g *gin.RouterGroup, disputes *common.DisputeService) *gin.RouterGroup {
	g.
		PUT("/disputes/:id/resolve", func(ctx *gin.Context) {
			var params types.UUIDRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			disputeId, err := uuid.Parse(params.ID)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.ResolveDisputeRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if err := disputes.Resolve(disputeId, body.Decision, body.Notes, false); err != nil {
				ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
				return
			}
			dispute, err := disputes.Get(disputeId)
			if err != nil {
				ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": dispute})
		})
	return g
}
