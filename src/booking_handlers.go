package main

import (
	"abm/src/common"
	"abm/src/types"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

func bindingError(err error) string {
	var verr validator.ValidationErrors
	if errors.As(err, &verr) {
		fields := []string{}
		for _, fe := range verr {
			fields = append(fields, fe.Field())
		}
		return fmt.Sprintf("invalid fields: %s", strings.Join(fields, ", "))
	}
	return err.Error()
}

func statusForError(err error) int {
	switch {
	case common.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, common.ErrInvalidState),
		errors.Is(err, common.ErrNotPayable),
		errors.Is(err, common.ErrNotDisputable),
		errors.Is(err, common.ErrPaymentRequired),
		errors.Is(err, common.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func bookingHandlers(g *gin.RouterGroup, bookings *common.BookingService) *gin.RouterGroup {
	g.
		GET("/bookings", func(ctx *gin.Context) {
			userId := ctx.GetUint("id")
			var filters types.BookingQueryFilters
			if err := ctx.ShouldBindQuery(&filters); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": bindingError(err)})
				return
			}
			list, err := bookings.List(userId, &filters)
			if err != nil {
				if errors.Is(err, common.ErrBadFilter) {
					ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
				ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": list, "count": len(list)})
		}).
		GET("/bookings/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.Status(http.StatusBadRequest)
				return
			}
			booking, err := bookings.Get(params.ID)
			if err != nil {
				ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": booking})
		}).
		POST("/bookings", func(ctx *gin.Context) {
			var body types.CreateBookingRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": bindingError(err)})
				return
			}
			organizerId := ctx.GetUint("id")
			booking, err := bookings.Create(organizerId, &body)
			if err != nil {
				ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": booking})
		}).
		PUT("/bookings/:id/respond", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": bindingError(err)})
				return
			}
			var body types.RespondBookingRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": bindingError(err)})
				return
			}
			booking, err := bookings.Respond(params.ID, body.Action)
			if err != nil {
				ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": booking})
		}).
		PUT("/bookings/:id/pay", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": bindingError(err)})
				return
			}
			booking, err := bookings.Pay(params.ID)
			if err != nil {
				ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": booking})
		}).
		PUT("/bookings/:id/start", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": bindingError(err)})
				return
			}
			booking, err := bookings.Start(params.ID)
			if err != nil {
				ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": booking})
		}).
		PUT("/bookings/:id/complete", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": bindingError(err)})
				return
			}
			booking, err := bookings.MarkCompleted(params.ID)
			if err != nil {
				ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": booking})
		}).
		PUT("/bookings/:id/cancel", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": bindingError(err)})
				return
			}
			var body types.CancelBookingRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil && err.Error() != "EOF" {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": bindingError(err)})
				return
			}
			booking, err := bookings.Cancel(params.ID, body.Reason)
			if err != nil {
				ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": booking})
		})
	return g
}
