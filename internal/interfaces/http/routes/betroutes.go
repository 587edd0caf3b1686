// Package routes wires handlers to URL paths.
package routes

import (
	"github.com/gin-gonic/gin"

	"blocklotto/internal/interfaces/http/handlers"
)

// RegisterBetRoutes mounts the bet endpoints under /bets.
func RegisterBetRoutes(api *gin.RouterGroup, handler *handlers.BetHandler) {
	bets := api.Group("/bets")
	{
		bets.POST("", handler.PlaceBet)
		bets.POST("/multiple", handler.PlaceMultipleBets)

		bets.GET("/recent", handler.ListRecent)
		bets.GET("/round/:roundId", handler.ListByRound)
		bets.GET("/check/:transactionId", handler.GetByTransaction)
		bets.GET("/current-round", handler.CurrentRound)
		bets.GET("/winners/:roundId", handler.ListRoundWinners)

		bets.POST("/init-session", handler.InitSession)
		bets.GET("/check-payment/:sessionId", handler.CheckSession)
		bets.DELETE("/check-payment/:sessionId", handler.AbandonSession)
		bets.POST("/complete-session", handler.CompleteSession)

		admin := bets.Group("/admin")
		{
			admin.GET("/pending", handler.ListPending)
			admin.GET("/payment-monitor-status", handler.MonitorStatus)
			admin.POST("/check-bet-payment/:betId", handler.CheckPayment)
			admin.POST("/payout/:betId", handler.ManualPayout)
			admin.GET("/unpaid-winners", handler.UnpaidWinners)
		}

		bets.GET("/:betId", handler.GetByID)
	}
}
