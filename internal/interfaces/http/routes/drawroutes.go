package routes

import (
	"github.com/gin-gonic/gin"

	"blocklotto/internal/interfaces/http/handlers"
)

// RegisterDrawRoutes mounts the result ingestion endpoints under /powerball
// and the round admin endpoints under /rounds.
func RegisterDrawRoutes(api *gin.RouterGroup, drawHandler *handlers.DrawHandler) {
	powerball := api.Group("/powerball")
	{
		powerball.GET("/latest", drawHandler.LatestResults)
		powerball.POST("/check", drawHandler.CheckResults)
		powerball.POST("/manual", drawHandler.SubmitResult)
		powerball.GET("/next-draw", drawHandler.NextDraw)
	}

	rounds := api.Group("/rounds")
	{
		rounds.GET("", drawHandler.RoundHistory)
		rounds.GET("/:roundId", drawHandler.GetRound)
		rounds.POST("/:roundId/finalize", drawHandler.FinalizeRound)
	}
}
