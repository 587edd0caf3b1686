package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	drawusecases "blocklotto/internal/application/draw/usecases"
	roundservices "blocklotto/internal/application/round/services"
	"blocklotto/internal/shared/biztime"
	"blocklotto/internal/shared/errors"
	"blocklotto/internal/shared/logger"
	"blocklotto/internal/shared/utils"
)

// DrawHandler serves the round and result endpoints.
type DrawHandler struct {
	submitResult  *drawusecases.SubmitResultUseCase
	latestResults *drawusecases.LatestResultsUseCase
	checkResults  *drawusecases.CheckResultsUseCase
	finalizeRound *drawusecases.FinalizeRoundUseCase
	roundQueries  *drawusecases.RoundQueries
	roundManager  *roundservices.RoundManager
	logger        logger.Interface
}

// NewDrawHandler creates a DrawHandler.
func NewDrawHandler(
	submitResult *drawusecases.SubmitResultUseCase,
	latestResults *drawusecases.LatestResultsUseCase,
	checkResults *drawusecases.CheckResultsUseCase,
	finalizeRound *drawusecases.FinalizeRoundUseCase,
	roundQueries *drawusecases.RoundQueries,
	roundManager *roundservices.RoundManager,
	log logger.Interface,
) *DrawHandler {
	return &DrawHandler{
		submitResult:  submitResult,
		latestResults: latestResults,
		checkResults:  checkResults,
		finalizeRound: finalizeRound,
		roundQueries:  roundQueries,
		roundManager:  roundManager,
		logger:        log.Named("draw-handler"),
	}
}

type submitResultRequest struct {
	DrawDate string `json:"draw_date" validate:"required"`
	Numbers  []int  `json:"numbers" validate:"required"`
}

// SubmitResult handles POST /api/powerball/manual. DrawDate accepts RFC 3339
// or a bare 2006-01-02 date.
func (h *DrawHandler) SubmitResult(c *gin.Context) {
	var req submitResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponseWithError(c, errors.NewValidationError("invalid request body", err.Error()))
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	drawDate, err := parseDrawDate(req.DrawDate)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	result, err := h.submitResult.Execute(c.Request.Context(), drawusecases.SubmitResultCommand{
		DrawDate: drawDate,
		Numbers:  req.Numbers,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusCreated, "result recorded", result)
}

// LatestResults handles GET /api/powerball/latest.
func (h *DrawHandler) LatestResults(c *gin.Context) {
	limit := queryInt(c, "limit", 10)

	results, err := h.latestResults.Execute(c.Request.Context(), limit)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", results)
}

// CheckResults handles POST /api/powerball/check: one on-demand settlement
// sweep. Returns the settled round, or null when nothing was due.
func (h *DrawHandler) CheckResults(c *gin.Context) {
	settled, err := h.checkResults.Execute(c.Request.Context())
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	if settled == nil {
		utils.SuccessResponse(c, http.StatusOK, "no round due for settlement", nil)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "round settled", settled)
}

// NextDraw handles GET /api/powerball/next-draw.
func (h *DrawHandler) NextDraw(c *gin.Context) {
	next := h.roundManager.NextDrawDate(biztime.NowUTC())
	utils.SuccessResponse(c, http.StatusOK, "", gin.H{
		"next_draw_date": next.Format(time.RFC3339),
	})
}

type finalizeRoundRequest struct {
	Numbers []int `json:"numbers" validate:"required"`
}

// FinalizeRound handles POST /api/rounds/:roundId/finalize.
func (h *DrawHandler) FinalizeRound(c *gin.Context) {
	roundID, err := parseIntParam(c, "roundId")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	var req finalizeRoundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponseWithError(c, errors.NewValidationError("invalid request body", err.Error()))
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	result, err := h.finalizeRound.Execute(c.Request.Context(), drawusecases.FinalizeRoundCommand{
		RoundID:        roundID,
		WinningNumbers: req.Numbers,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	h.logger.Infow("round finalized by operator", "round_id", roundID, "client_ip", c.ClientIP())
	utils.SuccessResponse(c, http.StatusOK, "round finalized", result)
}

// GetRound handles GET /api/rounds/:roundId.
func (h *DrawHandler) GetRound(c *gin.Context) {
	roundID, err := parseIntParam(c, "roundId")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	round, err := h.roundQueries.ByID(c.Request.Context(), roundID)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", round)
}

// RoundHistory handles GET /api/rounds.
func (h *DrawHandler) RoundHistory(c *gin.Context) {
	limit := queryInt(c, "limit", 20)

	rounds, err := h.roundQueries.History(c.Request.Context(), limit)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", rounds)
}

func parseDrawDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Time{}, errors.NewValidationError("draw_date must be RFC 3339 or YYYY-MM-DD")
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
