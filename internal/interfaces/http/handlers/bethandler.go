// Package handlers holds the gin HTTP handlers.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	betusecases "blocklotto/internal/application/bet/usecases"
	paymentusecases "blocklotto/internal/application/payment/usecases"
	"blocklotto/internal/shared/errors"
	"blocklotto/internal/shared/logger"
	"blocklotto/internal/shared/utils"
)

// BetHandler serves the bet endpoints: placement, queries, forced payment
// checks, payment sessions and payout administration.
type BetHandler struct {
	placeBet      *betusecases.PlaceBetUseCase
	placeMultiple *betusecases.PlaceMultipleBetsUseCase
	queries       *betusecases.BetQueries
	currentRound  *betusecases.CurrentRoundUseCase
	manualPayout  *betusecases.ManualPayoutUseCase
	checkPayment  *paymentusecases.CheckBetPaymentUseCase
	sessions      *paymentusecases.PaymentSessionService
	monitorStatus *paymentusecases.MonitorStatusUseCase
	logger        logger.Interface
}

// NewBetHandler creates a BetHandler.
func NewBetHandler(
	placeBet *betusecases.PlaceBetUseCase,
	placeMultiple *betusecases.PlaceMultipleBetsUseCase,
	queries *betusecases.BetQueries,
	currentRound *betusecases.CurrentRoundUseCase,
	manualPayout *betusecases.ManualPayoutUseCase,
	checkPayment *paymentusecases.CheckBetPaymentUseCase,
	sessions *paymentusecases.PaymentSessionService,
	monitorStatus *paymentusecases.MonitorStatusUseCase,
	log logger.Interface,
) *BetHandler {
	return &BetHandler{
		placeBet:      placeBet,
		placeMultiple: placeMultiple,
		queries:       queries,
		currentRound:  currentRound,
		manualPayout:  manualPayout,
		checkPayment:  checkPayment,
		sessions:      sessions,
		monitorStatus: monitorStatus,
		logger:        log.Named("bet-handler"),
	}
}

type placeBetRequest struct {
	Numbers       []int  `json:"numbers" validate:"required"`
	Nickname      string `json:"nickname" validate:"max=64"`
	TransactionID string `json:"transaction_id"`
}

// PlaceBet handles POST /api/bets.
func (h *BetHandler) PlaceBet(c *gin.Context) {
	var req placeBetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponseWithError(c, errors.NewValidationError("invalid request body", err.Error()))
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	result, err := h.placeBet.Execute(c.Request.Context(), betusecases.PlaceBetCommand{
		Numbers:       req.Numbers,
		Nickname:      req.Nickname,
		TransactionID: req.TransactionID,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "bet placed", result)
}

type batchBetRequest struct {
	Numbers  []int  `json:"numbers" validate:"required"`
	Nickname string `json:"nickname" validate:"max=64"`
}

type placeMultipleBetsRequest struct {
	Bets          []batchBetRequest `json:"bets" validate:"required,min=1,max=100,dive"`
	TransactionID string            `json:"transaction_id"`
}

// PlaceMultipleBets handles POST /api/bets/multiple.
func (h *BetHandler) PlaceMultipleBets(c *gin.Context) {
	var req placeMultipleBetsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponseWithError(c, errors.NewValidationError("invalid request body", err.Error()))
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	cmd := toBatchCommand(req)
	result, err := h.placeMultiple.Execute(c.Request.Context(), cmd)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "bets placed", result)
}

func toBatchCommand(req placeMultipleBetsRequest) betusecases.PlaceMultipleBetsCommand {
	cmd := betusecases.PlaceMultipleBetsCommand{TransactionID: req.TransactionID}
	for _, b := range req.Bets {
		cmd.Bets = append(cmd.Bets, betusecases.BatchBetEntry{
			Numbers:  b.Numbers,
			Nickname: b.Nickname,
		})
	}
	return cmd
}

// ListRecent handles GET /api/bets/recent.
func (h *BetHandler) ListRecent(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	bets, err := h.queries.Recent(c.Request.Context(), limit)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", bets)
}

// GetByID handles GET /api/bets/:betId.
func (h *BetHandler) GetByID(c *gin.Context) {
	id, err := parseUintParam(c, "betId")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	b, err := h.queries.ByID(c.Request.Context(), id)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", b)
}

// GetByTransaction handles GET /api/bets/check/:transactionId.
func (h *BetHandler) GetByTransaction(c *gin.Context) {
	b, err := h.queries.ByTransaction(c.Request.Context(), c.Param("transactionId"))
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", b)
}

// ListByRound handles GET /api/bets/round/:roundId.
func (h *BetHandler) ListByRound(c *gin.Context) {
	roundID, err := parseIntParam(c, "roundId")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	bets, err := h.queries.ByRound(c.Request.Context(), roundID)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", bets)
}

// ListRoundWinners handles GET /api/bets/winners/:roundId. Winners are only
// available once the round is finalized.
func (h *BetHandler) ListRoundWinners(c *gin.Context) {
	roundID, err := parseIntParam(c, "roundId")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	winners, err := h.queries.WinnersByRound(c.Request.Context(), roundID)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", winners)
}

type checkPaymentRequest struct {
	TransactionID string `json:"transaction_id"`
}

// CheckPayment handles POST /api/bets/admin/check-bet-payment/:betId.
func (h *BetHandler) CheckPayment(c *gin.Context) {
	id, err := parseUintParam(c, "betId")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	var req checkPaymentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.ErrorResponseWithError(c, errors.NewValidationError("invalid request body", err.Error()))
			return
		}
	}

	result, err := h.checkPayment.Execute(c.Request.Context(), paymentusecases.CheckBetPaymentCommand{
		BetID:         id,
		TransactionID: req.TransactionID,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", result)
}

// CurrentRound handles GET /api/bets/current-round.
func (h *BetHandler) CurrentRound(c *gin.Context) {
	result, err := h.currentRound.Execute(c.Request.Context())
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", result)
}

type initSessionRequest struct {
	Numbers  []int  `json:"numbers" validate:"required"`
	Nickname string `json:"nickname" validate:"max=64"`
}

// InitSession handles POST /api/bets/init-session. The session records the
// intended pick; no bet exists until the session is completed.
func (h *BetHandler) InitSession(c *gin.Context) {
	var req initSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponseWithError(c, errors.NewValidationError("invalid request body", err.Error()))
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	session, err := h.sessions.Init(c.Request.Context(), paymentusecases.InitSessionCommand{
		Numbers:  req.Numbers,
		Nickname: req.Nickname,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusCreated, "session opened", session)
}

// CheckSession handles GET /api/bets/check-payment/:sessionId.
func (h *BetHandler) CheckSession(c *gin.Context) {
	session, err := h.sessions.Check(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", session)
}

type completeSessionRequest struct {
	SessionID     string `json:"session_id" validate:"required"`
	TransactionID string `json:"transaction_id"`
}

// CompleteSession handles POST /api/bets/complete-session. TransactionID is
// optional; without it the recent inbound transfers are scanned.
func (h *BetHandler) CompleteSession(c *gin.Context) {
	var req completeSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponseWithError(c, errors.NewValidationError("invalid request body", err.Error()))
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	result, err := h.sessions.Complete(c.Request.Context(), req.SessionID, req.TransactionID)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusCreated, "bet registered", result)
}

// AbandonSession handles DELETE /api/bets/check-payment/:sessionId.
func (h *BetHandler) AbandonSession(c *gin.Context) {
	if err := h.sessions.Abandon(c.Request.Context(), c.Param("sessionId")); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "session abandoned", nil)
}

// ListPending handles GET /api/bets/admin/pending.
func (h *BetHandler) ListPending(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	bets, err := h.queries.Pending(c.Request.Context(), limit)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", bets)
}

// MonitorStatus handles GET /api/bets/admin/payment-monitor-status.
func (h *BetHandler) MonitorStatus(c *gin.Context) {
	result, err := h.monitorStatus.Execute(c.Request.Context())
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", result)
}

// ManualPayout handles POST /api/bets/admin/payout/:betId.
func (h *BetHandler) ManualPayout(c *gin.Context) {
	id, err := parseUintParam(c, "betId")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	result, err := h.manualPayout.Execute(c.Request.Context(), betusecases.ManualPayoutCommand{BetID: id})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	h.logger.Infow("manual payout triggered", "bet_id", id, "client_ip", c.ClientIP())
	utils.SuccessResponse(c, http.StatusOK, "payout sent", result)
}

// UnpaidWinners handles GET /api/bets/admin/unpaid-winners.
func (h *BetHandler) UnpaidWinners(c *gin.Context) {
	winners, err := h.queries.UnpaidWinners(c.Request.Context())
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", winners)
}

func parseUintParam(c *gin.Context, name string) (uint, error) {
	value, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		return 0, errors.NewValidationError(name + " must be a positive integer")
	}
	return uint(value), nil
}

func parseIntParam(c *gin.Context, name string) (int, error) {
	value, err := strconv.Atoi(c.Param(name))
	if err != nil {
		return 0, errors.NewValidationError(name + " must be an integer")
	}
	return value, nil
}
