package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"blocklotto/internal/application/payment/blockchain"
	"blocklotto/internal/application/payment/cache"
	roundservices "blocklotto/internal/application/round/services"
	"blocklotto/internal/domain/bet"
	vo "blocklotto/internal/domain/bet/valueobjects"
	"blocklotto/internal/shared/biztime"
	"blocklotto/internal/shared/db"
	apperrors "blocklotto/internal/shared/errors"
	"blocklotto/internal/shared/logger"
)

const sessionKeyPrefix = "payment_session:"

const (
	sessionStatusAwaitingPayment = "awaiting_payment"
	sessionStatusPaymentReceived = "payment_received"
)

// sessionState is the payload stored per session token: the intended pick and
// the expected payment, recorded before any bet exists.
type sessionState struct {
	Numbers   []int     `json:"numbers"`
	Nickname  string    `json:"nickname,omitempty"`
	Amount    string    `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

// InitSessionCommand opens a payment session for an intended bet.
type InitSessionCommand struct {
	Numbers  []int
	Nickname string
}

// PaymentSessionResult is the transport shape of a session.
type PaymentSessionResult struct {
	SessionID        string    `json:"session_id"`
	Numbers          []int     `json:"numbers"`
	Nickname         string    `json:"nickname,omitempty"`
	Amount           string    `json:"amount"`
	ReceivingAddress string    `json:"receiving_address"`
	Status           string    `json:"status"`
	TransactionID    string    `json:"transaction_id,omitempty"`
	ExpiresAt        time.Time `json:"expires_at"`
}

// CompleteSessionResult reports the bet registered from a completed session.
type CompleteSessionResult struct {
	BetID         uint    `json:"bet_id"`
	RoundID       int     `json:"round_id"`
	Numbers       []int   `json:"numbers"`
	Status        string  `json:"status"`
	TransactionID *string `json:"transaction_id,omitempty"`
}

// PaymentSessionService implements payment-before-registration: the client
// opens a session with its intended pick, pays, and the bet record is only
// created at completion, already confirmed against the observed transaction.
// Sessions live solely in the TTL state store and expire on their own.
type PaymentSessionService struct {
	store        cache.StateStore
	betRepo      bet.Repository
	roundManager *roundservices.RoundManager
	txManager    *db.TransactionManager
	check        *CheckBetPaymentUseCase
	pickSize     int
	maxNumber    int
	ttl          time.Duration
	logger       logger.Interface
}

// NewPaymentSessionService creates a PaymentSessionService.
func NewPaymentSessionService(
	store cache.StateStore,
	betRepo bet.Repository,
	roundManager *roundservices.RoundManager,
	txManager *db.TransactionManager,
	check *CheckBetPaymentUseCase,
	pickSize, maxNumber int,
	ttl time.Duration,
	logger logger.Interface,
) *PaymentSessionService {
	return &PaymentSessionService{
		store:        store,
		betRepo:      betRepo,
		roundManager: roundManager,
		txManager:    txManager,
		check:        check,
		pickSize:     pickSize,
		maxNumber:    maxNumber,
		ttl:          ttl,
		logger:       logger.Named("payment-sessions"),
	}
}

// Init validates the intended pick and opens a session for it. No bet is
// stored yet.
func (s *PaymentSessionService) Init(ctx context.Context, cmd InitSessionCommand) (*PaymentSessionResult, error) {
	numbers, err := vo.NewNumbers(cmd.Numbers, s.pickSize, s.maxNumber)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid numbers", err.Error())
	}

	state := sessionState{
		Numbers:   numbers.Values(),
		Nickname:  cmd.Nickname,
		Amount:    s.check.betAmount.String(),
		CreatedAt: biztime.NowUTC(),
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encoding session: %w", err)
	}

	sessionID := uuid.New().String()
	if err := s.store.StoreState(ctx, sessionKeyPrefix+sessionID, string(payload), s.ttl); err != nil {
		return nil, fmt.Errorf("storing session: %w", err)
	}

	s.logger.Debugw("payment session opened", "session_id", sessionID)

	return &PaymentSessionResult{
		SessionID:        sessionID,
		Numbers:          state.Numbers,
		Nickname:         state.Nickname,
		Amount:           state.Amount,
		ReceivingAddress: s.check.gateway.ReceivingAddress(),
		Status:           sessionStatusAwaitingPayment,
		ExpiresAt:        state.CreatedAt.Add(s.ttl),
	}, nil
}

// Check scans recent inbound transactions for an unclaimed payment matching
// the session. It does not consume the session and does not create the bet.
func (s *PaymentSessionService) Check(ctx context.Context, sessionID string) (*PaymentSessionResult, error) {
	state, err := s.load(ctx, sessionID, false)
	if err != nil {
		return nil, err
	}

	result := &PaymentSessionResult{
		SessionID:        sessionID,
		Numbers:          state.Numbers,
		Nickname:         state.Nickname,
		Amount:           state.Amount,
		ReceivingAddress: s.check.gateway.ReceivingAddress(),
		Status:           sessionStatusAwaitingPayment,
		ExpiresAt:        state.CreatedAt.Add(s.ttl),
	}

	tx, err := s.findPayment(ctx, state.CreatedAt)
	if err != nil {
		return nil, err
	}
	if tx != nil {
		result.Status = sessionStatusPaymentReceived
		result.TransactionID = tx.Hash
	}
	return result, nil
}

// Complete consumes the session and registers the bet as paid against the
// matched transaction. The consume is one-shot: a replayed completion finds no
// session. TransactionID is optional; without it the recent inbound transfers
// are scanned the same way Check does.
func (s *PaymentSessionService) Complete(ctx context.Context, sessionID, transactionID string) (*CompleteSessionResult, error) {
	state, err := s.load(ctx, sessionID, true)
	if err != nil {
		return nil, err
	}

	var tx *blockchain.Transaction
	if transactionID != "" {
		tx, err = s.check.verifyExplicit(ctx, transactionID)
	} else {
		tx, err = s.findPayment(ctx, state.CreatedAt)
	}
	if err != nil {
		// Leave the failed completion consumed; the client can open a new
		// session and retry.
		s.logger.Warnw("session completion failed", "session_id", sessionID, "error", err)
		return nil, err
	}
	if tx == nil {
		return nil, apperrors.NewNotFoundError("no matching payment found for this session")
	}

	numbers := vo.ReconstructNumbers(state.Numbers)

	current, err := s.roundManager.GetOrOpenCurrent(ctx)
	if err != nil {
		return nil, err
	}

	b, err := bet.NewBet(numbers, current.RoundID(), state.Nickname)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid bet", err.Error())
	}
	if err := b.ConfirmPayment(tx.Hash, tx.From, tx.Value, tx.Timestamp); err != nil {
		return nil, apperrors.NewConflictError(err.Error())
	}
	if tx.Timestamp.After(current.DrawDate()) {
		b.FlagValidationError("payment received after draw cutoff")
	}

	err = s.txManager.RunInTransaction(ctx, func(txCtx context.Context) error {
		if err := s.betRepo.Create(txCtx, b); err != nil {
			return fmt.Errorf("creating bet: %w", err)
		}
		return s.roundManager.IncrementTotalBets(txCtx, current.RoundID())
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infow("payment session completed",
		"session_id", sessionID,
		"bet_id", b.ID(),
		"tx", tx.Hash,
	)

	return &CompleteSessionResult{
		BetID:         b.ID(),
		RoundID:       b.RoundID(),
		Numbers:       b.Numbers().Values(),
		Status:        b.Status().String(),
		TransactionID: b.TransactionID(),
	}, nil
}

// Abandon discards a session before completion. Unknown sessions are not an
// error; the TTL may already have expired them.
func (s *PaymentSessionService) Abandon(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return apperrors.NewValidationError("session ID is required")
	}
	if err := s.store.DeleteState(ctx, sessionKeyPrefix+sessionID); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	s.logger.Debugw("payment session abandoned", "session_id", sessionID)
	return nil
}

// findPayment picks the oldest unclaimed inbound transaction matching the
// session's expected amount, observed at or after the session opened.
func (s *PaymentSessionService) findPayment(ctx context.Context, since time.Time) (*blockchain.Transaction, error) {
	inbound, err := s.check.gateway.RecentInbound(ctx, reconcileBatchLimit)
	if err != nil {
		return nil, fmt.Errorf("scanning inbound transactions: %w", err)
	}

	for i := len(inbound) - 1; i >= 0; i-- {
		tx := inbound[i]
		if tx.Timestamp.Before(since) {
			continue
		}
		if tx.Value.Sub(s.check.betAmount).Abs().GreaterThan(s.check.tolerance) {
			continue
		}
		prior, err := s.betRepo.GetByTransactionID(ctx, tx.Hash)
		if err != nil {
			return nil, fmt.Errorf("checking transaction claim: %w", err)
		}
		if prior != nil {
			continue
		}
		return &tx, nil
	}
	return nil, nil
}

func (s *PaymentSessionService) load(ctx context.Context, sessionID string, consume bool) (*sessionState, error) {
	if sessionID == "" {
		return nil, apperrors.NewValidationError("session ID is required")
	}

	key := sessionKeyPrefix + sessionID
	var raw string
	var err error
	if consume {
		raw, err = s.store.ConsumeState(ctx, key)
	} else {
		raw, err = s.store.GetState(ctx, key)
	}
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}
	if raw == "" {
		return nil, apperrors.NewNotFoundError("session not found or expired")
	}

	var state sessionState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	return &state, nil
}
