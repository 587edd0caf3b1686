// Package blockchain implements the chain gateway against a Polygon JSON-RPC
// endpoint.
package blockchain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	appchain "blocklotto/internal/application/payment/blockchain"
	sharedconfig "blocklotto/internal/shared/config"
	"blocklotto/internal/shared/logger"
)

const (
	weiDecimals      = 18
	transferGasLimit = 21000
	// receiptPollInterval paces the wait for a sent payout to be mined.
	receiptPollInterval = 3 * time.Second
	receiptWaitTimeout  = 3 * time.Minute
)

// PolygonGateway talks to a Polygon node over JSON-RPC.
type PolygonGateway struct {
	client           *ethclient.Client
	chainID          *big.Int
	receivingAddress common.Address
	payoutKey        *ecdsa.PrivateKey
	scanBlocks       int
	minConfirmations int
	logger           logger.Interface
}

// NewPolygonGateway dials the configured RPC endpoint. The payout key is
// optional; without it the gateway is read-only and SendPayment fails.
func NewPolygonGateway(cfg *sharedconfig.ChainConfig, log logger.Interface) (*PolygonGateway, error) {
	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dialing RPC endpoint: %w", err)
	}

	if !common.IsHexAddress(cfg.ReceivingAddress) {
		return nil, fmt.Errorf("invalid receiving address %q", cfg.ReceivingAddress)
	}

	var payoutKey *ecdsa.PrivateKey
	if cfg.PayoutPrivateKey != "" {
		payoutKey, err = crypto.HexToECDSA(strings.TrimPrefix(cfg.PayoutPrivateKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("parsing payout key: %w", err)
		}
	}

	return &PolygonGateway{
		client:           client,
		chainID:          big.NewInt(cfg.ChainID),
		receivingAddress: common.HexToAddress(cfg.ReceivingAddress),
		payoutKey:        payoutKey,
		scanBlocks:       cfg.ScanBlocks,
		minConfirmations: cfg.MinConfirmations,
		logger:           log.Named("polygon-gateway"),
	}, nil
}

// ReceivingAddress returns the bet collection wallet in checksum form.
func (g *PolygonGateway) ReceivingAddress() string {
	return g.receivingAddress.Hex()
}

// TransactionByHash fetches and validates one transaction as a bet payment.
func (g *PolygonGateway) TransactionByHash(ctx context.Context, hash string) (*appchain.Transaction, error) {
	tx, isPending, err := g.client.TransactionByHash(ctx, common.HexToHash(hash))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, appchain.ErrTxNotFound
		}
		return nil, fmt.Errorf("fetching transaction: %w", err)
	}
	if isPending {
		return nil, appchain.ErrTxPending
	}

	receipt, err := g.client.TransactionReceipt(ctx, tx.Hash())
	if err != nil {
		return nil, fmt.Errorf("fetching receipt: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, appchain.ErrTxFailed
	}

	if tx.To() == nil || *tx.To() != g.receivingAddress {
		return nil, appchain.ErrWrongRecipient
	}
	if tx.Value().Sign() <= 0 {
		return nil, appchain.ErrValueTooLow
	}

	head, err := g.client.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading head block: %w", err)
	}
	confirmations := int(head - receipt.BlockNumber.Uint64() + 1)
	if confirmations < g.minConfirmations {
		return nil, appchain.ErrTxPending
	}

	header, err := g.client.HeaderByNumber(ctx, receipt.BlockNumber)
	if err != nil {
		return nil, fmt.Errorf("reading block header: %w", err)
	}

	from, err := types.Sender(types.LatestSignerForChainID(g.chainID), tx)
	if err != nil {
		return nil, fmt.Errorf("recovering sender: %w", err)
	}

	return &appchain.Transaction{
		Hash:          tx.Hash().Hex(),
		From:          from.Hex(),
		To:            tx.To().Hex(),
		Value:         weiToDecimal(tx.Value()),
		BlockNumber:   receipt.BlockNumber.Uint64(),
		Confirmations: confirmations,
		Timestamp:     time.Unix(int64(header.Time), 0).UTC(),
	}, nil
}

// RecentInbound scans the last scanBlocks confirmed blocks for native
// transfers into the receiving wallet, newest first.
func (g *PolygonGateway) RecentInbound(ctx context.Context, limit int) ([]appchain.Transaction, error) {
	head, err := g.client.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading head block: %w", err)
	}

	newest := int64(head) - int64(g.minConfirmations) + 1
	oldest := newest - int64(g.scanBlocks) + 1
	if oldest < 0 {
		oldest = 0
	}

	signer := types.LatestSignerForChainID(g.chainID)

	var out []appchain.Transaction
	for num := newest; num >= oldest && len(out) < limit; num-- {
		block, err := g.client.BlockByNumber(ctx, big.NewInt(num))
		if err != nil {
			// One unreadable block must not sink the whole scan.
			g.logger.Warnw("skipping unreadable block", "block", num, "error", err)
			continue
		}

		blockTime := time.Unix(int64(block.Time()), 0).UTC()
		for _, tx := range block.Transactions() {
			if tx.To() == nil || *tx.To() != g.receivingAddress {
				continue
			}
			if tx.Value().Sign() <= 0 {
				continue
			}
			from, err := types.Sender(signer, tx)
			if err != nil {
				g.logger.Warnw("skipping transaction with unrecoverable sender",
					"tx", tx.Hash().Hex(), "error", err)
				continue
			}

			out = append(out, appchain.Transaction{
				Hash:          tx.Hash().Hex(),
				From:          from.Hex(),
				To:            tx.To().Hex(),
				Value:         weiToDecimal(tx.Value()),
				BlockNumber:   uint64(num),
				Confirmations: int(head) - int(num) + 1,
				Timestamp:     blockTime,
			})
			if len(out) >= limit {
				break
			}
		}
	}

	return out, nil
}

// SendPayment signs and sends a native transfer from the payout wallet, then
// waits until it is mined successfully.
func (g *PolygonGateway) SendPayment(ctx context.Context, to string, amount decimal.Decimal) (*appchain.Payment, error) {
	if g.payoutKey == nil {
		return nil, fmt.Errorf("payout key not configured")
	}
	if !common.IsHexAddress(to) {
		return nil, fmt.Errorf("invalid recipient address %q", to)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("payment amount must be positive")
	}

	fromAddr := crypto.PubkeyToAddress(g.payoutKey.PublicKey)
	value := decimalToWei(amount)

	balance, err := g.client.BalanceAt(ctx, fromAddr, nil)
	if err != nil {
		return nil, fmt.Errorf("reading payout wallet balance: %w", err)
	}
	if balance.Cmp(value) <= 0 {
		return nil, fmt.Errorf("payout wallet balance %s below payment %s",
			weiToDecimal(balance), amount)
	}

	nonce, err := g.client.PendingNonceAt(ctx, fromAddr)
	if err != nil {
		return nil, fmt.Errorf("reading nonce: %w", err)
	}
	gasPrice, err := g.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading gas price: %w", err)
	}

	toAddr := common.HexToAddress(to)
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &toAddr,
		Value:    value,
		Gas:      transferGasLimit,
		GasPrice: gasPrice,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(g.chainID), g.payoutKey)
	if err != nil {
		return nil, fmt.Errorf("signing transaction: %w", err)
	}
	if err := g.client.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("sending transaction: %w", err)
	}

	g.logger.Infow("payout sent, waiting for mining",
		"tx", signed.Hash().Hex(),
		"to", to,
		"amount", amount.String(),
	)

	receipt, err := g.waitMined(ctx, signed.Hash())
	if err != nil {
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("payout transaction %s reverted", signed.Hash().Hex())
	}

	return &appchain.Payment{
		TxHash:      signed.Hash().Hex(),
		To:          toAddr.Hex(),
		Amount:      amount,
		BlockNumber: receipt.BlockNumber.Uint64(),
	}, nil
}

// Balance returns an address's native balance.
func (g *PolygonGateway) Balance(ctx context.Context, address string) (decimal.Decimal, error) {
	if !common.IsHexAddress(address) {
		return decimal.Zero, fmt.Errorf("invalid address %q", address)
	}
	balance, err := g.client.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("reading balance: %w", err)
	}
	return weiToDecimal(balance), nil
}

// Close releases the RPC connection.
func (g *PolygonGateway) Close() {
	g.client.Close()
}

func (g *PolygonGateway) waitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, receiptWaitTimeout)
	defer cancel()

	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := g.client.TransactionReceipt(waitCtx, hash)
		if err == nil {
			return receipt, nil
		}

		select {
		case <-waitCtx.Done():
			return nil, fmt.Errorf("waiting for transaction %s: %w", hash.Hex(), waitCtx.Err())
		case <-ticker.C:
		}
	}
}

func weiToDecimal(wei *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(wei, -weiDecimals)
}

func decimalToWei(amount decimal.Decimal) *big.Int {
	return amount.Shift(weiDecimals).BigInt()
}
