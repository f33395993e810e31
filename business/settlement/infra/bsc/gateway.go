// Package bsc implements the settlement ChainGateway for BNB Smart Chain
// using go-ethereum's RPC client.
package bsc

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
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/arbitrage-executor/business/settlement/app"
	"github.com/fd1az/arbitrage-executor/business/settlement/domain"
	"github.com/fd1az/arbitrage-executor/internal/apperror"
	"github.com/fd1az/arbitrage-executor/internal/asset"
	"github.com/fd1az/arbitrage-executor/internal/cache"
	"github.com/fd1az/arbitrage-executor/internal/circuitbreaker"
	"github.com/fd1az/arbitrage-executor/internal/logger"
)

const (
	tracerName = "bsc"
	meterName  = "bsc"

	gasPriceCacheKey = "current"
	gasPriceCacheTTL = 3 * time.Second // ~1 BSC block
)

// Ensure Gateway implements the port.
var _ app.ChainGateway = (*Gateway)(nil)

// Config holds BSC gateway configuration.
type Config struct {
	ChainID     uint64
	TransferGas uint64
	MaxGasPrice *big.Int // wei, safety ceiling; nil disables the cap

	// Wallet; empty key disables Transfer.
	WalletAddress string
	PrivateKey    string
}

// gatewayMetrics holds OTEL metric instruments.
type gatewayMetrics struct {
	rpcCalls     metric.Int64Counter
	transfers    metric.Int64Counter
	gasPriceGwei metric.Float64Gauge
}

// Gateway talks to BNB Smart Chain.
type Gateway struct {
	config Config
	client *ethclient.Client
	logger logger.LoggerInterface

	nativeAsset *asset.Asset
	signer      types.Signer
	key         *ecdsa.PrivateKey
	from        common.Address

	priceCache *cache.Cache[string, *domain.GasPrice]
	cb         *circuitbreaker.CircuitBreaker[*big.Int]

	tracer  trace.Tracer
	metrics *gatewayMetrics
}

// New creates a BSC gateway over an established RPC client.
func New(client *ethclient.Client, cfg Config, log logger.LoggerInterface) (*Gateway, error) {
	if client == nil {
		return nil, apperror.New(apperror.CodeChainConnectionFailed,
			apperror.WithContext("no chain RPC client configured"))
	}

	chainID := new(big.Int).SetUint64(cfg.ChainID)
	g := &Gateway{
		config:      cfg,
		client:      client,
		logger:      log,
		nativeAsset: asset.MustNewNative(cfg.ChainID, "BNB", "BNB", 18),
		signer:      types.NewEIP155Signer(chainID),
		priceCache:  cache.New[string, *domain.GasPrice](time.Minute),
		cb:          circuitbreaker.New[*big.Int](circuitbreaker.DefaultConfig("bsc-rpc")),
		tracer:      otel.Tracer(tracerName),
	}

	if cfg.PrivateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
		if err != nil {
			return nil, apperror.New(apperror.CodeTransferSigningFailed,
				apperror.WithCause(err),
				apperror.WithContext("invalid wallet private key"))
		}
		g.key = key
		g.from = crypto.PubkeyToAddress(key.PublicKey)
		if cfg.WalletAddress != "" && common.HexToAddress(cfg.WalletAddress) != g.from {
			return nil, apperror.New(apperror.CodeConfigurationError,
				apperror.WithContext("wallet address does not match private key"))
		}
	}

	if err := g.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return g, nil
}

func (g *Gateway) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	g.metrics = &gatewayMetrics{}

	g.metrics.rpcCalls, err = meter.Int64Counter(
		"chain_rpc_calls_total",
		metric.WithDescription("Total chain RPC calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return err
	}

	g.metrics.transfers, err = meter.Int64Counter(
		"chain_transfers_total",
		metric.WithDescription("Total token transfers broadcast"),
		metric.WithUnit("{transfer}"),
	)
	if err != nil {
		return err
	}

	g.metrics.gasPriceGwei, err = meter.Float64Gauge(
		"chain_gas_price_gwei",
		metric.WithDescription("Current gas price in gwei"),
		metric.WithUnit("gwei"),
	)
	return err
}

// BlockNumber returns the current chain head.
func (g *Gateway) BlockNumber(ctx context.Context) (uint64, error) {
	ctx, span := g.tracer.Start(ctx, "chain.block_number")
	defer span.End()

	g.metrics.rpcCalls.Add(ctx, 1, metric.WithAttributes(attribute.String("method", "block_number")))

	head, err := g.client.BlockNumber(ctx)
	if err != nil {
		span.RecordError(err)
		return 0, apperror.New(apperror.CodeChainRPCError,
			apperror.WithCause(err),
			apperror.WithContext("failed to fetch chain head"))
	}

	span.SetAttributes(attribute.Int64("head", int64(head)))
	return head, nil
}

// TransactionReceipt returns the receipt for a transaction, or (nil, nil)
// while it is still unmined.
func (g *Gateway) TransactionReceipt(ctx context.Context, txHash string) (*domain.Receipt, error) {
	ctx, span := g.tracer.Start(ctx, "chain.transaction_receipt",
		trace.WithAttributes(attribute.String("tx_hash", txHash)))
	defer span.End()

	g.metrics.rpcCalls.Add(ctx, 1, metric.WithAttributes(attribute.String("method", "transaction_receipt")))

	receipt, err := g.client.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			span.AddEvent("not_mined")
			return nil, nil
		}
		span.RecordError(err)
		return nil, apperror.New(apperror.CodeChainRPCError,
			apperror.WithCause(err),
			apperror.WithContext("failed to fetch receipt for "+txHash))
	}

	span.SetAttributes(
		attribute.Int64("block", int64(receipt.BlockNumber.Uint64())),
		attribute.Int64("status", int64(receipt.Status)),
	)

	return &domain.Receipt{
		TxHash:      receipt.TxHash,
		BlockNumber: receipt.BlockNumber.Uint64(),
		GasUsed:     receipt.GasUsed,
		Reverted:    receipt.Status == types.ReceiptStatusFailed,
	}, nil
}

// TokenBalance returns an address's balance of a token, in token units.
func (g *Gateway) TokenBalance(ctx context.Context, token domain.Token, address string) (decimal.Decimal, error) {
	ctx, span := g.tracer.Start(ctx, "chain.token_balance",
		trace.WithAttributes(
			attribute.String("token", token.Symbol),
			attribute.String("address", address),
		))
	defer span.End()

	g.metrics.rpcCalls.Add(ctx, 1, metric.WithAttributes(attribute.String("method", "token_balance")))

	contract := token.Address
	msg := ethereum.CallMsg{
		To:   &contract,
		Data: balanceOfCalldata(common.HexToAddress(address)),
	}
	raw, err := g.client.CallContract(ctx, msg, nil)
	if err != nil {
		span.RecordError(err)
		return decimal.Zero, apperror.New(apperror.CodeChainRPCError,
			apperror.WithCause(err),
			apperror.WithContext("balanceOf call failed"))
	}

	balance := asset.NewAmount(g.tokenAsset(token), new(big.Int).SetBytes(raw))
	span.SetAttributes(attribute.String("balance", balance.ToDecimal().String()))
	return balance.ToDecimal(), nil
}

// tokenAsset builds the asset descriptor used for unit conversion.
func (g *Gateway) tokenAsset(token domain.Token) *asset.Asset {
	return asset.MustNewToken(g.config.ChainID, token.Address, token.Symbol, token.Symbol, token.Decimals)
}

// NativeBalance returns an address's BNB balance for gas.
func (g *Gateway) NativeBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	ctx, span := g.tracer.Start(ctx, "chain.native_balance",
		trace.WithAttributes(attribute.String("address", address)))
	defer span.End()

	g.metrics.rpcCalls.Add(ctx, 1, metric.WithAttributes(attribute.String("method", "native_balance")))

	wei, err := g.client.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		span.RecordError(err)
		return decimal.Zero, apperror.New(apperror.CodeChainRPCError,
			apperror.WithCause(err),
			apperror.WithContext("failed to fetch native balance"))
	}

	return asset.NewAmount(g.nativeAsset, wei).ToDecimal(), nil
}

// GasPrice returns the current gas price with a short-lived cache.
func (g *Gateway) GasPrice(ctx context.Context) (*domain.GasPrice, error) {
	ctx, span := g.tracer.Start(ctx, "chain.gas_price")
	defer span.End()

	if price, found := g.priceCache.Get(ctx, gasPriceCacheKey); found {
		span.AddEvent("cache_hit")
		return price, nil
	}

	g.metrics.rpcCalls.Add(ctx, 1, metric.WithAttributes(attribute.String("method", "gas_price")))

	wei, err := g.cb.Execute(func() (*big.Int, error) {
		return g.client.SuggestGasPrice(ctx)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, apperror.Wrap(err, apperror.CodeChainRPCError, "failed to get gas price")
	}

	if g.config.MaxGasPrice != nil && wei.Cmp(g.config.MaxGasPrice) > 0 {
		g.logger.Warn(ctx, "gas price exceeds max, capping", "wei", wei.String())
		wei = g.config.MaxGasPrice
	}

	price := domain.NewGasPrice(wei)
	g.priceCache.Set(ctx, gasPriceCacheKey, price, gasPriceCacheTTL)
	g.metrics.gasPriceGwei.Record(ctx, price.Gwei())

	span.SetAttributes(attribute.Float64("gwei", price.Gwei()))
	return price, nil
}

// Transfer signs and broadcasts a token transfer from the wallet.
func (g *Gateway) Transfer(ctx context.Context, token domain.Token, to string, amount decimal.Decimal) (string, error) {
	ctx, span := g.tracer.Start(ctx, "chain.transfer",
		trace.WithAttributes(
			attribute.String("token", token.Symbol),
			attribute.String("to", to),
			attribute.String("amount", amount.String()),
		))
	defer span.End()

	if g.key == nil {
		return "", apperror.New(apperror.CodeTransferSigningFailed,
			apperror.WithContext("no wallet private key configured"))
	}

	tokenAmount, err := asset.ParseDecimal(g.tokenAsset(token), amount)
	if err != nil {
		return "", apperror.New(apperror.CodeInvalidInput,
			apperror.WithCause(err),
			apperror.WithContext("unrepresentable transfer amount "+amount.String()))
	}

	nonce, err := g.client.PendingNonceAt(ctx, g.from)
	if err != nil {
		span.RecordError(err)
		return "", apperror.New(apperror.CodeChainRPCError,
			apperror.WithCause(err),
			apperror.WithContext("failed to fetch nonce"))
	}

	gasPrice, err := g.GasPrice(ctx)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	contract := token.Address
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &contract,
		Value:    big.NewInt(0),
		Gas:      g.config.TransferGas,
		GasPrice: gasPrice.Wei,
		Data:     transferCalldata(common.HexToAddress(to), tokenAmount.Raw()),
	})

	signed, err := types.SignTx(tx, g.signer, g.key)
	if err != nil {
		span.RecordError(err)
		return "", apperror.New(apperror.CodeTransferSigningFailed,
			apperror.WithCause(err))
	}

	if err := g.client.SendTransaction(ctx, signed); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "broadcast failed")
		return "", apperror.New(apperror.CodeTransferBroadcastFailed,
			apperror.WithCause(err))
	}

	txHash := signed.Hash().Hex()
	g.metrics.transfers.Add(ctx, 1)
	g.logger.Info(ctx, "token transfer broadcast",
		"token", token.Symbol,
		"to", to,
		"amount", amount.String(),
		"tx_hash", txHash,
		"nonce", nonce)

	span.SetAttributes(attribute.String("tx_hash", txHash))
	span.SetStatus(codes.Ok, "broadcast")
	return txHash, nil
}

// Close releases the gateway's cache. The RPC client is owned by the caller.
func (g *Gateway) Close() error {
	g.priceCache.Close()
	return nil
}
