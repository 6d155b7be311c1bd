package defi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ton-connect/walletkit-go/pkg/intent"
)

var ErrQuoteTimeout = errors.New("quote request timed out")

// Asset is a jetton master address, or the empty string for TON.
type Asset struct {
	Address  string `json:"address,omitempty"`
	Symbol   string `json:"symbol,omitempty"`
	Decimals int32  `json:"decimals"`
}

func (a Asset) IsTon() bool { return a.Address == "" }

type SwapQuoteRequest struct {
	From        Asset  `json:"from"`
	To          Asset  `json:"to"`
	Amount      string `json:"amount"`
	SlippageBps uint32 `json:"slippageBps"`
	UserAddress string `json:"userAddress"`
	Network     string `json:"network,omitempty"`
}

type SwapQuote struct {
	Provider    string    `json:"provider"`
	From        Asset     `json:"from"`
	To          Asset     `json:"to"`
	FromAmount  string    `json:"fromAmount"`
	ToAmount    string    `json:"toAmount"`
	MinReceived string    `json:"minReceived"`
	ExpiresAt   time.Time `json:"expiresAt,omitempty"`
	// Route is provider specific data BuildTransaction needs.
	Route any `json:"-"`
}

// Rate is the price of one From unit in To units.
func (q *SwapQuote) Rate() (decimal.Decimal, error) {
	in, err := decimal.NewFromString(q.FromAmount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid from amount %q: %w", q.FromAmount, err)
	}
	out, err := decimal.NewFromString(q.ToAmount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid to amount %q: %w", q.ToAmount, err)
	}
	if in.IsZero() {
		return decimal.Zero, errors.New("zero from amount")
	}
	in = in.Shift(-q.From.Decimals)
	out = out.Shift(-q.To.Decimals)
	return out.DivRound(in, 18), nil
}

type SwapProvider interface {
	Name() string
	Quote(ctx context.Context, req SwapQuoteRequest) (*SwapQuote, error)
	BuildTransaction(ctx context.Context, quote *SwapQuote, userAddress string) (*intent.TransactionRequest, error)
}

type StakeDirection string

const (
	Stake   StakeDirection = "stake"
	Unstake StakeDirection = "unstake"
)

type StakingQuoteRequest struct {
	Pool        string         `json:"pool"`
	Direction   StakeDirection `json:"direction"`
	Amount      string         `json:"amount"`
	UserAddress string         `json:"userAddress"`
}

type StakingQuote struct {
	Provider  string          `json:"provider"`
	Pool      string          `json:"pool"`
	Direction StakeDirection  `json:"direction"`
	AmountIn  string          `json:"amountIn"`
	AmountOut string          `json:"amountOut"`
	APY       decimal.Decimal `json:"apy"`
}

type StakingProvider interface {
	Name() string
	Quote(ctx context.Context, req StakingQuoteRequest) (*StakingQuote, error)
	BuildStakeTransaction(ctx context.Context, quote *StakingQuote, userAddress string) (*intent.TransactionRequest, error)
}

// MinReceived applies a slippage tolerance in basis points to amount,
// rounding down.
func MinReceived(amount string, slippageBps uint32) (string, error) {
	v, err := decimal.NewFromString(amount)
	if err != nil {
		return "", fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	if slippageBps > 10_000 {
		return "", fmt.Errorf("slippage %d bps exceeds 100%%", slippageBps)
	}
	keep := decimal.NewFromInt(int64(10_000 - slippageBps))
	return v.Mul(keep).Div(decimal.NewFromInt(10_000)).Floor().String(), nil
}

// ToUnits converts a human amount such as "1.5" into smallest units.
func ToUnits(amount string, decimals int32) (string, error) {
	v, err := decimal.NewFromString(amount)
	if err != nil {
		return "", fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	if v.IsNegative() {
		return "", fmt.Errorf("negative amount %q", amount)
	}
	units := v.Shift(decimals)
	if !units.Equal(units.Truncate(0)) {
		return "", fmt.Errorf("amount %q has more than %d decimals", amount, decimals)
	}
	return units.String(), nil
}

// QuoteWithTimeout runs fn with a deadline. On expiry fn's context is
// cancelled and ErrQuoteTimeout is returned without waiting for fn.
func QuoteWithTimeout[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, ErrQuoteTimeout
		}
		return zero, ctx.Err()
	}
}
