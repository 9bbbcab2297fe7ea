// Package binancespot adapts github.com/adshao/go-binance/v2's spot
// REST client to exchange.Port. Every call is wrapped in a
// failsafe-go timeout policy only — no retry policy, since the core
// never retries internally and the next scheduled invocation is the
// retry.
package binancespot

import (
	"context"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/timeout"
	"github.com/tommy-ca/gridtrader/internal/pair"
)

// Adapter implements exchange.Port against live Binance spot trading.
type Adapter struct {
	client  *binance.Client
	timeout time.Duration
}

// New builds an Adapter authenticated with apiKey/secretKey. callTimeout
// bounds every individual REST call; zero selects a 10 second default.
func New(apiKey, secretKey string, callTimeout time.Duration) *Adapter {
	if callTimeout <= 0 {
		callTimeout = 10 * time.Second
	}
	return &Adapter{client: binance.NewClient(apiKey, secretKey), timeout: callTimeout}
}

func withTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	policy := timeout.With[T](d)
	executor := failsafe.NewExecutor[T](policy)
	return executor.GetWithExecution(func(exec failsafe.Execution[T]) (T, error) {
		return fn(ctx)
	})
}

func symbolOf(p pair.Pair) string {
	return strings.ToUpper(p.Base) + strings.ToUpper(p.Quote)
}

// BaseOf returns the counter asset for p. Binance spot symbols do not
// rewrite asset names, so this matches pair.BaseOf.
func (a *Adapter) BaseOf(p pair.Pair) string {
	return pair.BaseOf(p)
}
