// Package exchange defines the port the grid trader core consumes —
// the only mutable outside world it touches. Concrete adapters (e.g.
// internal/exchange/binancespot) translate this interface into a given
// venue's REST idioms; internal/exchange/mockexchange provides an in-memory
// fake for tests.
package exchange

import (
	"context"

	"github.com/tommy-ca/gridtrader/internal/money"
	"github.com/tommy-ca/gridtrader/internal/pair"
)

// OrderID identifies a resting order on the venue.
type OrderID string

// Ticker is a best bid/ask snapshot.
type Ticker struct {
	LowestAsk  money.Money
	HighestBid money.Money
}

// Midpoint returns the arithmetic mean of ask and bid.
func (t Ticker) Midpoint() money.Money {
	return t.LowestAsk.Add(t.HighestBid).Half()
}

// Balance is one coin's balance breakdown.
type Balance struct {
	Available money.Money
	OnOrders  money.Money
	Total     money.Money
}

// BookLevel is one ascending-by-rate level of a sell order book.
type BookLevel struct {
	Rate     money.Money
	Quantity money.Money
}

// PlacedOrder is the result of a successful buy/sell call.
type PlacedOrder struct {
	OrderNumber OrderID
}

// Port is the abstract interface the core consumes. Every operation
// may fail with a transport error (apperrors.ErrTransport); buy/sell
// additionally fail with apperrors.ErrNotEnoughCoin or
// apperrors.ErrDustTrade, which callers in internal/grid treat as
// recoverable per-rung failures.
type Port interface {
	// TickerFor returns the current best ask/bid for pair.
	TickerFor(ctx context.Context, p pair.Pair) (Ticker, error)

	// ReturnBalances returns every coin balance on the account.
	ReturnBalances(ctx context.Context) (map[string]Balance, error)

	// ReturnPositiveBalances returns the subset of ReturnBalances with
	// Total > 0.
	ReturnPositiveBalances(ctx context.Context) (map[string]Balance, error)

	// ReturnBalanceFromMarket returns the balance of baseOf(pair).
	ReturnBalanceFromMarket(ctx context.Context, p pair.Pair) (Balance, error)

	// ReturnSellOrderBook returns the venue's resting sell book,
	// ascending by rate.
	ReturnSellOrderBook(ctx context.Context, p pair.Pair) ([]BookLevel, error)

	// Buy places a limit buy. Fails with ErrNotEnoughCoin on
	// insufficient quote balance, ErrDustTrade if amount*rate is below
	// the venue minimum.
	Buy(ctx context.Context, p pair.Pair, rate, amount money.Money) (PlacedOrder, error)

	// Sell places a limit sell. Same failure modes as Buy.
	Sell(ctx context.Context, p pair.Pair, rate, amount money.Money) (PlacedOrder, error)

	// IsOpen reports whether id still has unfilled remainder above
	// epsilon.
	IsOpen(ctx context.Context, id OrderID) (bool, error)

	// CancelOrders best-effort cancels every id; missing/closed ids
	// are ignored silently.
	CancelOrders(ctx context.Context, ids []OrderID) error

	// CancelAllOpen cancels every open order on the account.
	CancelAllOpen(ctx context.Context) error

	// BaseOf returns the venue-specific naming of the counter asset
	// for pair (normally identical to pair.BaseOf, but a venue may
	// rewrite symbols, e.g. stripping a settlement suffix).
	BaseOf(p pair.Pair) string
}
