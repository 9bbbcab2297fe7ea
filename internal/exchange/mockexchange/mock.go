// Package mockexchange is an in-memory fake of exchange.Port for unit
// and end-to-end tests, standing in for a live exchange adapter across
// the grid and trader test suites.
package mockexchange

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/tommy-ca/gridtrader/internal/apperrors"
	"github.com/tommy-ca/gridtrader/internal/exchange"
	"github.com/tommy-ca/gridtrader/internal/money"
	"github.com/tommy-ca/gridtrader/internal/pair"
)

type order struct {
	id     exchange.OrderID
	pair   pair.Pair
	rate   money.Money
	amount money.Money
	open   bool
}

// Exchange is a deterministic, single-process fake exchange.Port.
// Every pair's ticker, balances and minimum order notional are
// injected by the test; CloseOrder flips an order's IsOpen result.
type Exchange struct {
	mu sync.Mutex

	Tickers map[string]exchange.Ticker
	Balance map[string]exchange.Balance

	// MinNotional is the venue's minimum tradable order value,
	// compared against rate*amount. Zero disables the dust check.
	MinNotional money.Money

	// InsufficientFunds, when true, makes every Buy/Sell call fail
	// with ErrNotEnoughCoin regardless of balances, until it is reset.
	InsufficientFunds bool

	orders map[exchange.OrderID]*order
}

// New constructs an empty mock exchange.
func New() *Exchange {
	return &Exchange{
		Tickers: make(map[string]exchange.Ticker),
		Balance: make(map[string]exchange.Balance),
		orders:  make(map[exchange.OrderID]*order),
	}
}

func (e *Exchange) SetTicker(p pair.Pair, t exchange.Ticker) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Tickers[p.String()] = t
}

func (e *Exchange) TickerFor(ctx context.Context, p pair.Pair) (exchange.Ticker, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.Tickers[p.String()]
	if !ok {
		return exchange.Ticker{}, fmt.Errorf("mockexchange: no ticker for %s: %w", p, apperrors.ErrTransport)
	}
	return t, nil
}

func (e *Exchange) ReturnBalances(ctx context.Context) (map[string]exchange.Balance, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]exchange.Balance, len(e.Balance))
	for k, v := range e.Balance {
		out[k] = v
	}
	return out, nil
}

func (e *Exchange) ReturnPositiveBalances(ctx context.Context) (map[string]exchange.Balance, error) {
	all, err := e.ReturnBalances(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]exchange.Balance)
	for k, v := range all {
		if v.Total.Cmp(money.Zero) > 0 {
			out[k] = v
		}
	}
	return out, nil
}

func (e *Exchange) ReturnBalanceFromMarket(ctx context.Context, p pair.Pair) (exchange.Balance, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Balance[e.BaseOf(p)], nil
}

func (e *Exchange) ReturnSellOrderBook(ctx context.Context, p pair.Pair) ([]exchange.BookLevel, error) {
	return nil, nil
}

func (e *Exchange) Buy(ctx context.Context, p pair.Pair, rate, amount money.Money) (exchange.PlacedOrder, error) {
	return e.place(p, rate, amount)
}

func (e *Exchange) Sell(ctx context.Context, p pair.Pair, rate, amount money.Money) (exchange.PlacedOrder, error) {
	return e.place(p, rate, amount)
}

func (e *Exchange) place(p pair.Pair, rate, amount money.Money) (exchange.PlacedOrder, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.InsufficientFunds {
		return exchange.PlacedOrder{}, fmt.Errorf("mockexchange: %w", apperrors.ErrNotEnoughCoin)
	}
	if e.MinNotional.Cmp(money.Zero) > 0 && rate.Mul(amount).Cmp(e.MinNotional) < 0 {
		return exchange.PlacedOrder{}, fmt.Errorf("mockexchange: %w", apperrors.ErrDustTrade)
	}

	id := exchange.OrderID(uuid.NewString())
	e.orders[id] = &order{id: id, pair: p, rate: rate, amount: amount, open: true}
	return exchange.PlacedOrder{OrderNumber: id}, nil
}

// CloseOrder marks id as filled/closed, as if the venue reported it so.
func (e *Exchange) CloseOrder(id exchange.OrderID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if o, ok := e.orders[id]; ok {
		o.open = false
	}
}

func (e *Exchange) IsOpen(ctx context.Context, id exchange.OrderID) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	o, ok := e.orders[id]
	if !ok {
		return false, nil
	}
	return o.open, nil
}

func (e *Exchange) CancelOrders(ctx context.Context, ids []exchange.OrderID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, id := range ids {
		if o, ok := e.orders[id]; ok {
			o.open = false
		}
	}
	return nil
}

func (e *Exchange) CancelAllOpen(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, o := range e.orders {
		o.open = false
	}
	return nil
}

func (e *Exchange) BaseOf(p pair.Pair) string {
	return pair.BaseOf(p)
}
