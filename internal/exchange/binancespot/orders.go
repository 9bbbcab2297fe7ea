package binancespot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/adshao/go-binance/v2"
	"github.com/tommy-ca/gridtrader/internal/apperrors"
	"github.com/tommy-ca/gridtrader/internal/exchange"
	"github.com/tommy-ca/gridtrader/internal/money"
	"github.com/tommy-ca/gridtrader/internal/pair"
)

// classifyOrderError maps a go-binance error to the apperrors taxonomy
// the core understands. Binance reports insufficient balance as code
// -2010/-2019 and sub-minimum-notional orders as -1013, both embedded
// in the error string by the underlying client.
func classifyOrderError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "-2010"), strings.Contains(msg, "-2019"), strings.Contains(msg, "insufficient"):
		return fmt.Errorf("binancespot: %w: %v", apperrors.ErrNotEnoughCoin, err)
	case strings.Contains(msg, "-1013"), strings.Contains(msg, "MIN_NOTIONAL"), strings.Contains(msg, "LOT_SIZE"):
		return fmt.Errorf("binancespot: %w: %v", apperrors.ErrDustTrade, err)
	default:
		return fmt.Errorf("binancespot: %w: %v", apperrors.ErrTransport, err)
	}
}

func (a *Adapter) TickerFor(ctx context.Context, p pair.Pair) (exchange.Ticker, error) {
	book, err := withTimeout(ctx, a.timeout, func(ctx context.Context) (*binance.BookTicker, error) {
		res, err := a.client.NewListBookTickersService().Symbol(symbolOf(p)).Do(ctx)
		if err != nil {
			return nil, err
		}
		if len(res) == 0 {
			return nil, fmt.Errorf("no book ticker for %s", symbolOf(p))
		}
		return res[0], nil
	})
	if err != nil {
		return exchange.Ticker{}, fmt.Errorf("binancespot: ticker %s: %w", p, apperrors.ErrTransport)
	}

	ask, err := money.FromString(book.AskPrice)
	if err != nil {
		return exchange.Ticker{}, fmt.Errorf("binancespot: parse ask %q: %w", book.AskPrice, apperrors.ErrTransport)
	}
	bid, err := money.FromString(book.BidPrice)
	if err != nil {
		return exchange.Ticker{}, fmt.Errorf("binancespot: parse bid %q: %w", book.BidPrice, apperrors.ErrTransport)
	}
	return exchange.Ticker{LowestAsk: ask, HighestBid: bid}, nil
}

func (a *Adapter) ReturnBalances(ctx context.Context) (map[string]exchange.Balance, error) {
	account, err := withTimeout(ctx, a.timeout, func(ctx context.Context) (*binance.Account, error) {
		return a.client.NewGetAccountService().Do(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("binancespot: account: %w", apperrors.ErrTransport)
	}

	out := make(map[string]exchange.Balance, len(account.Balances))
	for _, b := range account.Balances {
		free, err := money.FromString(b.Free)
		if err != nil {
			continue
		}
		locked, err := money.FromString(b.Locked)
		if err != nil {
			continue
		}
		out[strings.ToUpper(b.Asset)] = exchange.Balance{
			Available: free,
			OnOrders:  locked,
			Total:     free.Add(locked),
		}
	}
	return out, nil
}

func (a *Adapter) ReturnPositiveBalances(ctx context.Context) (map[string]exchange.Balance, error) {
	all, err := a.ReturnBalances(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]exchange.Balance)
	for coin, bal := range all {
		if bal.Total.Cmp(money.Zero) > 0 {
			out[coin] = bal
		}
	}
	return out, nil
}

func (a *Adapter) ReturnBalanceFromMarket(ctx context.Context, p pair.Pair) (exchange.Balance, error) {
	all, err := a.ReturnBalances(ctx)
	if err != nil {
		return exchange.Balance{}, err
	}
	return all[a.BaseOf(p)], nil
}

func (a *Adapter) ReturnSellOrderBook(ctx context.Context, p pair.Pair) ([]exchange.BookLevel, error) {
	depth, err := withTimeout(ctx, a.timeout, func(ctx context.Context) (*binance.DepthResponse, error) {
		return a.client.NewDepthService().Symbol(symbolOf(p)).Do(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("binancespot: order book %s: %w", p, apperrors.ErrTransport)
	}

	levels := make([]exchange.BookLevel, 0, len(depth.Asks))
	for _, ask := range depth.Asks {
		rate, err := money.FromString(ask.Price)
		if err != nil {
			continue
		}
		qty, err := money.FromString(ask.Quantity)
		if err != nil {
			continue
		}
		levels = append(levels, exchange.BookLevel{Rate: rate, Quantity: qty})
	}
	return levels, nil
}

func (a *Adapter) Buy(ctx context.Context, p pair.Pair, rate, amount money.Money) (exchange.PlacedOrder, error) {
	return a.placeOrder(ctx, p, binance.SideTypeBuy, rate, amount)
}

func (a *Adapter) Sell(ctx context.Context, p pair.Pair, rate, amount money.Money) (exchange.PlacedOrder, error) {
	return a.placeOrder(ctx, p, binance.SideTypeSell, rate, amount)
}

func (a *Adapter) placeOrder(ctx context.Context, p pair.Pair, side binance.SideType, rate, amount money.Money) (exchange.PlacedOrder, error) {
	order, err := withTimeout(ctx, a.timeout, func(ctx context.Context) (*binance.CreateOrderResponse, error) {
		return a.client.NewCreateOrderService().
			Symbol(symbolOf(p)).
			Side(side).
			Type(binance.OrderTypeLimit).
			TimeInForce(binance.TimeInForceTypeGTC).
			Quantity(amount.String()).
			Price(rate.String()).
			Do(ctx)
	})
	if err != nil {
		return exchange.PlacedOrder{}, classifyOrderError(err)
	}
	id := exchange.OrderID(symbolOf(p) + ":" + strconv.FormatInt(order.OrderID, 10))
	return exchange.PlacedOrder{OrderNumber: id}, nil
}

func (a *Adapter) IsOpen(ctx context.Context, id exchange.OrderID) (bool, error) {
	symbol, orderID, err := splitOrderID(id)
	if err != nil {
		return false, err
	}
	order, err := withTimeout(ctx, a.timeout, func(ctx context.Context) (*binance.Order, error) {
		return a.client.NewGetOrderService().Symbol(symbol).OrderID(orderID).Do(ctx)
	})
	if err != nil {
		return false, fmt.Errorf("binancespot: order status %s: %w", id, apperrors.ErrTransport)
	}
	switch order.Status {
	case binance.OrderStatusTypeFilled, binance.OrderStatusTypeCanceled, binance.OrderStatusTypeExpired, binance.OrderStatusTypeRejected:
		return false, nil
	default:
		return true, nil
	}
}

func (a *Adapter) CancelOrders(ctx context.Context, ids []exchange.OrderID) error {
	for _, id := range ids {
		symbol, orderID, err := splitOrderID(id)
		if err != nil {
			continue
		}
		_, err = withTimeout(ctx, a.timeout, func(ctx context.Context) (*binance.CancelOrderResponse, error) {
			return a.client.NewCancelOrderService().Symbol(symbol).OrderID(orderID).Do(ctx)
		})
		if err != nil && !strings.Contains(err.Error(), "-2011") {
			return fmt.Errorf("binancespot: cancel %s: %w", id, apperrors.ErrTransport)
		}
	}
	return nil
}

func (a *Adapter) CancelAllOpen(ctx context.Context) error {
	open, err := withTimeout(ctx, a.timeout, func(ctx context.Context) ([]*binance.Order, error) {
		return a.client.NewListOpenOrdersService().Do(ctx)
	})
	if err != nil {
		return fmt.Errorf("binancespot: list open orders: %w", apperrors.ErrTransport)
	}

	ids := make([]exchange.OrderID, len(open))
	for i, o := range open {
		ids[i] = exchange.OrderID(o.Symbol + ":" + strconv.FormatInt(o.OrderID, 10))
	}
	return a.CancelOrders(ctx, ids)
}

// splitOrderID recovers the venue symbol and numeric order id from the
// "<symbol>:<orderID>" composite exchange.OrderID this adapter
// generates in CancelAllOpen and placeOrder.
func splitOrderID(id exchange.OrderID) (string, int64, error) {
	parts := strings.SplitN(string(id), ":", 2)
	if len(parts) != 2 {
		return "", 0, fmt.Errorf("binancespot: malformed order id %q: %w", id, apperrors.ErrInvariantViolation)
	}
	n, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("binancespot: malformed order id %q: %w", id, apperrors.ErrInvariantViolation)
	}
	return parts[0], n, nil
}
