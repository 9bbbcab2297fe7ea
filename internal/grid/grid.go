// Package grid implements one ladder (ID'd rungs of resting limit
// orders) on one side of one pair: pure geometry derived from config
// and a market price, plus the liveness bookkeeping behind "deepest
// fill" detection.
//
// A single Grid value carries a Side tag rather than splitting into a
// SellGrid/BuyGrid class hierarchy — the only per-side behavior is the
// sign of the percent offset, expressed as signedPercent(side, magnitude).
package grid

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/tommy-ca/gridtrader/internal/apperrors"
	"github.com/tommy-ca/gridtrader/internal/exchange"
	"github.com/tommy-ca/gridtrader/internal/logging"
	"github.com/tommy-ca/gridtrader/internal/metrics"
	"github.com/tommy-ca/gridtrader/internal/money"
	"github.com/tommy-ca/gridtrader/internal/pair"
)

// Side identifies which side of the market a Grid rests on.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Sell {
		return "SELL"
	}
	return "BUY"
}

// NoActivity is returned by TradeActivity when every tracked order is
// still open.
const NoActivity = -1

// Parameters is one side's grid parameters, read from the config
// section `sellgrid` or `buygrid`. MajorLevel and Increments
// are given as positive percent magnitudes regardless of side; Grid
// construction applies the side's sign. ProfitTarget is only
// meaningful on the buy side.
type Parameters struct {
	MajorLevel     money.Money
	NumberOfOrders int
	Increments     money.Money
	Size           money.Money
	ProfitTarget   money.Money
}

// Grid is a ladder for one side of one pair.
type Grid struct {
	Side          Side
	Pair          pair.Pair
	StartingPrice money.Money
	Rungs         []money.Money
	RungSize      money.Money
	OrderIDs      []exchange.OrderID
}

// signedPercent applies the side's direction to a positive percent
// magnitude: sell rungs move up from the market, buy rungs move down.
func signedPercent(side Side, magnitude money.Money) money.Money {
	if side == Buy {
		return magnitude.Neg()
	}
	return magnitude
}

// Build derives grid geometry from config and a live market price. It
// does not place any orders.
func Build(p pair.Pair, side Side, currentMarketPrice money.Money, params Parameters, initialCorePosition money.Money) (*Grid, error) {
	if params.NumberOfOrders <= 0 {
		return nil, fmt.Errorf("grid: numberOfOrders must be positive: %w", apperrors.ErrInvalidConfig)
	}

	startingPrice := money.ApplyPercent(currentMarketPrice, signedPercent(side, params.MajorLevel))

	rungs := make([]money.Money, params.NumberOfOrders)
	rungs[0] = startingPrice
	for i := 1; i < params.NumberOfOrders; i++ {
		rungs[i] = money.ApplyPercent(rungs[i-1], signedPercent(side, params.Increments))
	}

	sizeRatio := money.PercentToRatio(params.Size)
	totalSize := initialCorePosition.Mul(sizeRatio)
	rungSize := totalSize.Div(money.FromInt(params.NumberOfOrders))

	return &Grid{
		Side:          side,
		Pair:          p,
		StartingPrice: startingPrice,
		Rungs:         rungs,
		RungSize:      rungSize,
		OrderIDs:      nil,
	}, nil
}

// PlaceOrders places a limit order for each rung that does not yet
// have one, in nearest-to-market order. If a single
// placement fails with ErrNotEnoughCoin or ErrDustTrade, the error is
// logged and the ladder is left partial: Rungs is trimmed to the
// rungs that actually got an order, so Rungs and OrderIDs stay the
// same length (len(OrderIDs) <= len(Rungs) holds trivially, and every
// remaining rung is a real outstanding order). Any other error
// propagates; orders placed before the failing rung stay recorded in
// OrderIDs.
//
// rec may be nil, in which case placements go unrecorded — tests that
// build a Grid directly, without a Dispatcher behind them, do not owe
// the caller a Recorder.
func (g *Grid) PlaceOrders(ctx context.Context, ex exchange.Port, logger logging.Logger, rec *metrics.Recorder) error {
	for i := len(g.OrderIDs); i < len(g.Rungs); i++ {
		rung := g.Rungs[i]
		clientTag := uuid.NewString()

		var placed exchange.PlacedOrder
		var err error
		if g.Side == Sell {
			placed, err = ex.Sell(ctx, g.Pair, rung, g.RungSize)
		} else {
			placed, err = ex.Buy(ctx, g.Pair, rung, g.RungSize)
		}

		if err != nil {
			if apperrors.Recoverable(err) {
				logger.Warn("rung placement skipped",
					"pair", g.Pair.String(), "side", g.Side.String(),
					"rung_index", i, "rate", rung.String(), "client_tag", clientTag, "error", err)
				if rec != nil {
					rec.DustSkips.WithLabelValues(g.Pair.String(), g.Side.String()).Inc()
				}
				g.Rungs = g.Rungs[:i]
				return nil
			}
			return fmt.Errorf("grid: place order at rung %d: %w", i, err)
		}

		if rec != nil {
			rec.OrdersPlaced.WithLabelValues(g.Pair.String(), g.Side.String()).Inc()
		}
		g.OrderIDs = append(g.OrderIDs, placed.OrderNumber)
	}
	return nil
}

// TradeActivity inspects OrderIDs from the deepest rung toward the
// nearest and returns the first index whose order is not open. It
// returns NoActivity if every order remains open.
func (g *Grid) TradeActivity(ctx context.Context, ex exchange.Port) (int, error) {
	for i := len(g.OrderIDs) - 1; i >= 0; i-- {
		open, err := ex.IsOpen(ctx, g.OrderIDs[i])
		if err != nil {
			return NoActivity, fmt.Errorf("grid: check order open at rung %d: %w", i, err)
		}
		if !open {
			return i, nil
		}
	}
	return NoActivity, nil
}

// PurgeClosedTrades retains only entries with index > deepest in both
// Rungs and OrderIDs, so rung[0] becomes the shallowest still-open
// rung.
func (g *Grid) PurgeClosedTrades(deepest int) {
	if deepest < 0 {
		return
	}
	keep := deepest + 1
	if keep >= len(g.Rungs) {
		g.Rungs = nil
		g.OrderIDs = nil
		return
	}
	g.Rungs = append([]money.Money(nil), g.Rungs[keep:]...)
	if keep < len(g.OrderIDs) {
		g.OrderIDs = append([]exchange.OrderID(nil), g.OrderIDs[keep:]...)
	} else {
		g.OrderIDs = nil
	}
}

// Empty reports whether the ladder has no tracked outstanding orders.
func (g *Grid) Empty() bool {
	return len(g.OrderIDs) == 0
}

// CancelAll cancels every outstanding order on this ladder.
func (g *Grid) CancelAll(ctx context.Context, ex exchange.Port) error {
	if len(g.OrderIDs) == 0 {
		return nil
	}
	return ex.CancelOrders(ctx, g.OrderIDs)
}
