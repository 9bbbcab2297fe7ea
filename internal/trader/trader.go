// Package trader implements the grid state machine: build, issueAll
// and poll, the heart of the system. It owns a set of
// (pair -> {buy, sell}) ladders and mutates them in reaction to fills,
// processing the buy side before the sell side on every pair.
//
// Grids are keyed by pair into a concrete PairGrids record rather than
// a dynamic string-keyed dictionary, so an unconfigured pair or side
// is a missing map entry, not an invalid string key.
package trader

import (
	"context"
	"fmt"

	"github.com/tommy-ca/gridtrader/internal/apperrors"
	"github.com/tommy-ca/gridtrader/internal/config"
	"github.com/tommy-ca/gridtrader/internal/exchange"
	"github.com/tommy-ca/gridtrader/internal/grid"
	"github.com/tommy-ca/gridtrader/internal/logging"
	"github.com/tommy-ca/gridtrader/internal/metrics"
	"github.com/tommy-ca/gridtrader/internal/money"
	"github.com/tommy-ca/gridtrader/internal/pair"
)

// PairGrids is one pair's two ladders.
type PairGrids struct {
	Sell *grid.Grid
	Buy  *grid.Grid
}

// MarketSnapshot is the ticker observed at issuance time, kept for
// diagnostics only.
type MarketSnapshot struct {
	LowestAsk  money.Money
	HighestBid money.Money
}

// Trader owns every pair's ladders for one account and runs the
// build/issueAll/poll state machine against an exchange.Port.
type Trader struct {
	Account string
	Config  *config.Config

	Grids  map[string]PairGrids
	Market map[string]MarketSnapshot

	// IssuedTakeProfits records every take-profit sell already placed
	// from a buy fill, keyed by takeProfitKey(pair, buyRung); Poll skips
	// a take-profit whose key is already present. Entries are never
	// removed. The ledger is persisted only with the grids, in the
	// snapshot saved after a successful run: a crash after a take-profit
	// is placed and before that save loses the entry together with the
	// purge, and the next poll places that take-profit again.
	IssuedTakeProfits map[string]exchange.OrderID

	// Metrics is the invocation's recorder, or nil when no metrics
	// wiring is available (most tests). SetMetrics attaches one to a
	// Trader restored from a snapshot, which carries neither.
	Metrics *metrics.Recorder

	exchange exchange.Port
	logger   logging.Logger
}

// New constructs a Trader for account, to be driven by ex and logging
// through logger. cfg supplies pairs, grid parameters and initial core
// positions.
func New(account string, cfg *config.Config, ex exchange.Port, logger logging.Logger) *Trader {
	return &Trader{
		Account:           account,
		Config:            cfg,
		Grids:             make(map[string]PairGrids),
		Market:            make(map[string]MarketSnapshot),
		IssuedTakeProfits: make(map[string]exchange.OrderID),
		exchange:          ex,
		logger:            logger.WithField("account", account),
	}
}

// AttachExchange re-attaches a live exchange port and logger to a
// Trader restored from a snapshot, which carries neither.
func (t *Trader) AttachExchange(ex exchange.Port, logger logging.Logger) {
	t.exchange = ex
	t.logger = logger.WithField("account", t.Account)
}

// SetMetrics attaches an invocation's Recorder so the state machine
// can report orders placed, take-profits issued and grid rebuilds as
// it mutates ladders. A nil rec is fine and simply disables recording.
func (t *Trader) SetMetrics(rec *metrics.Recorder) {
	t.Metrics = rec
}

func takeProfitKey(p pair.Pair, buyRung money.Money) string {
	return p.String() + "|" + buyRung.String()
}

// Build initialises Grids for every configured pair from a fresh
// ticker. No orders are placed.
func (t *Trader) Build(ctx context.Context) error {
	for _, p := range t.Config.Pairs {
		ticker, err := t.exchange.TickerFor(ctx, p)
		if err != nil {
			return apperrors.Fatal("build: ticker for "+p.String(), err)
		}
		midpoint := ticker.Midpoint()

		core, ok := t.Config.InitialCorePositions[t.exchange.BaseOf(p)]
		if !ok {
			return fmt.Errorf("build: no initialcoreposition for %s: %w", t.exchange.BaseOf(p), apperrors.ErrInvalidConfig)
		}

		sell, err := grid.Build(p, grid.Sell, midpoint, t.Config.SellGrid, core)
		if err != nil {
			return apperrors.Fatal("build: sell grid for "+p.String(), err)
		}
		buy, err := grid.Build(p, grid.Buy, midpoint, t.Config.BuyGrid, core)
		if err != nil {
			return apperrors.Fatal("build: buy grid for "+p.String(), err)
		}

		t.Grids[p.String()] = PairGrids{Sell: sell, Buy: buy}
		t.Market[p.String()] = MarketSnapshot{LowestAsk: ticker.LowestAsk, HighestBid: ticker.HighestBid}
	}
	return nil
}

// IssueAll places orders for every pair and side. Recoverable
// per-rung errors are absorbed inside grid.PlaceOrders and logged;
// any other exchange error aborts IssueAll and propagates.
func (t *Trader) IssueAll(ctx context.Context) error {
	for key, pg := range t.Grids {
		if err := pg.Buy.PlaceOrders(ctx, t.exchange, t.logger.WithField("pair", key).WithField("side", "BUY"), t.Metrics); err != nil {
			return apperrors.Fatal("issueAll: buy "+key, err)
		}
		if err := pg.Sell.PlaceOrders(ctx, t.exchange, t.logger.WithField("pair", key).WithField("side", "SELL"), t.Metrics); err != nil {
			return apperrors.Fatal("issueAll: sell "+key, err)
		}
	}
	return nil
}

// Poll runs one iteration of the state machine across every pair,
// buy side before sell side per pair. Order across pairs is
// unspecified.
func (t *Trader) Poll(ctx context.Context) error {
	for key, pg := range t.Grids {
		p, err := pair.Parse(key)
		if err != nil {
			return apperrors.Fatal("poll: invariant", fmt.Errorf("%w: bad grid key %q", apperrors.ErrInvariantViolation, key))
		}

		if err := t.pollBuy(ctx, p, &pg); err != nil {
			return err
		}
		if err := t.pollSell(ctx, p, &pg); err != nil {
			return err
		}
		t.Grids[key] = pg
	}
	return nil
}

func (t *Trader) pollBuy(ctx context.Context, p pair.Pair, pg *PairGrids) error {
	buy := pg.Buy
	logger := t.logger.WithField("pair", p.String()).WithField("side", "BUY")

	d, err := buy.TradeActivity(ctx, t.exchange)
	if err != nil {
		return apperrors.Fatal("poll: buy activity "+p.String(), err)
	}
	if d == grid.NoActivity {
		return nil
	}

	for i := d; i >= 0; i-- {
		fillRate := buy.Rungs[i]
		if t.Config.BuyGrid.ProfitTarget.Cmp(money.Zero) <= 0 {
			// Accumulating position: no take-profit is issued.
			continue
		}

		key := takeProfitKey(p, fillRate)
		if _, already := t.IssuedTakeProfits[key]; already {
			logger.Debug("take-profit already issued, skipping re-issue", "fill_rate", fillRate.String())
			continue
		}

		sellRate := money.ApplyPercent(fillRate, t.Config.BuyGrid.ProfitTarget)
		placed, err := t.exchange.Sell(ctx, p, sellRate, buy.RungSize)
		if err != nil {
			if apperrors.Recoverable(err) {
				logger.Warn("take-profit sell skipped", "fill_rate", fillRate.String(), "sell_rate", sellRate.String(), "error", err)
				continue
			}
			return apperrors.Fatal("poll: take-profit sell "+p.String(), err)
		}
		t.IssuedTakeProfits[key] = placed.OrderNumber
		if t.Metrics != nil {
			t.Metrics.TakeProfits.WithLabelValues(p.String()).Inc()
		}
		logger.Info("take-profit sell placed", "fill_rate", fillRate.String(), "sell_rate", sellRate.String())
	}

	buy.PurgeClosedTrades(d)

	if buy.Empty() {
		ticker, err := t.exchange.TickerFor(ctx, p)
		if err != nil {
			return apperrors.Fatal("poll: rebuild buy ticker "+p.String(), err)
		}
		core := t.Config.InitialCorePositions[t.exchange.BaseOf(p)]
		newBuy, err := grid.Build(p, grid.Buy, ticker.HighestBid, t.Config.BuyGrid, core)
		if err != nil {
			return apperrors.Fatal("poll: rebuild buy grid "+p.String(), err)
		}
		if err := newBuy.PlaceOrders(ctx, t.exchange, logger, t.Metrics); err != nil {
			return apperrors.Fatal("poll: place rebuilt buy grid "+p.String(), err)
		}
		if t.Metrics != nil {
			t.Metrics.GridRebuilds.WithLabelValues(p.String(), grid.Buy.String(), "exhausted").Inc()
		}
		pg.Buy = newBuy
	}
	return nil
}

func (t *Trader) pollSell(ctx context.Context, p pair.Pair, pg *PairGrids) error {
	sell := pg.Sell
	logger := t.logger.WithField("pair", p.String()).WithField("side", "SELL")

	d, err := sell.TradeActivity(ctx, t.exchange)
	if err != nil {
		return apperrors.Fatal("poll: sell activity "+p.String(), err)
	}

	if d != grid.NoActivity {
		deepestFilledRate := sell.Rungs[d]
		sell.PurgeClosedTrades(d)

		if err := pg.Buy.CancelAll(ctx, t.exchange); err != nil {
			return apperrors.Fatal("poll: cancel buy orders on elevate "+p.String(), err)
		}

		core := t.Config.InitialCorePositions[t.exchange.BaseOf(p)]
		newBuy, err := grid.Build(p, grid.Buy, deepestFilledRate, t.Config.BuyGrid, core)
		if err != nil {
			return apperrors.Fatal("poll: elevate buy grid "+p.String(), err)
		}
		if err := newBuy.PlaceOrders(ctx, t.exchange, logger.WithField("reason", "elevate"), t.Metrics); err != nil {
			return apperrors.Fatal("poll: place elevated buy grid "+p.String(), err)
		}
		if t.Metrics != nil {
			t.Metrics.GridRebuilds.WithLabelValues(p.String(), grid.Buy.String(), "elevate").Inc()
		}
		pg.Buy = newBuy
	}

	if sell.Empty() {
		ticker, err := t.exchange.TickerFor(ctx, p)
		if err != nil {
			return apperrors.Fatal("poll: rebuild sell ticker "+p.String(), err)
		}
		core := t.Config.InitialCorePositions[t.exchange.BaseOf(p)]
		newSell, err := grid.Build(p, grid.Sell, ticker.LowestAsk, t.Config.SellGrid, core)
		if err != nil {
			return apperrors.Fatal("poll: rebuild sell grid "+p.String(), err)
		}
		if err := newSell.PlaceOrders(ctx, t.exchange, logger, t.Metrics); err != nil {
			return apperrors.Fatal("poll: place rebuilt sell grid "+p.String(), err)
		}
		if t.Metrics != nil {
			t.Metrics.GridRebuilds.WithLabelValues(p.String(), grid.Sell.String(), "exhausted").Inc()
		}
		pg.Sell = newSell
	}
	return nil
}

// CancelAllOpen cancels every open order on the account through the
// Trader's exchange port. The dispatcher's cancel-all and init verbs
// call the exchange port directly rather than this method.
func (t *Trader) CancelAllOpen(ctx context.Context) error {
	return t.exchange.CancelAllOpen(ctx)
}
