// Package dispatcher wires the six CLI verbs to the trader state
// machine and the snapshot store: cancel-all, init, monitor, balances,
// set-balances and status-of. Multiple verbs may be requested for one
// invocation; they always run in the fixed order below regardless of
// flag order on the command line.
package dispatcher

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tommy-ca/gridtrader/internal/apperrors"
	"github.com/tommy-ca/gridtrader/internal/config"
	"github.com/tommy-ca/gridtrader/internal/exchange"
	"github.com/tommy-ca/gridtrader/internal/logging"
	"github.com/tommy-ca/gridtrader/internal/metrics"
	"github.com/tommy-ca/gridtrader/internal/money"
	"github.com/tommy-ca/gridtrader/internal/store"
	"github.com/tommy-ca/gridtrader/internal/trader"
	"github.com/tommy-ca/gridtrader/pkg/cli"
)

// Request is the parsed set of verbs for one invocation, plus the
// argument status-of needs.
type Request struct {
	CancelAll   bool
	Init        bool
	Monitor     bool
	Balances    bool
	SetBalances bool
	StatusOf    string // order id; empty means the verb was not requested
}

// Dispatcher holds everything a verb needs: the account's config, the
// live exchange port, the snapshot store and a logger. ConfigPath is
// needed separately from Config because set-balances rewrites the file
// on disk and then reloads it.
type Dispatcher struct {
	Account    string
	ConfigPath string
	Config     *config.Config
	Exchange   exchange.Port
	Store      *store.SQLiteStore
	Logger     logging.Logger

	// Metrics is the invocation's recorder. Nil disables recording,
	// which every verb tolerates.
	Metrics *metrics.Recorder
}

// Run executes every requested verb in Request in the fixed order:
// cancel-all, init, monitor, balances, set-balances, status-of.
func (d *Dispatcher) Run(ctx context.Context, req Request) error {
	if req.CancelAll {
		if err := d.cancelAll(ctx); err != nil {
			return err
		}
	}
	if req.Init {
		if err := d.init(ctx); err != nil {
			return err
		}
	}
	if req.Monitor {
		if err := d.monitor(ctx); err != nil {
			return err
		}
	}
	if req.Balances {
		if err := d.balances(ctx); err != nil {
			return err
		}
	}
	if req.SetBalances {
		if err := d.setBalances(ctx); err != nil {
			return err
		}
	}
	if req.StatusOf != "" {
		if err := d.statusOf(ctx, req.StatusOf); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) cancelAll(ctx context.Context) error {
	d.Logger.Info("cancel-all: cancelling every open order")
	if err := d.Exchange.CancelAllOpen(ctx); err != nil {
		return apperrors.Fatal("cancel-all", err)
	}
	return nil
}

// init cancels every open order, builds a fresh Trader from the
// current market and config, issues every rung, and persists the
// result.
func (d *Dispatcher) init(ctx context.Context) error {
	if err := d.cancelAll(ctx); err != nil {
		return err
	}

	tr := trader.New(d.Account, d.Config, d.Exchange, d.Logger)
	tr.SetMetrics(d.Metrics)
	if err := tr.Build(ctx); err != nil {
		return err
	}
	if err := tr.IssueAll(ctx); err != nil {
		return err
	}
	return d.persist(ctx, tr)
}

// monitor restores the last snapshot, runs one poll, and persists the
// result. A missing snapshot is fatal: monitor before init is a
// misconfiguration, not a first-run signal.
func (d *Dispatcher) monitor(ctx context.Context) error {
	snap, err := d.Store.Load(ctx, d.Account)
	if err != nil {
		return apperrors.Fatal("monitor: load snapshot", err)
	}
	tr := trader.New(d.Account, d.Config, d.Exchange, d.Logger)
	snap.ApplyTo(tr)
	tr.AttachExchange(d.Exchange, d.Logger)
	tr.SetMetrics(d.Metrics)

	start := time.Now()
	err = tr.Poll(ctx)
	if d.Metrics != nil {
		d.Metrics.PollDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return err
	}
	return d.persist(ctx, tr)
}

func (d *Dispatcher) persist(ctx context.Context, tr *trader.Trader) error {
	snap := store.FromTrader(tr)
	if err := d.Store.Save(ctx, snap); err != nil {
		return apperrors.Fatal("persist snapshot", err)
	}
	return nil
}

// balances logs every positive balance and a suggested [pairs] /
// [initialcorepositions] config body an operator can paste in before
// running init for a new account.
func (d *Dispatcher) balances(ctx context.Context) error {
	balances, err := d.Exchange.ReturnPositiveBalances(ctx)
	if err != nil {
		return apperrors.Fatal("balances", err)
	}

	coins := make([]string, 0, len(balances))
	for coin := range balances {
		coins = append(coins, coin)
	}
	sort.Strings(coins)

	d.Logger.Info("balances: positive balances", "coins", coins)
	for _, coin := range coins {
		bal := balances[coin]
		d.Logger.Info("balance", "coin", coin, "total", bal.Total.String(), "available", bal.Available.String())
	}

	suggestedPairs := make([]string, 0, len(coins))
	for _, coin := range coins {
		if coin != "BTC" {
			suggestedPairs = append(suggestedPairs, "BTC-"+coin)
		}
	}
	d.Logger.Info("suggested [pairs]", "line", "pairs = "+strings.Join(suggestedPairs, " "))

	d.Logger.Info("suggested [initialcorepositions]")
	for _, coin := range coins {
		d.Logger.Info("suggested entry", "line", fmt.Sprintf("%s = %s", coin, balances[coin].Total.String()))
	}
	return nil
}

// setBalances overwrites [initialcorepositions] in the config file
// from live balances, reloads it, then runs the full init sequence.
func (d *Dispatcher) setBalances(ctx context.Context) error {
	balances, err := d.Exchange.ReturnPositiveBalances(ctx)
	if err != nil {
		return apperrors.Fatal("set-balances: fetch balances", err)
	}

	totals := make(map[string]money.Money, len(balances))
	for coin, bal := range balances {
		totals[coin] = bal.Total
	}

	if err := config.WriteCorePositions(d.ConfigPath, totals); err != nil {
		return apperrors.Fatal("set-balances: write config", err)
	}

	reloaded, err := config.Load(d.ConfigPath)
	if err != nil {
		return apperrors.Fatal("set-balances: reload config", err)
	}
	d.Config = reloaded

	return d.init(ctx)
}

func (d *Dispatcher) statusOf(ctx context.Context, id string) error {
	if err := cli.ValidateInput(id); err != nil {
		return apperrors.Fatal("status-of", err)
	}
	open, err := d.Exchange.IsOpen(ctx, exchange.OrderID(id))
	if err != nil {
		return apperrors.Fatal("status-of", err)
	}
	status := "CLOSED"
	if open {
		status = "OPEN"
	}
	d.Logger.Info("status-of", "order_id", id, "status", status)
	return nil
}
