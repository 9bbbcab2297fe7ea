package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tommy-ca/gridtrader/internal/apperrors"
	"github.com/tommy-ca/gridtrader/internal/config"
	"github.com/tommy-ca/gridtrader/internal/exchange"
	"github.com/tommy-ca/gridtrader/internal/exchange/mockexchange"
	"github.com/tommy-ca/gridtrader/internal/grid"
	"github.com/tommy-ca/gridtrader/internal/logging"
	"github.com/tommy-ca/gridtrader/internal/money"
	"github.com/tommy-ca/gridtrader/internal/pair"
	"github.com/tommy-ca/gridtrader/internal/trader"
)

func buildTrader(t *testing.T) *trader.Trader {
	t.Helper()
	p := pair.Pair{Base: "BTC", Quote: "ETH"}
	ex := mockexchange.New()
	core, err := money.FromString("300")
	require.NoError(t, err)
	ex.SetTicker(p, exchange.Ticker{LowestAsk: core, HighestBid: core})

	cfg := &config.Config{
		Account:              "acct",
		Pairs:                []pair.Pair{p},
		InitialCorePositions: map[string]money.Money{"ETH": core},
		SellGrid: grid.Parameters{
			MajorLevel: money.Percent(1), NumberOfOrders: 2, Increments: money.Percent(1), Size: money.Percent(30),
		},
		BuyGrid: grid.Parameters{
			MajorLevel: money.Percent(1), NumberOfOrders: 2, Increments: money.Percent(1), Size: money.Percent(30),
			ProfitTarget: money.Percent(2),
		},
	}

	tr := trader.New("acct", cfg, ex, logging.Nop{})
	require.NoError(t, tr.Build(context.Background()))
	require.NoError(t, tr.IssueAll(context.Background()))
	return tr
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "acct.db")
	s, err := Open(dbPath)
	require.NoError(t, err)
	defer s.Close()

	tr := buildTrader(t)
	snap := FromTrader(tr)

	require.NoError(t, s.Save(context.Background(), snap))

	loaded, err := s.Load(context.Background(), "acct")
	require.NoError(t, err)
	assert.Equal(t, snap.Account, loaded.Account)
	assert.Equal(t, snap.SchemaVersion, loaded.SchemaVersion)
	require.Len(t, loaded.Grids, 1)

	restored := trader.New("acct", nil, nil, logging.Nop{})
	loaded.ApplyTo(restored)
	for key, pg := range tr.Grids {
		other := restored.Grids[key]
		assert.Equal(t, len(pg.Buy.Rungs), len(other.Buy.Rungs))
		for i := range pg.Buy.Rungs {
			assert.Zero(t, pg.Buy.Rungs[i].Cmp(other.Buy.Rungs[i]))
		}
		assert.Equal(t, pg.Sell.OrderIDs, other.Sell.OrderIDs)
	}
}

func TestLoad_MissingSnapshotIsErrSnapshotMissing(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "acct.db")
	s, err := Open(dbPath)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Load(context.Background(), "nobody")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrSnapshotMissing)
}

func TestLoad_CorruptedChecksumIsInvariantViolation(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "acct.db")
	s, err := Open(dbPath)
	require.NoError(t, err)
	defer s.Close()

	snap := FromTrader(buildTrader(t))
	require.NoError(t, s.Save(context.Background(), snap))

	raw, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer raw.Close()
	_, err = raw.Exec(`UPDATE trader_state SET data = ? WHERE account = ?`, []byte(`{"account":"tampered"}`), "acct")
	require.NoError(t, err)

	_, err = s.Load(context.Background(), "acct")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvariantViolation)
}

func TestExists(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "acct.db")
	s, err := Open(dbPath)
	require.NoError(t, err)
	defer s.Close()

	ok, err := s.Exists(context.Background(), "acct")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Save(context.Background(), FromTrader(buildTrader(t))))
	ok, err = s.Exists(context.Background(), "acct")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAccountLock_SecondAcquireFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "acct.lock")
	l1, err := Acquire(path)
	require.NoError(t, err)
	defer l1.Release()

	_, err = Acquire(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrLocked)
}

func TestAccountLock_ReacquireAfterRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "acct.lock")
	l1, err := Acquire(path)
	require.NoError(t, err)
	require.NoError(t, l1.Release())

	l2, err := Acquire(path)
	require.NoError(t, err)
	require.NoError(t, l2.Release())
}
