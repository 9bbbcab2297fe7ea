// Package alert fans an admin notification out to every configured
// channel concurrently, using a bounded alitto/pond worker pool so a
// slow or hanging webhook never blocks the invocation that triggered
// it. This is the only place in the module that runs anything off the
// calling goroutine — the core (money/grid/trader) stays single
// threaded and never calls into this package; cmd/gridtrader calls
// Manager.NotifyAndWait when an invocation fails.
package alert

import (
	"context"
	"sync"
	"time"

	"github.com/alitto/pond"
	"github.com/tommy-ca/gridtrader/internal/logging"
)

// Level is the severity of a Payload.
type Level string

const (
	Info     Level = "INFO"
	Warning  Level = "WARNING"
	Error    Level = "ERROR"
	Critical Level = "CRITICAL"
)

// Payload is one admin notification.
type Payload struct {
	Level Level
	Title string
	// Account and Verb identify the invocation raising the alert,
	// e.g. Account "binance/desk-1", Verb "monitor".
	Account string
	Verb    string
	// Stage is the failing component, extracted from an
	// apperrors.Fatal-wrapped error via apperrors.Stage — e.g.
	// "poll: take-profit sell BTC-ETH" — so a channel can surface
	// which pair and operation failed without parsing Message itself.
	Stage     string
	Message   string
	Timestamp time.Time
	Fields    map[string]string
}

// Channel delivers a Payload to one destination (Slack, Telegram, ...).
type Channel interface {
	Send(ctx context.Context, p Payload) error
	Name() string
}

// Manager fans a Notify call out to every registered Channel through a
// bounded worker pool. Delivery failures are logged, never returned —
// an alert channel being down must not fail the trading invocation
// that raised the alert.
type Manager struct {
	mu       sync.RWMutex
	channels []Channel
	pool     *pond.WorkerPool
	logger   logging.Logger
	timeout  time.Duration
}

// NewManager builds a Manager with a small bounded pool: alert fan-out
// is bursty and low-volume (one invocation raises at most a handful of
// notifications), so a couple of workers is plenty.
func NewManager(logger logging.Logger) *Manager {
	pool := pond.New(4, 64, pond.MinWorkers(1), pond.IdleTimeout(30*time.Second))
	return &Manager{
		pool:    pool,
		logger:  logger.WithField("component", "alert"),
		timeout: 10 * time.Second,
	}
}

// AddChannel registers ch to receive every subsequent Notify call.
func (m *Manager) AddChannel(ch Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels = append(m.channels, ch)
	m.logger.Info("alert channel registered", "name", ch.Name())
}

// Notify submits p to every registered channel and returns
// immediately; delivery happens on the pool. Callers that must block
// until every channel has attempted delivery should use NotifyAndWait.
func (m *Manager) Notify(ctx context.Context, p Payload) {
	m.dispatch(ctx, p, false)
}

// NotifyAndWait behaves like Notify but blocks until every channel has
// attempted delivery, for callers about to exit the process (a fatal
// top-level error) who cannot rely on the pool outliving them.
func (m *Manager) NotifyAndWait(ctx context.Context, p Payload) {
	m.dispatch(ctx, p, true)
}

func (m *Manager) dispatch(ctx context.Context, p Payload, wait bool) {
	if p.Timestamp.IsZero() {
		p.Timestamp = time.Now()
	}
	m.logger.Info("alert triggered", "title", p.Title, "level", string(p.Level))

	m.mu.RLock()
	channels := append([]Channel(nil), m.channels...)
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for _, ch := range channels {
		ch := ch
		wg.Add(1)
		m.pool.Submit(func() {
			defer wg.Done()
			sendCtx, cancel := context.WithTimeout(ctx, m.timeout)
			defer cancel()
			if err := ch.Send(sendCtx, p); err != nil {
				m.logger.Error("alert delivery failed", "channel", ch.Name(), "error", err)
			}
		})
	}
	if wait {
		wg.Wait()
	}
}

// Stop drains the pool, waiting for in-flight deliveries to finish.
func (m *Manager) Stop() {
	m.pool.StopAndWait()
}
