// Command gridtrader is the CLI entrypoint: it loads one account's
// config, builds an exchange adapter and snapshot store, takes the
// account's advisory lock, and runs the requested verbs through
// internal/dispatcher. Meant to be invoked once per poll interval by
// cron or a similar scheduler — the process exits after the requested
// verbs complete, it never loops internally.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/tommy-ca/gridtrader/internal/alert"
	"github.com/tommy-ca/gridtrader/internal/apperrors"
	"github.com/tommy-ca/gridtrader/internal/config"
	"github.com/tommy-ca/gridtrader/internal/dispatcher"
	"github.com/tommy-ca/gridtrader/internal/exchange"
	"github.com/tommy-ca/gridtrader/internal/exchange/binancespot"
	"github.com/tommy-ca/gridtrader/internal/exchange/mockexchange"
	"github.com/tommy-ca/gridtrader/internal/logging"
	"github.com/tommy-ca/gridtrader/internal/metrics"
	"github.com/tommy-ca/gridtrader/internal/store"
	"github.com/tommy-ca/gridtrader/pkg/cli"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("gridtrader", flag.ContinueOnError)
	var (
		exchangeName = fs.String("exchange", "", "venue name, e.g. binance (required)")
		account      = fs.String("account", "", "account name, matches config/<exchange>/<account>.ini (required)")
		configDir    = fs.String("config-dir", "config", "root directory holding <exchange>/<account>.ini")
		dataDir      = fs.String("data-dir", "data", "root directory holding <account>.db and <account>.lock")
		metricsDir   = fs.String("metrics-dir", "", "directory to drop a textfile-collector metrics file in; disabled if empty")
		slackWebhook = fs.String("slack-webhook", "", "Slack incoming webhook URL for admin alerts; disabled if empty")
		useMock      = fs.Bool("mock", false, "use the in-memory exchange fake instead of a live venue adapter")

		cancelAll   = fs.Bool("cancel-all", false, "cancel every open order")
		initGrid    = fs.Bool("init", false, "cancel, rebuild and issue a fresh grid")
		monitor     = fs.Bool("monitor", false, "restore the last snapshot, poll once, persist")
		balances    = fs.Bool("balances", false, "log positive balances and a suggested config body")
		setBalances = fs.Bool("set-balances", false, "write live balances into config, then init")
		statusOf    = fs.String("status-of", "", "log whether the given order id is still open")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *exchangeName == "" || *account == "" {
		fmt.Fprintln(os.Stderr, "gridtrader: -exchange and -account are required")
		return 2
	}
	if *statusOf != "" {
		if err := cli.ValidateInput(*statusOf); err != nil {
			fmt.Fprintln(os.Stderr, "gridtrader:", err)
			return 2
		}
	}

	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		fmt.Fprintln(os.Stderr, "gridtrader:", err)
		return 1
	}

	lock, err := store.Acquire(filepath.Join(*dataDir, *account+".lock"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "gridtrader:", err)
		return 1
	}
	defer lock.Release()

	configPath := filepath.Join(*configDir, *exchangeName, *account+".ini")
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "gridtrader:", err)
		return 1
	}
	cfg.Exchange = *exchangeName
	cfg.Account = *account

	logPath := filepath.Join(*dataDir, *account+".log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintln(os.Stderr, "gridtrader:", err)
		return 1
	}
	defer logFile.Close()

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logging.InfoLevel
	}
	logger := logging.New(level, io.MultiWriter(logFile, os.Stdout)).WithField("account", *account)

	alertMgr := alert.NewManager(logger)
	alertMgr.AddChannel(alert.NewLogChannel(logger))
	if *slackWebhook != "" {
		alertMgr.AddChannel(alert.NewSlackChannel(*slackWebhook))
	}
	defer alertMgr.Stop()

	rec := metrics.NewRecorder(*account)
	if *metricsDir != "" {
		defer func() {
			path := filepath.Join(*metricsDir, "gridtrader_"+*account+".prom")
			if err := rec.WriteTextfile(path); err != nil {
				logger.Warn("metrics: write textfile failed", "error", err)
			}
		}()
	}

	var port exchange.Port
	if *useMock {
		port = mockexchange.New()
	} else {
		creds, err := config.LoadCredentials(configPath, *exchangeName)
		if err != nil {
			fmt.Fprintln(os.Stderr, "gridtrader:", err)
			return 1
		}
		port = binancespot.New(creds["apiKey"], creds["secretKey"], 10*time.Second)
	}

	db, err := store.Open(filepath.Join(*dataDir, *account+".db"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "gridtrader:", err)
		return 1
	}
	defer db.Close()

	d := &dispatcher.Dispatcher{
		Account:    *account,
		ConfigPath: configPath,
		Config:     cfg,
		Exchange:   port,
		Store:      db,
		Logger:     logger,
		Metrics:    rec,
	}
	req := dispatcher.Request{
		CancelAll:   *cancelAll,
		Init:        *initGrid,
		Monitor:     *monitor,
		Balances:    *balances,
		SetBalances: *setBalances,
		StatusOf:    *statusOf,
	}

	ctx := context.Background()
	logger.Info("session starting", "exchange", *exchangeName, "verbs", verbLabel(req), "time", time.Now().Format(time.RFC1123Z))
	if err := d.Run(ctx, req); err != nil {
		stack := debug.Stack()
		logger.Error("invocation failed", "error", err, "stage", apperrors.Stage(err), "stack", string(stack))
		rec.InvocationError.WithLabelValues(verbLabel(req)).Inc()
		alertMgr.NotifyAndWait(ctx, alert.Payload{
			Level:   alert.Critical,
			Title:   fmt.Sprintf("gridtrader %s invocation failed", *account),
			Account: *account,
			Verb:    verbLabel(req),
			Stage:   apperrors.Stage(err),
			Message: fmt.Sprintf("%s\n\n%s", err.Error(), stack),
		})
		return 1
	}
	logger.Info("session finished", "time", time.Now().Format(time.RFC1123Z))
	return 0
}

func verbLabel(req dispatcher.Request) string {
	switch {
	case req.Init:
		return "init"
	case req.Monitor:
		return "monitor"
	case req.SetBalances:
		return "set-balances"
	case req.Balances:
		return "balances"
	case req.CancelAll:
		return "cancel-all"
	case req.StatusOf != "":
		return "status-of"
	default:
		return "none"
	}
}
