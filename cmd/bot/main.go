package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"CryptoPilot/internal/analysis"
	"CryptoPilot/internal/bot"
	"CryptoPilot/internal/collector"
	"CryptoPilot/internal/config"
	"CryptoPilot/internal/exchange"
	"CryptoPilot/internal/metrics"
	"CryptoPilot/internal/notifier"
	"CryptoPilot/internal/portfolio"
	"CryptoPilot/internal/risk"
	"CryptoPilot/internal/scheduler"
	"CryptoPilot/internal/store"
)

// Exit codes.
const (
	exitOK          = 0
	exitConfig      = 1
	exitPersistence = 2
	exitBreaker     = 3
)

type flags struct {
	configPath   string
	mode         string
	iterations   int
	analyzeOnly  bool
	resetBreaker bool
}

func main() {
	var f flags
	code := exitOK

	root := &cobra.Command{
		Use:           "cryptopilot",
		Short:         "Monte Carlo driven crypto trading bot",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			code = run(cmd.Context(), f)
			return nil
		},
	}
	root.Flags().StringVar(&f.configPath, "config", "configs/config.yaml", "path to the YAML config file")
	root.Flags().StringVar(&f.mode, "mode", "", "trading mode: paper or live (overrides config)")
	root.Flags().IntVar(&f.iterations, "iterations", 0, "run N iterations then exit (0 = run forever)")
	root.Flags().BoolVar(&f.analyzeOnly, "analyze-only", false, "run analysis and ranking once, place no orders")
	root.Flags().BoolVar(&f.resetBreaker, "reset-breaker", false, "clear a tripped circuit breaker before starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		code = exitConfig
	}
	os.Exit(code)
}

// reconcileBalances warns when the venue holds less of an asset than the
// persisted portfolio expects. A mismatch means fills happened outside the
// bot (or the database is stale); trading continues, but sells may reject.
func reconcileBalances(ctx context.Context, client exchange.Client, tracker *portfolio.Tracker, logger *zap.Logger) {
	balances, err := client.GetBalances(ctx)
	if err != nil {
		logger.Warn("venue balance check failed", zap.Error(err))
		return
	}
	for _, pos := range tracker.Positions() {
		if held := balances[pos.Symbol]; held+1e-4 < pos.Quantity {
			logger.Warn("venue balance below tracked position",
				zap.String("symbol", pos.Symbol),
				zap.Float64("tracked", pos.Quantity),
				zap.Float64("venue", held))
		}
	}
}

func run(ctx context.Context, f flags) int {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "init logger:", err)
		return exitConfig
	}
	defer logger.Sync()

	if f.mode != "" {
		os.Setenv("TRADING_MODE", f.mode)
	}
	cfg, err := config.Load(f.configPath)
	if err != nil {
		logger.Error("load config", zap.Error(err))
		return exitConfig
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", zap.Error(err))
		return exitConfig
	}

	universe, err := collector.LoadUniverse(cfg.Universe.File)
	if err != nil {
		logger.Error("load universe", zap.Error(err))
		return exitConfig
	}
	logger.Info("starting",
		zap.String("mode", cfg.Trading.Mode),
		zap.Int("universe", len(universe)),
		zap.Bool("analyze_only", f.analyzeOnly))

	var st store.Store
	if f.analyzeOnly {
		st = store.NewNoop()
	} else {
		sqlStore, err := store.NewSQLiteStore(cfg.Database.SQLitePath, logger)
		if err != nil {
			logger.Error("open store", zap.Error(err))
			return exitPersistence
		}
		defer sqlStore.Close()
		st = sqlStore
	}

	if err := st.RecordStatus("started", cfg.Trading.Mode); err != nil {
		logger.Error("record start status", zap.Error(err))
		return exitPersistence
	}

	session, err := st.LoadSession()
	if err != nil {
		logger.Error("load session", zap.Error(err))
		return exitPersistence
	}
	positions, err := st.OpenPositions()
	if err != nil {
		logger.Error("load positions", zap.Error(err))
		return exitPersistence
	}

	var tracker *portfolio.Tracker
	riskState := &risk.State{}
	if session.HasSavedState {
		tracker = portfolio.Restore(session.Cash, positions)
		riskState.Counters = session.Counters
		riskState.Breaker = session.Breaker
		logger.Info("session restored",
			zap.Float64("cash", session.Cash),
			zap.Int("positions", len(positions)),
			zap.Bool("breaker_tripped", session.Breaker.Tripped))
	} else {
		tracker = portfolio.NewTracker(cfg.Trading.InitialCapital)
	}

	riskMgr := risk.NewManager(risk.Limits{
		MaxPositionSize:    cfg.Risk.MaxPositionSize,
		MaxDailyVolume:     cfg.Risk.MaxDailyVolume,
		MaxDailyLoss:       cfg.Risk.MaxDailyLoss,
		StopLossPercentage: cfg.Risk.StopLossPercentage,
		MaxPositions:       cfg.Risk.MaxPositions,
		MinTradeSize:       cfg.Trading.MinTradeSize,
		BreakerDrawdown:    cfg.Risk.CircuitBreakerDrawdown,
	}, logger)

	if f.resetBreaker && riskState.Breaker.Tripped {
		// entry prices are the best valuation available before quotes arrive
		riskMgr.Reset(riskState, tracker.TotalValue(nil))
		if err := st.SaveSession(store.SessionState{
			Cash:        tracker.Cash(),
			RealizedPnL: tracker.RealizedPnL(),
			Counters:    riskState.Counters,
			Breaker:     riskState.Breaker,
		}); err != nil {
			logger.Error("persist breaker reset", zap.Error(err))
			return exitPersistence
		}
	}

	var feed collector.Feed
	var client exchange.Client
	if cfg.IsPaper() {
		feed = collector.NewSyntheticFeed(universe)
		client = exchange.NewPaper()
	} else {
		feed = collector.NewRESTFeed(cfg.Exchange.BaseURL)
		client = exchange.NewREST(cfg.Exchange.BaseURL, cfg.Exchange.APIKey, cfg.Exchange.APISecret)
	}
	logger.Info("exchange wired", zap.String("client", client.Name()), zap.String("feed", feed.Name()))

	if !cfg.IsPaper() {
		reconcileBalances(ctx, client, tracker, logger)
	}

	metrics.Serve(ctx, cfg.Metrics.Addr, nil, logger)

	tg := notifier.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID, logger)

	b := bot.New(
		bot.Options{
			TopAssets:   cfg.Trading.TopAssets,
			CashReserve: cfg.Trading.CashReserve,
			AnalyzeOnly: f.analyzeOnly,
		},
		collector.New(feed, universe, logger),
		analysis.NewEngine(cfg.Trading.SimulationCount, logger),
		riskMgr,
		riskState,
		tracker,
		client,
		st,
		tg,
		logger,
		os.Stdout,
	)

	sched := scheduler.New(cfg.Interval(), b.Iteration, logger)

	iterations := f.iterations
	if f.analyzeOnly && iterations == 0 {
		iterations = 1
	}

	if iterations > 0 {
		err = sched.RunBounded(ctx, iterations)
	} else {
		err = sched.RunForever(ctx)
	}

	switch {
	case err == nil, errors.Is(err, context.Canceled):
		if iterations > 0 && b.BreakerTripped() {
			logger.Warn("run finished with the circuit breaker tripped")
			recordStatus(st, logger, "stopped", "circuit breaker tripped")
			return exitBreaker
		}
		logger.Info("clean stop")
		recordStatus(st, logger, "stopped", "clean shutdown")
		return exitOK
	case errors.Is(err, bot.ErrPersistence):
		logger.Error("halted on persistence failure", zap.Error(err))
		recordStatus(st, logger, "fatal", err.Error())
		if sendErr := tg.SendWithRetry(context.Background(), notifier.FormatFatalAlert(err), 3); sendErr != nil {
			logger.Warn("fatal alert not delivered", zap.Error(sendErr))
		}
		return exitPersistence
	default:
		logger.Error("halted", zap.Error(err))
		recordStatus(st, logger, "fatal", err.Error())
		return exitConfig
	}
}

// recordStatus is best-effort: the run result is already decided, a failed
// status write only gets logged.
func recordStatus(st store.Store, logger *zap.Logger, status, detail string) {
	if err := st.RecordStatus(status, detail); err != nil {
		logger.Warn("record status", zap.Error(err), zap.String("status", status))
	}
}
