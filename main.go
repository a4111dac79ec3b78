package main

import (
	"context"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"swing-signal-bot/config"
	"swing-signal-bot/internal/analysis"
	"swing-signal-bot/internal/confluence"
	"swing-signal-bot/internal/dedup"
	"swing-signal-bot/internal/feed"
	"swing-signal-bot/internal/market"
	"swing-signal-bot/internal/memory"
	"swing-signal-bot/internal/notify"
	"swing-signal-bot/internal/risk"
	"swing-signal-bot/internal/scanner"
	"swing-signal-bot/internal/signal"
	"swing-signal-bot/internal/storage"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("configuration invalid")
	}

	logger := newLogger(cfg.Logging)
	logger.Info().Msg("starting swing signal bot")

	ctx, stop := ossignal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Persistence is optional: without PostgreSQL signals live in memory
	// only, without Redis the adaptive memory starts cold.
	var repo signal.Repository
	var sigRepo *storage.SignalRepository
	if cfg.Postgres.Enabled {
		db, err := storage.NewDB(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("database connection failed")
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			logger.Fatal().Err(err).Msg("database migration failed")
		}
		sigRepo = storage.NewSignalRepository(db)
		repo = sigRepo
		logger.Info().Msg("postgres persistence enabled")
	}

	var stateStore *storage.StateStore
	if cfg.Redis.Enabled {
		stateStore, err = storage.NewStateStore(ctx, cfg.Redis, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer stateStore.Close()
		logger.Info().Msg("redis state store enabled")
	}

	continuationScorer, err := confluence.NewScorer(confluence.Weights(cfg.Scoring.ContinuationWeights))
	if err != nil {
		logger.Fatal().Err(err).Msg("continuation weights invalid")
	}
	reversalScorer, err := confluence.NewScorer(confluence.Weights(cfg.Scoring.ReversalWeights))
	if err != nil {
		logger.Fatal().Err(err).Msg("reversal weights invalid")
	}

	store := market.NewStore(cfg.Scanner.StoreCapacity)
	structure := analysis.NewStructureAnalyzer(cfg.Analysis.SwingLookback)
	regimeCfg := analysis.DefaultRegimeConfig()
	if cfg.Analysis.ATRPeriod > 0 {
		regimeCfg.ATRPeriod = cfg.Analysis.ATRPeriod
	}
	regimes := analysis.NewRegimeClassifier(structure, regimeCfg)

	riskManager := risk.NewManager(risk.Config{
		RiskPerTrade:     cfg.Risk.RiskPerTrade,
		MinRiskReward:    cfg.Risk.MinRiskReward,
		MaxSignalsPerDay: cfg.Risk.MaxSignalsPerDay,
	}, nil, logger)

	governor := dedup.NewGovernor(dedup.Config{
		GlobalCooldown: cfg.Dedup.GlobalCooldown(),
		SetupCooldown:  cfg.Dedup.SetupCooldown(),
		MaxActive:      cfg.Dedup.MaxActive,
		Retention:      cfg.Dedup.Retention(),
	}, nil)

	adaptiveMemory := memory.NewAdaptiveMemory(memory.DefaultConfig(), nil, logger)

	tracker := signal.NewTracker(repo, nil, logger)
	tracker.AddSink(signal.OutcomeSinkFunc(func(s signal.Signal, _ signal.Outcome, r float64) {
		governor.Resolve(s.ID)
		if cfg.Memory.Enabled {
			adaptiveMemory.RecordOutcome(s.Symbol, s.Setup, r)
		}
	}))

	// Reload unresolved signals so active caps and cooldowns survive a
	// restart instead of failing open.
	if sigRepo != nil {
		actives, err := sigRepo.ActiveSignals(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("active signal reload failed")
		} else if tracker.Restore(actives) > 0 {
			for _, s := range actives {
				governor.Restore(s.ID, s.Symbol, s.Direction, string(s.Setup), s.Window, s.CreatedAt)
			}
		}
	}

	notifier := notify.NewManager(logger)
	notifier.Add(notify.NewLogNotifier(logger))
	if cfg.Notification.Telegram.Enabled {
		notifier.Add(notify.NewTelegramNotifier(notify.TelegramConfig{
			BotToken: cfg.Notification.Telegram.BotToken,
			ChatID:   cfg.Notification.Telegram.ChatID,
			Enabled:  true,
		}))
		logger.Info().Msg("telegram notifications enabled")
	}

	binanceFeed := feed.NewBinanceFeed("", "", logger)
	backfiller := feed.NewRetryingBackfiller(binanceFeed, logger)

	scanCfg := scanner.Config{
		Symbols:          cfg.Scanner.Symbols,
		SlowTimeframe:    cfg.Scanner.SlowTimeframe,
		AnchorTimeframe:  cfg.Scanner.AnchorTimeframe,
		FastTimeframe:    cfg.Scanner.FastTimeframe,
		Workers:          cfg.Scanner.Workers,
		WarmupCandles:    cfg.Scanner.WarmupCandles,
		AccountBalance:   cfg.Risk.AccountBalance,
		RiskPerTrade:     cfg.Risk.RiskPerTrade,
		ContinuationMin:  cfg.Scoring.ContinuationMin,
		ReversalMin:      cfg.Scoring.ReversalMin,
		MaxSignalsPerDay: cfg.Risk.MaxSignalsPerDay,
		Analysis: scanner.AnalysisSettings{
			SweepTolerancePct: cfg.Analysis.SweepTolerancePct,
			MinGapPct:         cfg.Analysis.MinGapPct,
			RangeLookback:     cfg.Analysis.RangeLookback,
			LevelClusterPct:   cfg.Analysis.LevelClusterPct,
		},
		UniverseSize:     cfg.Scanner.UniverseSize,
		UniverseRefresh:  cfg.Scanner.UniverseRefresh(),
		RotationInterval: cfg.Scanner.RotationInterval(),
		SnapshotInterval: time.Minute,
	}

	evaluator := scanner.NewEvaluator(scanCfg, scanner.EvaluatorDeps{
		Store:        store,
		Regimes:      regimes,
		Continuation: continuationScorer,
		Reversal:     reversalScorer,
		Governor:     governor,
		Risk:         riskManager,
		Memory:       adaptiveMemory,
		Tracker:      tracker,
	}, logger)

	sc := scanner.NewScanner(scanCfg, store, binanceFeed, backfiller, nil,
		evaluator, tracker, notifier, logger)

	if cfg.Scanner.UniverseSize > len(cfg.Scanner.Symbols) {
		rotator := scanner.NewUniverseRotator(sc, binanceFeed, scanCfg, logger)
		go rotator.Run(ctx)
		logger.Info().Int("size", cfg.Scanner.UniverseSize).Msg("universe rotation enabled")
	}

	if stateStore != nil && cfg.Memory.Enabled {
		persister := scanner.NewStatePersister(stateStore, adaptiveMemory, scanCfg.SnapshotInterval, logger)
		if err := persister.Restore(ctx); err != nil {
			logger.Warn().Err(err).Msg("memory state restore failed")
		}
		go persister.Run(ctx)
	}

	if err := sc.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Fatal().Err(err).Msg("scanner stopped")
	}
	logger.Info().Msg("shutdown complete")
}

func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var out zerolog.Logger
	if cfg.Pretty {
		out = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		out = zerolog.New(os.Stderr)
	}
	return out.Level(level).With().Timestamp().Logger()
}
