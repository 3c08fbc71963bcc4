// Package main provides the sniperd daemon - a Solana bonding-curve
// token-sniping trade execution core.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/solsniper/sniperd/internal/adminapi"
	"github.com/solsniper/sniperd/internal/cache"
	"github.com/solsniper/sniperd/internal/config"
	"github.com/solsniper/sniperd/internal/dbpool"
	"github.com/solsniper/sniperd/internal/discovery"
	"github.com/solsniper/sniperd/internal/discovery/onchain"
	"github.com/solsniper/sniperd/internal/discovery/telegram"
	"github.com/solsniper/sniperd/internal/executor"
	"github.com/solsniper/sniperd/internal/external"
	"github.com/solsniper/sniperd/internal/external/chat"
	"github.com/solsniper/sniperd/internal/ledger"
	"github.com/solsniper/sniperd/internal/lifecycle"
	"github.com/solsniper/sniperd/internal/maintenance"
	"github.com/solsniper/sniperd/internal/opportunity"
	"github.com/solsniper/sniperd/internal/position"
	"github.com/solsniper/sniperd/internal/queue"
	"github.com/solsniper/sniperd/internal/router"
	"github.com/solsniper/sniperd/internal/safety"
	"github.com/solsniper/sniperd/pkg/logging"
)

var (
	version = "0.1.0-dev"
	commit  = "unknown"
)

func main() {
	var (
		configFile  = flag.String("config", "", "Config file path (YAML, optional)")
		logLevel    = flag.String("log-level", "", "Log level (debug, info, warn, error), overrides config")
		showVersion = flag.Bool("version", false, "Show version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmtVersion()
		os.Exit(0)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log := logging.Default()
		log.Fatal("failed to load config", "error", err)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	log := logging.New(&logging.Config{Level: cfg.LogLevel, TimeFormat: time.TimeOnly})
	logging.SetDefault(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := dbpool.Open(ctx, dbpool.DefaultConfig(cfg.DatabaseURL))
	if err != nil {
		log.Fatal("failed to open database", "error", err)
	}
	defer db.Close()
	log.Info("database ready, migrations applied")

	var priceCache *cache.PriceCache
	var dedup *cache.Dedup
	if cfg.RedisURL != "" {
		rdb, err := cache.New(cfg.RedisURL)
		if err != nil {
			log.Warn("failed to connect to redis, proceeding without hot cache", "error", err)
		} else {
			priceCache = cache.NewPriceCache(rdb)
			dedup = cache.NewDedup(rdb, cfg.Intervals.TelegramDedupeWindow)
			log.Info("redis hot cache connected")
		}
	}
	rpcClient := rpc.New(cfg.SolanaRPCURL)

	programID, err := solana.PublicKeyFromBase58(cfg.LaunchpadProgramID)
	if err != nil {
		log.Fatal("invalid launchpad_program_id", "error", err)
	}

	// Domain stores
	safetyStore := safety.New(db)
	ledgerStore := ledger.New(db)
	queueStore := queue.New(db)
	positionStore := position.New(db)
	discoveryStore := discovery.New(db)
	opportunityStore := opportunity.New(db)

	signer := external.NewHTTPSigner(cfg.SignerBaseURL)
	wallets := external.NewWalletStore(db, signer)
	balances := external.NewRPCBalanceReader(rpcClient)
	cooldowns := external.NewDBCooldowns(db, config.Chain)
	notifier := external.NewDBNotifier(db)
	users := external.NewUsers(db)

	// Router: bonding-curve adapter for pre-graduation trades, AMM
	// adapter (Jupiter) for post-graduation trades, selected per trade
	// by internal/router.Router itself.
	bondingCurveAdapter := router.NewBondingCurveAdapter(programID, rpcClient, rpcClient)
	ammAdapter := router.NewAMMAdapter(cfg.JupiterAPIBaseURL, rpcClient)
	tradeRouter := router.New(bondingCurveAdapter, ammAdapter)

	execDeps := executor.Deps{
		Queue:     queueStore,
		Ledger:    ledgerStore,
		Safety:    safetyStore,
		Router:    tradeRouter,
		Wallets:   wallets,
		Balances:  balances,
		Positions: positionStore,
		Cooldowns: cooldowns,
		Notifier:  notifier,
	}
	execCfg := executor.Config{
		PollInterval:    cfg.Intervals.QueuePollInterval,
		LeaseTTL:        cfg.Timeouts.LeaseTTL,
		Fees:            cfg.Fees,
		ConfirmTimeouts: cfg.Timeouts,
		PostBuyCooldown: cfg.Intervals.PostBuyCooldown,
	}
	exec := executor.New(execDeps, execCfg)

	adminStore := adminapi.New(db)
	adminServer := adminapi.NewServer(adminStore, safetyStore)

	exec.OnEvent(func(ev executor.Event) {
		log.Info("execution event", "job_id", ev.JobID, "action", ev.Action, "status", ev.Status)
		adminServer.WSHub().Broadcast(adminapi.EventExecutionUpdated, ev)
	})

	// Price fallback chain: AMM aggregator -> DEX-screener ->
	// launchpad API -> on-chain curve math, per spec.md §4.I.
	priceChain := position.NewChain(
		position.NewAMMFetcher(cfg.JupiterAPIBaseURL),
		position.NewDexScreenerFetcher(cfg.DexScreenerBaseURL),
		position.NewLaunchpadAPIFetcher(cfg.JupiterAPIBaseURL),
		position.NewBondingCurveFetcher(rpcClient),
	)
	if priceCache != nil {
		priceChain.SetHintCache(priceCache)
	}
	positionMonitor := position.NewMonitor(positionStore, priceChain, queueStore, cfg.Intervals.PositionPollInterval)
	positionMonitor.OnEvent(func(ev position.Event) {
		adminServer.WSHub().Broadcast(adminapi.EventPositionUpdated, ev)
	})

	poolResolver := lifecycle.NewDexScreenerPoolResolver(cfg.DexScreenerBaseURL)
	lifecycleMonitor := lifecycle.NewMonitor(positionStore, rpcClient, poolResolver, cfg.Intervals.LifecyclePollInterval)

	sweeper := maintenance.NewSweeper(db, cfg.Intervals.MaintenanceInterval)

	// Discovery producers feed the shared launch_candidate table;
	// opportunityLoop below is the in-scope §4.F mechanical pipeline
	// (list -> score -> persist -> match -> enqueue) that consumes it.
	// The raw signal analysis behind opportunity.SignalSource -- on-chain
	// holder distribution, honeypot simulation, deployer reputation --
	// remains a dedicated external pipeline (internal/opportunity's own
	// doc comment disclaims that analysis step); opportunity.
	// DefaultSignalSource is wired here as its conservative placeholder.
	opportunityEngine := opportunity.NewEngine(opportunityStore, opportunityStore, queueStore)
	opportunityLoop := opportunity.NewLoop(discoveryStore, nil, opportunityEngine, cfg.Intervals.OpportunityPollInterval, 20)
	opportunityLoop.OnEvent(func(ev opportunity.Event) {
		adminServer.WSHub().Broadcast(adminapi.EventOpportunityScored, ev)
	})

	var onchainDedup onchain.CrossProcessDedup
	var telegramDedup telegram.CrossProcessDedup
	if dedup != nil {
		onchainDedup = dedup
		telegramDedup = dedup
	}

	if cfg.Features.OnchainDiscoveryEnabled {
		txFetcher := onchain.NewRPCTransactionFetcher(rpcClient)
		onchainListener := onchain.NewListener(cfg.SolanaWSURL, programID, txFetcher, discoveryStore, onchainDedup)
		onchainListener.Start(ctx)
		log.Info("on-chain discovery listener started", "program_id", programID.String())
	}

	// Manual trade path (spec.md §1, §4.B, §6): chat commands/callbacks
	// parsed by internal/external/chat are turned into BUY/SELL
	// trade_jobs here, dispatched from the same Telegram update loop
	// discovery already polls.
	manualTrades := chat.NewHandler(users, positionStore, queueStore)

	var telegramListener *telegram.Listener
	if cfg.TelegramBotToken != "" {
		bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
		if err != nil {
			log.Warn("failed to start telegram bot, telegram discovery disabled", "error", err)
		} else {
			telegramListener = telegram.NewListener(bot, cfg.TelegramChannelID, discoveryStore, cfg.Intervals.TelegramDedupeWindow, telegramDedup)
			telegramListener.SetManualHandler(manualTrades)
			telegramListener.Start(ctx)
			log.Info("telegram discovery listener started", "channel_id", cfg.TelegramChannelID)
		}
	}

	exec.Start()
	if cfg.Features.TPSLEngineEnabled {
		positionMonitor.Start(ctx)
	}
	if cfg.Features.GraduationMonitorEnabled {
		lifecycleMonitor.Start(ctx)
	}
	sweeper.Start(ctx)
	opportunityLoop.Start(ctx)

	if err := adminServer.Start(cfg.AdminListenAddr); err != nil {
		log.Fatal("failed to start admin server", "error", err)
	}

	log.Info("sniperd started", "version", version, "commit", commit, "admin_addr", cfg.AdminListenAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutting down...")

	cancel()
	exec.Stop()
	if cfg.Features.TPSLEngineEnabled {
		positionMonitor.Stop()
	}
	if cfg.Features.GraduationMonitorEnabled {
		lifecycleMonitor.Stop()
	}
	sweeper.Stop()
	opportunityLoop.Stop()
	if err := adminServer.Stop(); err != nil {
		log.Error("error stopping admin server", "error", err)
	}

	log.Info("goodbye")
}

func fmtVersion() {
	logging.Default().Infof("sniperd %s (commit: %s)", version, commit)
}
