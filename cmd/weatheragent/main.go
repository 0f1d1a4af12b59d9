package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/weatheragent/core/internal/config"
	"github.com/weatheragent/core/internal/discovery"
	"github.com/weatheragent/core/internal/discovery/gamma"
	"github.com/weatheragent/core/internal/executor"
	"github.com/weatheragent/core/internal/forecast"
	"github.com/weatheragent/core/internal/forecast/nws"
	"github.com/weatheragent/core/internal/forecast/openmeteo"
	"github.com/weatheragent/core/internal/httpapi"
	"github.com/weatheragent/core/internal/metrics"
	"github.com/weatheragent/core/internal/monitor"
	"github.com/weatheragent/core/internal/notify"
	"github.com/weatheragent/core/internal/notify/console"
	"github.com/weatheragent/core/internal/notify/telegram"
	"github.com/weatheragent/core/internal/paperledger"
	"github.com/weatheragent/core/internal/position"
	"github.com/weatheragent/core/internal/redemption"
	"github.com/weatheragent/core/internal/risk"
	"github.com/weatheragent/core/internal/state/sqlitestore"
	"github.com/weatheragent/core/internal/venue/clob"
	"github.com/weatheragent/core/internal/wallet"
)

const (
	version = "0.1.0"
	banner  = `
 _       __           __  __              ___                    __
| |     / /__  ____ _/ /_/ /_  ___  _____/   | ____ ____  ____  / /_
| | /| / / _ \/ __ '/ __/ __ \/ _ \/ ___/ /| |/ __  / __ \/ __ \/ __/
| |/ |/ /  __/ /_/ / /_/ / / /  __/ /  / ___ / /_/ / / / / /_/ / /_
|__/|__/\___/\__,_/\__/_/ /_/\___/_/  /_/  |_\__, /_/ /_/\____/\__/
                                            /____/
Weather Agent v%s
Autonomous weather-prediction-market trading
`
)

func main() {
	log.SetFlags(log.Ltime | log.Lmsgprefix)
	log.SetPrefix("[weatheragent] ")

	fmt.Printf(banner, version)
	fmt.Println(strings.Repeat("-", 60))

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	printConfig(cfg)

	log.Println("initializing wallet...")
	w, err := wallet.NewWalletFromHex(cfg.PrivateKey)
	if err != nil {
		log.Fatalf("failed to create wallet: %v", err)
	}
	log.Printf("wallet address: %s", w.AddressHex())

	var sink notify.Sink
	if cfg.HasTelegram() {
		log.Println("initializing telegram notifier...")
		bot, err := telegram.NewBot(cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			log.Fatalf("failed to create telegram bot: %v", err)
		}
		bot.SetDryRun(cfg.DryRun)
		sink = bot
	} else {
		log.Println("telegram not configured, notifying to console")
		sink = console.New()
	}

	log.Println("opening state store...")
	store, err := sqlitestore.Open(cfg.StateDBPath)
	if err != nil {
		log.Fatalf("failed to open state store: %v", err)
	}
	defer store.Close()

	tradingAddress := w.AddressHex()
	if cfg.UseProxyWallet() {
		tradingAddress = cfg.ProxyWalletAddress
	}

	catalogClient, err := buildGammaCatalog(cfg)
	if err != nil {
		log.Fatalf("failed to build gamma catalog: %v", err)
	}

	discoverySvc := discovery.NewService(catalogClient, gamma.NewParser(), cfg.MinParserConfidence)

	forecastSvc := forecast.NewService(
		[]forecast.Provider{openmeteo.NewProvider(), nws.NewProvider()},
		openmeteo.NewProvider(),
	)

	riskMgr := risk.NewManager(risk.Limits{
		MaxExposurePerMarketUSD: cfg.MaxExposurePerMarketUSD,
		MaxExposurePerRegionUSD: cfg.MaxExposurePerRegionUSD,
		MaxExposurePerDateUSD:   cfg.MaxExposurePerDateUSD,
		MaxDailyLossUSD:         cfg.MaxDailyLossUSD,
		MaxDataAge:              time.Duration(cfg.MaxDataAgeMS) * time.Millisecond,
		MinOrderSizeUSD:         cfg.MinOrderSizeUSD,
		MaxOrderSizeUSD:         cfg.MaxOrderSizeUSD,
	})

	monitorSvc := monitor.NewService(discoverySvc, forecastSvc, riskMgr, openmeteo.StationForCode, monitor.Config{
		MaxLeadDays:             cfg.MaxLeadDays,
		DiscoveryInterval:       cfg.DiscoveryInterval,
		ForecastRefreshInterval: cfg.ForecastRefreshInterval,
		EdgeThreshold:           cfg.EdgeThreshold,
		MaxOrderSizeUSD:         cfg.MaxOrderSizeUSD,
	})

	var orderVenue *clob.Venue
	var positionBook *clob.PositionBook
	var redeemer *clob.Redeemer
	var ledger *paperledger.Ledger

	if cfg.DryRun {
		log.Println("dry-run mode: trades are simulated against a paper ledger")
		ledger = paperledger.NewLedger()
	} else {
		log.Println("initializing CLOB venue...")
		clobClient, err := buildCLOBClient(cfg, tradingAddress)
		if err != nil {
			log.Fatalf("failed to build CLOB client: %v", err)
		}

		var builder *clob.OrderBuilder
		if cfg.UseProxyWallet() {
			builder = clob.NewOrderBuilderWithProxy(w, cfg.CLOBApiKey, common.HexToAddress(cfg.ProxyWalletAddress), int(wallet.SignatureTypePolyGnosis))
		} else {
			builder = clob.NewOrderBuilder(w, cfg.CLOBApiKey)
		}
		orderVenue = clob.NewVenue(clobClient, builder)
		positionBook = clob.NewPositionBook(tradingAddress)
		redeemer = clob.NewRedeemer(w)
	}

	var ledgerForExecutor *paperledger.Ledger
	if cfg.DryRun {
		ledgerForExecutor = ledger
	}
	executorSvc := executor.NewService(monitorSvc.Queue(), riskMgr, orderVenue, ledgerForExecutor, sink, executor.Config{
		PollInterval: cfg.ExecutorPollInterval,
		DryRun:       cfg.DryRun,
	})

	var positionSvc *position.Service
	var redemptionSvc *redemption.Service
	if !cfg.DryRun {
		positionSvc = position.NewService(positionBook, orderVenue, store, sink, position.Config{
			CheckInterval:       cfg.PositionCheckInterval,
			StopLossEnabled:     cfg.StopLossPercent > 0,
			StopLossPercent:     cfg.StopLossPercent,
			TakeProfitEnabled:   cfg.TakeProfitPercent > 0,
			TakeProfitPercent:   cfg.TakeProfitPercent,
			TrailingStopEnabled: cfg.TrailingStopPercent > 0,
			TrailingStopPercent: cfg.TrailingStopPercent,
			SLTPMinPricePercent: cfg.SLTPMinPricePercent,
		})

		redemptionSvc = redemption.NewService(positionBook, redeemer, discoverySvc, riskMgr, sink, redemption.Config{
			CheckInterval: cfg.PositionCheckInterval,
		})
	}

	metricsInst := metrics.New()

	var ledgerForHTTP *paperledger.Ledger
	if cfg.DryRun {
		ledgerForHTTP = ledger
	}
	httpSrv := httpapi.New(riskMgr, discoverySvc, metricsInst, ledgerForHTTP, httpapi.Config{Addr: cfg.HTTPAddr})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("received signal: %v, initiating shutdown...", sig)
		cancel()
	}()

	sink.Notify(notify.Event{Kind: notify.KindStartup, Summary: "weather agent starting", Fields: map[string]string{
		"mode": modeString(cfg.DryRun),
	}})

	log.Println("starting service loops...")
	fmt.Println(strings.Repeat("-", 60))

	go monitorSvc.Run(ctx)
	go executorSvc.Run(ctx)
	if positionSvc != nil {
		go positionSvc.Run(ctx)
	}
	if redemptionSvc != nil {
		go redemptionSvc.Run(ctx)
	}

	go func() {
		log.Printf("http surface listening on %s", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err.Error() != "http: Server closed" {
			log.Printf("http surface error: %v", err)
		}
	}()

	<-ctx.Done()

	log.Println("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("warning: http shutdown: %v", err)
	}

	log.Println("shutdown complete")
	os.Exit(0)
}

func printConfig(cfg *config.Config) {
	log.Printf("mode:               %s", modeString(cfg.DryRun))
	log.Printf("chain ID:           %d", cfg.PolygonChainID)
	log.Printf("max lead days:      %d", cfg.MaxLeadDays)
	log.Printf("edge threshold:     %.2f", cfg.EdgeThreshold)
	log.Printf("max kelly fraction: %.2f", cfg.MaxKellyFraction)
	log.Printf("max order size:    $%.2f", cfg.MaxOrderSizeUSD)
	log.Printf("max daily loss:    $%.2f", cfg.MaxDailyLossUSD)
	log.Printf("telegram:           %s", enabledString(cfg.HasTelegram()))
	log.Printf("proxy wallet:       %s", enabledString(cfg.UseProxyWallet()))
	log.Printf("http surface:       %s", cfg.HTTPAddr)
	fmt.Println(strings.Repeat("-", 60))
}

func modeString(dryRun bool) string {
	if dryRun {
		return "DRY RUN"
	}
	return "LIVE"
}

func enabledString(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}

// buildGammaCatalog wires the Gamma discovery client, with proxy rotation
// when the operator configured more than one proxy.
func buildGammaCatalog(cfg *config.Config) (*gamma.Catalog, error) {
	if len(cfg.ProxyURLs) > 0 {
		client, err := gamma.NewClientWithProxyRotation(cfg.ProxyURLs)
		if err != nil {
			return nil, err
		}
		return gamma.NewCatalogFromClient(client), nil
	}
	return gamma.NewCatalog(), nil
}

func buildCLOBClient(cfg *config.Config, address string) (*clob.Client, error) {
	if len(cfg.ProxyURLs) > 0 {
		return clob.NewClientWithProxyRotation(cfg.CLOBApiKey, cfg.CLOBSecret, cfg.CLOBPassphrase, address, cfg.ProxyURLs)
	}
	return clob.NewClient(cfg.CLOBApiKey, cfg.CLOBSecret, cfg.CLOBPassphrase, address), nil
}

