// Command lotteryd runs the collectible lottery service: an HTTP API and an
// automatic draw scheduler in front of a Neo N3 RPC node.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/R3E-Network/nft_lottery/internal/bank"
	"github.com/R3E-Network/nft_lottery/internal/chain"
	"github.com/R3E-Network/nft_lottery/internal/collectible"
	"github.com/R3E-Network/nft_lottery/internal/config"
	"github.com/R3E-Network/nft_lottery/internal/events"
	"github.com/R3E-Network/nft_lottery/internal/httpapi"
	"github.com/R3E-Network/nft_lottery/internal/lottery"
	"github.com/R3E-Network/nft_lottery/internal/metrics"
	"github.com/R3E-Network/nft_lottery/internal/relay"
	"github.com/R3E-Network/nft_lottery/internal/storage/postgres"
	"github.com/R3E-Network/nft_lottery/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "lotteryd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return err
	}
	log := logger.NewWithLevel("lotteryd", cfg.LogLevel)

	client, err := chain.NewClient(chain.Config{
		RPCURL:    cfg.Chain.RPCURL,
		NetworkID: cfg.Chain.NetworkID,
		Timeout:   cfg.Chain.Timeout,
	})
	if err != nil {
		return fmt.Errorf("create chain client: %w", err)
	}

	var (
		store lottery.Store
		pool  collectible.PoolStore
	)
	switch cfg.Storage.Driver {
	case "postgres":
		pg, err := postgres.Open(cfg.Storage.DSN)
		if err != nil {
			return err
		}
		defer pg.Close()
		store, pool = pg, pg
		log.Info("using postgres storage")
	default:
		store = lottery.NewMemoryStore()
		pool = collectible.NewMemoryPool()
		log.Warn("using in-memory storage, state is lost on restart")
	}

	var (
		collectibles collectible.Ledger
		payments     bank.Ledger
	)
	if cfg.Chain.CollectibleContract != "" {
		signer := relay.New(cfg.Chain.SignerURL, cfg.Chain.Timeout, log.WithComponent("relay"))
		collectibles, err = collectible.NewChainLedger(client, cfg.Chain.CollectibleContract, signer, log.WithComponent("collectible-ledger"))
		if err != nil {
			return fmt.Errorf("create collectible ledger: %w", err)
		}
		payments, err = bank.NewTokenLedger(client, cfg.Chain.TokenContract, signer, log.WithComponent("token-ledger"))
		if err != nil {
			return fmt.Errorf("create token ledger: %w", err)
		}
		log.WithField("collectible_contract", cfg.Chain.CollectibleContract).
			WithField("token_contract", cfg.Chain.TokenContract).
			Info("using on-chain ledgers")
	} else {
		memLedger := collectible.NewMemoryLedger(cfg.Lottery.Escrow)
		memBank := bank.NewMemoryLedger()
		collectibles, payments = memLedger, memBank
		log.Warn("using in-memory ledgers, intended for development only")
	}

	alloc := collectible.NewAllocator(collectibles, pool, cfg.Lottery.Escrow, log.WithComponent("allocator"))
	entropy := lottery.NewBlockEntropy(client, cfg.Lottery.KParam)
	bus := events.NewBus()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := lottery.NewService(ctx, store, entropy, alloc, pool, payments, client, bus, m, log.WithComponent("lottery"), lottery.Options{
		Operator:      cfg.Lottery.Operator,
		Escrow:        cfg.Lottery.Escrow,
		TicketPrice:   cfg.Lottery.TicketPrice,
		RoundDuration: cfg.Lottery.RoundDuration,
	})
	if err != nil {
		return err
	}
	log.WithField("operator", cfg.Lottery.Operator).
		WithField("ticket_price", bank.Amount(cfg.Lottery.TicketPrice, bank.GASDecimals)).
		WithField("round_duration", cfg.Lottery.RoundDuration).
		Info("lottery service ready")

	if cfg.Lottery.DrawSchedule != "" {
		sched := lottery.NewScheduler(svc, cfg.Lottery.DrawSchedule, log.WithComponent("scheduler"))
		if err := sched.Start(); err != nil {
			return fmt.Errorf("start draw scheduler: %w", err)
		}
		defer sched.Stop()
	}

	api := httpapi.NewServer(svc, m, log.WithComponent("httpapi"), httpapi.Options{
		RateLimitRPS:   cfg.RateLimit.RequestsPerSecond,
		RateLimitBurst: cfg.RateLimit.Burst,
	})
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}
