package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"solana-pool-sniper/internal/decoder"
	"solana-pool-sniper/internal/execution"
	"solana-pool-sniper/internal/feed"
	"solana-pool-sniper/internal/ingestion"
	"solana-pool-sniper/internal/observability"
	"solana-pool-sniper/internal/sniper"
	"solana-pool-sniper/internal/solana"
	"solana-pool-sniper/internal/storage"
	chstore "solana-pool-sniper/internal/storage/clickhouse"
	"solana-pool-sniper/internal/storage/memory"
	"solana-pool-sniper/internal/storage/migrations"
	pgstore "solana-pool-sniper/internal/storage/postgres"
)

func main() {
	// Parse flags
	rpcEndpoint := flag.String("rpc-endpoint", "", "Solana RPC HTTP endpoint")
	wsEndpoint := flag.String("ws-endpoint", "", "Solana WebSocket endpoint")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string for price tick archive (empty to disable)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	buyAmount := flag.Float64("buy-amount", 0.1, "Quote amount spent per snipe, in human units")
	targetPercent := flag.Float64("target-percent", 50, "Growth percent over initial pool value at which to sell")
	owner := flag.String("owner", "", "Wallet address holding the positions")
	programID := flag.String("program", decoder.RaydiumAMMV4, "AMM program ID to watch for pool creations")
	maxWatch := flag.Duration("max-watch", 0, "Maximum watch duration per position, 0 to watch forever")
	dryRun := flag.Bool("dry-run", true, "Log orders instead of submitting them")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[sniper] ", log.LstdFlags|log.Lshortfile)

	// Start metrics server if enabled
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Channel to signal main goroutine completion
	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	err := run(ctx, logger, runConfig{
		rpcEndpoint:   *rpcEndpoint,
		wsEndpoint:    *wsEndpoint,
		postgresDSN:   *postgresDSN,
		clickhouseDSN: *clickhouseDSN,
		useMemory:     *useMemory,
		buyAmount:     *buyAmount,
		targetPercent: *targetPercent,
		owner:         *owner,
		programID:     *programID,
		maxWatch:      *maxWatch,
		dryRun:        *dryRun,
	})

	// Signal completion to shutdown handler
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Error: %v", err)
	}

	logger.Println("Shutdown complete")
}

type runConfig struct {
	rpcEndpoint   string
	wsEndpoint    string
	postgresDSN   string
	clickhouseDSN string
	useMemory     bool
	buyAmount     float64
	targetPercent float64
	owner         string
	programID     string
	maxWatch      time.Duration
	dryRun        bool
}

// run wires the sniper together and blocks until the context is
// cancelled.
func run(ctx context.Context, logger *log.Logger, cfg runConfig) error {
	if cfg.rpcEndpoint == "" {
		return fmt.Errorf("--rpc-endpoint is required")
	}
	if cfg.wsEndpoint == "" {
		return fmt.Errorf("--ws-endpoint is required")
	}
	if !cfg.dryRun {
		return fmt.Errorf("live order submission is not wired yet, run with --dry-run")
	}

	// Create RPC client
	rpc := solana.NewHTTPClient(cfg.rpcEndpoint)

	// Create SEPARATE WebSocket clients for logs and account watches.
	// Some providers deduplicate subscriptions per connection, and the
	// log stream must not contend with high-rate vault updates.
	wsLogs, err := solana.NewWSClient(ctx, cfg.wsEndpoint, nil)
	if err != nil {
		return fmt.Errorf("create websocket client for logs: %w", err)
	}
	defer wsLogs.Close()

	wsAccounts, err := solana.NewWSClient(ctx, cfg.wsEndpoint, nil)
	if err != nil {
		return fmt.Errorf("create websocket client for accounts: %w", err)
	}
	defer wsAccounts.Close()

	// Require --postgres-dsn unless --use-memory is explicitly set
	if !cfg.useMemory && cfg.postgresDSN == "" {
		return fmt.Errorf("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	// Create stores (use interfaces)
	var poolStore storage.PoolStore = memory.NewPoolStore()
	var tickStore storage.PriceTickStore

	if !cfg.useMemory {
		pool, err := pgstore.NewPool(ctx, cfg.postgresDSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return fmt.Errorf("run postgres migrations: %w", err)
		}
		poolStore = pgstore.NewPoolStore(pool)
	}

	switch {
	case cfg.clickhouseDSN != "":
		conn, err := chstore.NewConn(ctx, cfg.clickhouseDSN)
		if err != nil {
			return fmt.Errorf("connect to clickhouse: %w", err)
		}
		defer conn.Close()

		if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
			return fmt.Errorf("run clickhouse migrations: %w", err)
		}
		tickStore = chstore.NewPriceTickStore(conn)
	case cfg.useMemory:
		tickStore = memory.NewPriceTickStore()
	}

	executor := execution.NewDryRunService(execution.DryRunOptions{Logger: logger})
	priceFeed := feed.NewWSFeed(feed.WSFeedOptions{WSClient: wsAccounts, Logger: logger})

	manager, err := sniper.NewManager(sniper.ManagerOptions{
		Config: sniper.Config{
			BuyAmount:        cfg.buyAmount,
			TargetPercent:    cfg.targetPercent,
			Owner:            cfg.owner,
			MaxWatchDuration: cfg.maxWatch,
		},
		Executor: executor,
		Feed:     priceFeed,
		Balances: rpc,
		Ticks:    tickStore,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	defer manager.Close()

	listener := ingestion.NewListener(ingestion.ListenerOptions{
		WSClient:  wsLogs,
		RPCClient: rpc,
		Store:     poolStore,
		Manager:   manager,
		ProgramID: cfg.programID,
		Logger:    logger,
	})

	logger.Printf("Starting pool sniper: buy=%v target=%v%% owner=%s dry-run=%v",
		cfg.buyAmount, cfg.targetPercent, cfg.owner, cfg.dryRun)
	return listener.Run(ctx)
}
