// cmd/copilotd is the process entrypoint: it loads configuration, wires the
// store, selector registry, orchestrator, and optional LLM reviewer into a
// server.Server, and serves the §6 protocol over HTTP + WebSocket.
package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rfermoselle/auchan-cart-copilot/internal/config"
	"github.com/rfermoselle/auchan-cart-copilot/internal/llmreview"
	"github.com/rfermoselle/auchan-cart-copilot/internal/logging"
	"github.com/rfermoselle/auchan-cart-copilot/internal/orchestrator"
	"github.com/rfermoselle/auchan-cart-copilot/internal/selector"
	"github.com/rfermoselle/auchan-cart-copilot/internal/server"
	"github.com/rfermoselle/auchan-cart-copilot/internal/store"
)

// janitorSweepInterval is the tick cadence for the background staleness
// sweep -- frequent enough to catch a stuck run well within a day-long
// staleRunMaxAge without polling so tightly it dominates the scheduler.
const janitorSweepInterval = 5 * time.Minute

// Version information, set by the build system via ldflags.
var (
	Version   = "v0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	var (
		configFile  string
		listenAddr  string
		debug       bool
		showVersion bool
	)

	rootCmd := &cobra.Command{
		Use:   "copilotd",
		Short: "Cart reconstruction copilot daemon",
		RunE: func(_ *cobra.Command, _ []string) error {
			if showVersion {
				fmt.Printf("copilotd %s (commit %s, built %s)\n", Version, GitCommit, BuildTime)
				return nil
			}
			return run(configFile, listenAddr, debug)
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("copilotd %s (commit %s, built %s)\n", Version, GitCommit, BuildTime)
		},
	}
	rootCmd.AddCommand(versionCmd)

	rootCmd.Flags().StringVarP(&configFile, "config", "c", "", "path to config file (yaml/json/toml)")
	rootCmd.Flags().StringVar(&listenAddr, "listen", "", "HTTP listen address (overrides config)")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.Flags().BoolVarP(&showVersion, "version", "V", false, "show version information and exit")

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func run(configFile, listenAddrOverride string, debug bool) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if listenAddrOverride != "" {
		cfg.ListenAddr = listenAddrOverride
	}
	if debug {
		cfg.DebugLogging = true
	}

	logger := logging.New(cfg.DebugLogging)
	defer func() { _ = logger.Sync() }()

	st, err := store.New(cfg.StoreDir)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	registry := selector.NewRegistry()
	defs, err := st.LoadSelectorDefs()
	if err != nil {
		return fmt.Errorf("load selector definitions: %w", err)
	}
	for i := range defs {
		if err := registry.Load(&defs[i]); err != nil {
			logger.Warnw("skipping malformed selector definition", "pageId", defs[i].PageID, "version", defs[i].Version, "error", err)
		}
	}
	logger.Infow("selector registry loaded", "pages", registry.PageCount())

	machine := orchestrator.New(st, logger, cfg.KeepAliveInterval)
	if err := machine.Load(); err != nil {
		return fmt.Errorf("recover run state: %w", err)
	}
	if state := machine.State(); state.RecoveryNeeded {
		logger.Warnw("recovered a run that was mid-flight at last shutdown", "runId", state.RunID, "phase", state.Phase)
	}
	defer machine.Stop()

	var llmClient *llmreview.Client
	apiKey := cfg.LLMAPIKey
	if apiKey != "" {
		st.SetAPIKey(apiKey)
	}
	if cfg.LLMReviewEnabled {
		if key := st.APIKey(); key != "" {
			llmClient = llmreview.New(cfg.LLMEndpoint, key, logger)
		} else {
			logger.Warnw("llm review enabled but no api key configured; llm review is off for this process")
		}
	}

	// tools is left nil: the live browser.Page/Interactor pair is owned by
	// the extension host process, not this daemon, and this binary attaches
	// no server.ToolRunner. With tools nil, the page-dependent protocol
	// actions fail with UNKNOWN and run.start pauses the run with a
	// non-recoverable error.
	srv := server.New(server.Config{
		ListenAddr:           cfg.ListenAddr,
		RateLimitMaxRequests: cfg.RateLimitMaxRequests,
		RateLimitWindow:      cfg.RateLimitWindow,
		MaxOrders:            cfg.MaxOrders,
		ConservativeMode:     cfg.ConservativeMode,
		MinPruneConfidence:   cfg.MinPruneConfidence,
		LLMReviewEnabled:     cfg.LLMReviewEnabled,
		LLMConfidenceFloor:   cfg.LLMConfidenceFloor,
	}, machine, st, registry, llmClient, nil, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("listening", "addr", cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	stopJanitor := make(chan struct{})
	go runJanitor(machine, cfg.StaleRunMaxAge, logger, stopJanitor)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		close(stopJanitor)
		if err != nil {
			return fmt.Errorf("server exited: %w", err)
		}
	case sig := <-sigCh:
		close(stopJanitor)
		logger.Infow("shutting down", "signal", sig.String())
	}
	return nil
}

// runJanitor is the background reconciliation loop: on a fixed tick, it
// force-cancels any run stuck in running/paused past maxAge the same way the
// teacher's pollAgentStatuses cleans up stale agents on every poll cycle.
// There is no host scheduler to hand this to outside the plugin it descends
// from, so this daemon runs it as a plain ticker goroutine stopped by the
// same signal-driven shutdown as the HTTP server.
func runJanitor(machine *orchestrator.Machine, maxAge time.Duration, logger *zap.SugaredLogger, stop <-chan struct{}) {
	ticker := time.NewTicker(janitorSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			swept, err := machine.Sweep(maxAge)
			if err != nil {
				logger.Warnw("janitor sweep failed", "error", err)
				continue
			}
			if swept {
				logger.Infow("janitor sweep force-cancelled a stale run", "maxAge", maxAge.String())
			}
		}
	}
}
