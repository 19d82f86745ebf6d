package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stfix/config"
	"stfix/core"
	"stfix/crypto"
	nativecommon "stfix/native/common"
	"stfix/native/stfix"
	"stfix/observability/logging"
	"stfix/rpc"
	"stfix/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("STFIX_ENV"))
	logger := logging.Setup("stfixd", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	node := core.NewNode(db)
	node.SetPauses(nativecommon.NewPauseSet(cfg.PausedModules))

	if err := applyGenesis(node, cfg, logger); err != nil {
		logger.Error("Failed to apply genesis configuration", slog.Any("error", err))
		os.Exit(1)
	}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info("Starting metrics server", slog.String("address", cfg.MetricsAddress))
		if err := http.ListenAndServe(cfg.MetricsAddress, mux); err != nil {
			logger.Error("Metrics server stopped", slog.Any("error", err))
		}
	}()

	server := rpc.NewServer(node)
	logger.Info("Starting node", slog.String("network", cfg.NetworkName), slog.String("rpc", cfg.RPCAddress))
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("RPC server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

// applyGenesis initialises the protocol from the configuration the first time
// the daemon starts against an empty database. A populated state wins over the
// config file so restarts never rewrite parameters.
func applyGenesis(node *core.Node, cfg *config.Config, logger *slog.Logger) error {
	if _, err := node.Config(); err == nil {
		return nil
	} else if !errors.Is(err, stfix.ErrNotInitialized) {
		return err
	}

	adminStr := strings.TrimSpace(cfg.Genesis.Admin)
	if adminStr == "" {
		logger.Warn("State uninitialised and no genesis admin configured; admin operations unavailable")
		return nil
	}
	admin, err := crypto.DecodeAddress(adminStr)
	if err != nil {
		return fmt.Errorf("genesis: invalid admin address: %w", err)
	}

	params := stfix.Params{
		YieldRate30:     cfg.Genesis.YieldRate30,
		YieldRate90:     cfg.Genesis.YieldRate90,
		CooldownSeconds: cfg.Genesis.CooldownSeconds,
		PenaltyRateBps:  cfg.Genesis.PenaltyRateBps,
		WhitelistOnly:   cfg.Genesis.WhitelistOnly,
	}
	created, err := node.Initialize(admin, params)
	if err != nil {
		return err
	}
	logger.Info("Protocol initialised",
		slog.String("admin", created.Admin.String()),
		slog.String("principalVault", created.PrincipalVault.String()),
		slog.String("yieldVault", created.YieldVault.String()))

	for _, entry := range cfg.Genesis.Whitelist {
		user, err := crypto.DecodeAddress(strings.TrimSpace(entry))
		if err != nil {
			return fmt.Errorf("genesis: invalid whitelist address %q: %w", entry, err)
		}
		if err := node.AddToWhitelist(admin, user); err != nil {
			return fmt.Errorf("genesis: whitelist %s: %w", entry, err)
		}
	}
	return nil
}
