package cli

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hearthd/hearth/internal/approval"
	"github.com/hearthd/hearth/internal/capability"
	"github.com/hearthd/hearth/internal/config"
	"github.com/hearthd/hearth/internal/firewall"
	"github.com/hearthd/hearth/internal/forge"
	"github.com/hearthd/hearth/internal/governor"
	"github.com/hearthd/hearth/internal/hotreload"
	"github.com/hearthd/hearth/internal/model"
	"github.com/hearthd/hearth/internal/server"
	"github.com/hearthd/hearth/internal/store"
	"github.com/hearthd/hearth/internal/warrant"
)

var configPath string

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&configPath, "config", "", "Path to config YAML (default ~/.hearth/config.yaml)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the hearthd daemon",
	Long: "Starts the HTTP API, the capability dispatcher, and the hot-reload\n" +
		"watcher. Blocks until SIGINT or SIGTERM.",
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, cfgHash, err := config.LoadWithHash(configPath)
	if err != nil {
		return err
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	vaultKey, err := config.VaultKey()
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.DataDir, vaultKey)
	if err != nil {
		return err
	}
	defer st.Close()

	gov := governor.New(cfg.Forge.AutonomousDefault, st)
	approvals, err := approval.NewStore(filepath.Join(cfg.DataDir, "approvals"))
	if err != nil {
		return err
	}
	warrants, err := warrant.NewStore(filepath.Join(cfg.DataDir, "warrants"))
	if err != nil {
		return err
	}

	registry := capability.NewRegistry(st, logger)
	if err := capability.RegisterBuiltins(registry); err != nil {
		return err
	}
	guard := firewall.NewGuard(firewallConfig(cfg), st)
	dispatcher := capability.NewDispatcher(registry, guard, st, logger)

	procs := forge.NewProcessTable()
	gov.SetTerminator(procs)
	compiler := forge.NewVetCompiler(cfg.Forge.CompileTimeout, procs)

	fg, err := forge.New(forge.Config{
		Dir:            filepath.Join(cfg.DataDir, "forge"),
		Enabled:        cfg.Forge.Enabled,
		CompileTimeout: cfg.Forge.CompileTimeout,
	}, gov, approvals, st, st, compiler, logger)
	if err != nil {
		return err
	}

	watcher := hotreload.New(fg.Dir(), registry, logger)
	if loaded, err := watcher.Trigger(); err != nil {
		logger.Warn("initial capability load failed", zap.Error(err))
	} else {
		logger.Info("capabilities loaded", zap.Int("count", loaded))
	}

	srv := server.New(server.Config{
		Listen:          cfg.Server.Listen,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, server.Deps{
		Forge:      fg,
		Governor:   gov,
		Dispatcher: dispatcher,
		Registry:   registry,
		Store:      st,
		Approvals:  approvals,
		Warrants:   warrants,
		Watcher:    watcher,
		Logger:     logger,
	})

	logger.Info("hearthd starting",
		zap.String("listen", cfg.Server.Listen),
		zap.String("data_dir", cfg.DataDir),
		zap.String("config_hash", cfgHash),
		zap.Bool("forge_enabled", cfg.Forge.Enabled),
		zap.String("safety_mode", gov.Mode()))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Start(ctx) })
	g.Go(func() error { return watcher.Run(ctx) })

	return g.Wait()
}

func firewallConfig(cfg *config.Config) firewall.Config {
	fw := firewall.Config{ImportRestricted: make(map[model.Slot]bool)}
	for _, name := range cfg.ImportRestricted {
		slot := model.Slot(name)
		if model.KnownSlot(slot) {
			fw.ImportRestricted[slot] = true
		}
	}
	return fw
}
