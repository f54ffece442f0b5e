package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Debrajkhanra88/Gaia/internal/config"
	"github.com/Debrajkhanra88/Gaia/internal/hostcheck"
	"github.com/Debrajkhanra88/Gaia/internal/httpapi"
	"github.com/Debrajkhanra88/Gaia/internal/installog"
	"github.com/Debrajkhanra88/Gaia/internal/lifecycle"
	"github.com/Debrajkhanra88/Gaia/internal/modelsel"
	"github.com/Debrajkhanra88/Gaia/internal/nodestore"
	"github.com/Debrajkhanra88/Gaia/internal/orchestrator"
)

func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gaiactl",
		Short:         "Provision and supervise Gaia inference nodes on this host",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().String("config", "", "Config file (yaml/json/toml)")
	root.PersistentFlags().String("install-root", "", "Install root for node directories (default ~/gaia)")
	root.PersistentFlags().Int("nodes", 0, "Number of nodes to provision (default 1)")
	root.PersistentFlags().Int("base-port", 0, "Base port; node i listens on base+i (default 8080)")
	root.PersistentFlags().String("node-bin", "", "Node binary (default gaianet)")
	root.PersistentFlags().String("model", "", "Model identifier override")
	root.PersistentFlags().String("api-addr", "", "Optional status API listen address, e.g. 127.0.0.1:9090")
	root.PersistentFlags().String("disk-policy", "", "Preflight policy: strict|advisory (default strict)")
	root.PersistentFlags().String("log-level", "", "Log level: debug|info|warn|error (default info)")

	up := &cobra.Command{
		Use:   "up",
		Short: "Preflight the host, provision all nodes and enter the management loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUp(cmd)
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show live status of nodes under the install root",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd)
		},
	}

	start := &cobra.Command{
		Use:   "start <index>",
		Short: "Start one node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNodeOp(cmd, args[0], "start")
		},
	}
	stop := &cobra.Command{
		Use:   "stop <index>",
		Short: "Stop one node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNodeOp(cmd, args[0], "stop")
		},
	}
	restart := &cobra.Command{
		Use:   "restart <index>",
		Short: "Restart one node (best-effort stop, then start)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNodeOp(cmd, args[0], "restart")
		},
	}

	root.AddCommand(up, status, start, stop, restart)
	return root
}

// resolveConfig merges: file (if given) ← flag overrides ← defaults.
func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	var cfg config.Config
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if cmd.Flags().Changed("install-root") {
		cfg.InstallRoot, _ = cmd.Flags().GetString("install-root")
	}
	if cmd.Flags().Changed("nodes") {
		cfg.Nodes, _ = cmd.Flags().GetInt("nodes")
	}
	if cmd.Flags().Changed("base-port") {
		cfg.BasePort, _ = cmd.Flags().GetInt("base-port")
	}
	if cmd.Flags().Changed("node-bin") {
		cfg.NodeBin, _ = cmd.Flags().GetString("node-bin")
	}
	if cmd.Flags().Changed("model") {
		cfg.ModelOverride, _ = cmd.Flags().GetString("model")
	}
	if cmd.Flags().Changed("api-addr") {
		cfg.APIAddr, _ = cmd.Flags().GetString("api-addr")
	}
	if cmd.Flags().Changed("disk-policy") {
		v, _ := cmd.Flags().GetString("disk-policy")
		cfg.Preflight.DiskPolicy = config.DiskPolicy(v)
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel, _ = cmd.Flags().GetString("log-level")
	}
	return cfg.ApplyDefaults(), nil
}

func newConsoleLogger(level string) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(installog.ParseLevel(level)).
		With().Timestamp().Logger()
}

// buildRuntime assembles the store and lifecycle over the real supervisor.
func buildRuntime(cfg config.Config) (*nodestore.Store, *lifecycle.Lifecycle, error) {
	store, err := nodestore.New(cfg.InstallRoot, cfg.BasePort)
	if err != nil {
		return nil, nil, err
	}
	sup, err := lifecycle.NewPidfileSupervisor(filepath.Join(store.Root(), "run"))
	if err != nil {
		return nil, nil, err
	}
	lc := lifecycle.New(store, sup, lifecycle.ExecRunner{}, lifecycle.NewFetcher(), cfg.NodeBin)
	return store, lc, nil
}

func runUp(cmd *cobra.Command) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	zl := newConsoleLogger(cfg.LogLevel)

	store, lc, err := buildRuntime(cfg)
	if err != nil {
		return err
	}
	runLog, err := installog.Open(store.Root(), zl)
	if err != nil {
		return err
	}
	defer runLog.Close()

	orc := orchestrator.New(cfg, hostcheck.NewValidator(), hostcheck.NewProfiler(), modelsel.New(), store, lc, runLog)

	if cfg.APIAddr != "" {
		httpapi.SetLogger(zl)
		srv := &http.Server{Addr: cfg.APIAddr, Handler: httpapi.NewRouter(orc)}
		go func() {
			zl.Info().Str("addr", cfg.APIAddr).Msg("status API listening")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				zl.Error().Err(err).Msg("status API error")
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}

	// Preflight failures abort before any node is touched; the non-zero
	// exit comes from cobra propagating the error.
	if err := orc.Provision(); err != nil {
		return err
	}
	return orc.RunMenu(os.Stdin, os.Stdout)
}

func runStatus(cmd *cobra.Command) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	store, lc, err := buildRuntime(cfg)
	if err != nil {
		return err
	}
	if err := store.Discover(); err != nil {
		return err
	}
	records := store.Snapshot()
	if len(records) == 0 {
		fmt.Printf("no nodes under %s\n", store.Root())
		return nil
	}
	for _, r := range records {
		st, err := lc.Status(r.Index)
		if err != nil {
			return err
		}
		fmt.Printf("node %-2d  %-13s port %-5d dir %s\n", r.Index, st, r.Port, r.Dir)
	}
	return nil
}

func runNodeOp(cmd *cobra.Command, arg, op string) error {
	index, err := strconv.Atoi(arg)
	if err != nil || index < 1 {
		return fmt.Errorf("invalid node index %q", arg)
	}
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	store, lc, err := buildRuntime(cfg)
	if err != nil {
		return err
	}
	if err := store.Discover(); err != nil {
		return err
	}
	if _, ok := store.Get(index); !ok {
		return fmt.Errorf("no node %d under %s", index, store.Root())
	}
	switch op {
	case "start":
		err = lc.Start(index)
	case "stop":
		err = lc.Stop(index)
	case "restart":
		err = lc.Restart(index)
	}
	httpapi.RecordNodeOp(op, err)
	if err != nil {
		return err
	}
	st, _ := lc.Status(index)
	fmt.Printf("node %d %s\n", index, st)
	return nil
}
