package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fathurwithyou/silberschatz-sub001/pkg/concurrency"
	"github.com/fathurwithyou/silberschatz-sub001/pkg/config"
	"github.com/fathurwithyou/silberschatz-sub001/pkg/indexmanager"
	"github.com/fathurwithyou/silberschatz-sub001/pkg/logging"
	"github.com/fathurwithyou/silberschatz-sub001/pkg/server"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "silberdbd",
		Short:         "Transaction scheduling and index engine daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCommand())
	return root
}

func newServeCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the daemon and serve the wire protocol",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if configPath != "" {
				loaded, err := config.Load(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			return serve(cfg)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to TOML config file")
	return cmd
}

func serve(cfg config.Config) error {
	if err := logging.Init(logging.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		OutputPath: cfg.Log.Path,
	}); err != nil {
		return err
	}

	algorithm, err := cfg.Algorithm()
	if err != nil {
		return err
	}
	control, err := concurrency.NewManager(algorithm)
	if err != nil {
		return err
	}

	indexes, err := indexmanager.NewManager(cfg.DataDir, cfg.IndexOrder)
	if err != nil {
		return err
	}
	defer indexes.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logrus.WithFields(map[string]any{
		"listen":   cfg.Listen,
		"strategy": algorithm.String(),
	}).Info("starting silberdbd")

	return server.New(cfg.Listen, control, indexes).Serve(ctx)
}
