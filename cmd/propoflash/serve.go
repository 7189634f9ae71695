package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"propoflash/internal/app"
	"propoflash/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long:  `Serves /api/chat, /api/style, the health probes and /metrics until SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			cfg.Server.Port = port
		}
		reg, err := loadRegistry(cmd)
		if err != nil {
			return err
		}

		log, zapLog := newLogger(cfg)
		defer zapLog.Sync()

		a, err := app.Build(cfg, log, reg)
		if err != nil {
			return err
		}
		defer a.Close(context.Background())

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		err = server.New(cfg.Server, a.Handler(), log).Run(ctx)
		log.Info("server stopped", nil)
		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 0, "Port to listen on (overrides server.port)")
}
