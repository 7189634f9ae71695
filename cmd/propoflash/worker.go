package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"propoflash/internal/app"
	"propoflash/internal/common/camunda"
	"propoflash/internal/common/config"
	"propoflash/internal/server"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the Zeebe job workers",
	Long: `Registers proposal-chat, proposal-style and (when quota is enabled) usage-quota
job workers against the configured broker. Health and metrics stay on HTTP.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := config.ValidateForWorkers(cfg); err != nil {
			return err
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

		client, err := camunda.Connect(ctx, cfg.Camunda, camunda.DefaultRetryConfig, log)
		if err != nil {
			return err
		}
		defer client.Close()

		workers := camunda.StartWorkers(client, cfg, a.Registrations(), log)

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return server.New(cfg.Server, a.Handler(), log).Run(ctx)
		})
		g.Go(func() error {
			<-ctx.Done()
			log.Info("shutdown signal received, stopping workers", nil)
			camunda.StopWorkers(workers, log)
			return nil
		})
		return g.Wait()
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
