package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/san-kum/ltiresp/internal/api"
)

func serve(cmd *cobra.Command, args []string) error {
	cfg, eng, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting api", "addr", cfg.Server.Addr, "origins", cfg.Server.AllowedOrigins)
	return api.New(eng, cfg, logger).ListenAndServe(ctx)
}
