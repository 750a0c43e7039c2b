package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/akolanti/docrag/internal/bootstrap"
	"github.com/akolanti/docrag/internal/config"
	"github.com/akolanti/docrag/pkg/logger_i"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	app     *bootstrap.App

	success = color.New(color.FgGreen).SprintFunc()
	failure = color.New(color.FgRed).SprintFunc()
	faint   = color.New(color.Faint).SprintFunc()
	heading = color.New(color.Bold).SprintFunc()
)

var rootCmd = &cobra.Command{
	Use:           "ragctl",
	Short:         "Ingest documents and ask questions about them",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		settings, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		// stdout belongs to command output and to the MCP transport
		logger_i.InitWithWriter(os.Stderr, settings.IsProd)

		app, err = bootstrap.Build(cmd.Context(), settings)
		if err != nil {
			return fmt.Errorf("starting services: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if app == nil {
			return nil
		}
		return app.Close()
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, failure("error:"), err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (yaml, json or toml), DOCRAG_* variables override it")
}
