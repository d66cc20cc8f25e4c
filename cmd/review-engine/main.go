// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the review-engine CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/review-engine/internal/logging"
	"github.com/pdiddy/review-engine/internal/metrics"
	"github.com/pdiddy/review-engine/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// loadedSecrets holds credentials loaded from .secrets/ at startup.
	loadedSecrets secrets.Secrets

	logger   *zap.Logger
	recorder *metrics.Recorder
)

// rootCmd is the base command for the review-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "review-engine",
	Short: "Seed and snowball a literature review from a topic",
	Long: `review-engine builds the candidate set for a literature review. The seed
stage resolves a cutoff paper from the topic, generates search phrases,
queries a bibliographic source and keeps only papers older than the cutoff.
The snowball stage reviews the seeds and then follows citations of every
included paper, one round at a time, recording each decision in a registry.

Every stage writes JSON records into --out-dir so runs can be inspected
and resumed.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := viper.BindPFlags(cmd.Flags()); err != nil {
			return fmt.Errorf("binding flags: %w", err)
		}

		l, err := logging.New(viper.GetString("log-level"), viper.GetBool("log-json"))
		if err != nil {
			return err
		}
		logger = l
		recorder = metrics.New()

		s, err := secrets.Load(".secrets/", logger)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", s.Keys())
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logger != nil {
			_ = logger.Sync()
		}
		return recorder.WriteFile(viper.GetString("metrics-file"))
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./review-engine.yaml or ~/.config/review-engine/config.yaml)")
	pf.String("log-level", "warn", "log level: debug, info, warn, error")
	pf.Bool("log-json", false, "write logs as JSON")
	pf.String("metrics-file", "", "write Prometheus metrics to this file on exit")
	pf.String("out-dir", "review", "directory for run records")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("review-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "review-engine"))
		}
	}

	viper.SetEnvPrefix("REVIEW_ENGINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	// Interrupting a run cancels the in-flight stage; nothing from it is
	// committed.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
