package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eringen/sitekit"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	logLevel  string
	logFormat string
	envFile   string

	logger = zap.NewNop()
)

// errRejected makes the process exit non-zero after a build that rejected
// pages or whole sites; the report has already been printed.
var errRejected = errors.New("some pages or sites were rejected")

var rootCmd = &cobra.Command{
	Use:   "sitekit",
	Short: "Assemble static sites from reusable section templates",
	Long: `sitekit assembles pages from a library of section templates, a site
profile (site.yaml) and page specifications (pages/*.yaml, pages/*.page).
Every page is checked on its own; broken pages are rejected with all their
errors while the rest of the site is still emitted.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
		if !cmd.Flags().Changed("log-level") {
			logLevel = sitekit.EnvOr("SITEKIT_LOG_LEVEL", logLevel)
		}
		l, err := sitekit.NewLogger(logLevel, logFormat)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log format (console or json)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "environment file loaded before running")

	rootCmd.AddCommand(buildCmd, checkCmd, serveCmd, sectionsCmd, newCmd, versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the sitekit version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "sitekit %s\n", version)
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	_ = logger.Sync()
	if err != nil {
		if !errors.Is(err, errRejected) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
