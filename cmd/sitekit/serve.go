package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eringen/sitekit"
)

var (
	serveAddr   string
	serveWatch  bool
	serveDB     string
	serveRecord bool
	serveTTL    time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve [dir]",
	Short: "Serve the site with form handling and an admin dashboard",
	Long: `Builds the project and serves the accepted pages. Form sections post to
/forms/<page>/<index>/ and are handled by their named handler. The dashboard
at /admin/ shows the current build, the build history and the received
submissions.

Requires SITEKIT_ADMIN_PASSWORD and SITEKIT_SESSION_SECRET.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default $SITEKIT_ADDR or :3000)")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "rebuild when project files change")
	serveCmd.Flags().StringVar(&serveDB, "db", "", "SQLite database (default <dir>/.sitekit/sitekit.db)")
	serveCmd.Flags().BoolVar(&serveRecord, "record", true, "record every rebuild in the database")
	serveCmd.Flags().DurationVar(&serveTTL, "ttl", 0, "rebuild after this long even without changes")
	serveCmd.Flags().IntVarP(&workers, "workers", "w", 0, "pages assembled concurrently (default GOMAXPROCS)")
}

func runServe(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}
	password := os.Getenv("SITEKIT_ADMIN_PASSWORD")
	secret := os.Getenv("SITEKIT_SESSION_SECRET")
	if password == "" || secret == "" {
		return errors.New("SITEKIT_ADMIN_PASSWORD and SITEKIT_SESSION_SECRET must be set")
	}
	addr := serveAddr
	if addr == "" {
		addr = sitekit.EnvOr("SITEKIT_ADDR", ":3000")
	}
	cookieSecure, _ := strconv.ParseBool(os.Getenv("SITEKIT_COOKIE_SECURE"))

	app := sitekit.New(sitekit.ServeConfig{
		SiteDir:       dir,
		URL:           sitekit.EnvOr("SITEKIT_URL", ""),
		Addr:          addr,
		DatabasePath:  serveDB,
		RecordBuilds:  serveRecord,
		FormRelayURL:  os.Getenv("SITEKIT_FORM_RELAY_URL"),
		AdminPassword: password,
		SessionSecret: secret,
		CookieSecure:  cookieSecure,
		ManifestTTL:   serveTTL,
		Workers:       workers,
		Watch:         serveWatch,
	}, sitekit.ViewFuncs{}, sitekit.WithAppLogger(logger))

	ctx := cmd.Context()
	errCh := make(chan error, 1)
	go func() { errCh <- app.Start(ctx) }()

	select {
	case err := <-errCh:
		_ = app.Close()
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown", zap.Error(err))
		}
		return nil
	}
}
