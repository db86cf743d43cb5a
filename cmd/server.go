package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/mydms/internal/appinfo"
	"github.com/ziadkadry99/mydms/internal/audit"
	"github.com/ziadkadry99/mydms/internal/clientstore"
	"github.com/ziadkadry99/mydms/internal/config"
	"github.com/ziadkadry99/mydms/internal/db"
	"github.com/ziadkadry99/mydms/internal/hub"
	"github.com/ziadkadry99/mydms/internal/notifications"
	"github.com/ziadkadry99/mydms/internal/server"
	"github.com/ziadkadry99/mydms/internal/session"
)

var (
	serverPort     int
	serverAllowAll bool
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the mydms state hub",
	Long:  `Starts the state hub with the application info API, the per-session state WebSocket and the notifications API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = serverPort
		}
		if serverAllowAll {
			cfg.Server.AllowAll = true
		}

		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		srv := server.New(server.Config{
			Host:           cfg.Server.Host,
			Port:           cfg.Server.Port,
			AllowAll:       cfg.Server.AllowAll,
			AllowedOrigins: cfg.Server.AllowedOrigins,
			StaticDir:      cfg.Server.StaticDir,
			SpaIndexFile:   cfg.Server.SpaIndexFile,
		}, database)

		registry := registerAllRoutes(srv, database, cfg)

		// Graceful shutdown.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if cfg.Server.SessionTTL > 0 {
			go registry.Run(ctx, sweepInterval(cfg.Server.SessionTTL))
		}

		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
			registry.CloseAll()
		}()

		fmt.Fprintf(os.Stderr, "mydms server %s starting on %s\n", Version, srv.Addr())
		fmt.Fprintf(os.Stderr, "  Database: %s\n", database.Path())
		fmt.Fprintf(os.Stderr, "  Backend: %s\n", cfg.EffectiveBackendURL())
		if cfg.Server.SessionTTL > 0 {
			fmt.Fprintf(os.Stderr, "  Idle sessions expire after %s\n", cfg.Server.SessionTTL)
		}
		if cfg.Server.StaticDir != "" {
			fmt.Fprintf(os.Stderr, "  Front-end: %s\n", cfg.Server.StaticDir)
		}

		return srv.Start()
	},
}

// registerAllRoutes wires up the feature routes and returns the session
// registry backing the state hub.
func registerAllRoutes(srv *server.Server, database *db.DB, cfg *config.Config) *session.Registry {
	r := srv.Router()

	// Application info
	appinfo.RegisterRoutes(r, appinfo.NewProvider(versionInfo()))

	// Notifications
	notifStore := notifications.NewStore(database)
	dispatcher := notifications.NewDispatcher(notifStore)
	if cfg.Notifications.WebhookURL != "" {
		dispatcher.WithWebhook(cfg.Notifications.WebhookURL, notifications.Severity(cfg.Notifications.MinSeverity))
		logf("Forwarding %s notifications to %s", cfg.Notifications.MinSeverity, cfg.Notifications.WebhookURL)
	}
	notifications.RegisterRoutes(r, notifStore)

	// Sessions and the state hub
	storage := clientstore.NewSQLStore(database)
	registry := session.NewRegistry(func(id string) clientstore.Storage {
		return storage.For(id)
	}, appinfo.NewClient(cfg.EffectiveBackendURL()), dispatcher).WithIdleTTL(cfg.Server.SessionTTL)
	journal := audit.NewStore(database)
	audit.RegisterRoutes(r, journal)
	hub.New(registry).
		WithAudit(journal).
		WithOrigins(cfg.Server.AllowAll, cfg.Server.AllowedOrigins).
		RegisterRoutes(r)

	return registry
}

// sweepInterval checks for idle sessions a few times per TTL, at most once
// a minute.
func sweepInterval(ttl time.Duration) time.Duration {
	if d := ttl / 4; d < time.Minute {
		return max(d, time.Second)
	}
	return time.Minute
}

func init() {
	serverCmd.Flags().IntVarP(&serverPort, "port", "p", 3000, "port to listen on (overrides server.port)")
	serverCmd.Flags().BoolVar(&serverAllowAll, "allow-all", false, "allow all CORS origins (dev mode)")
	rootCmd.AddCommand(serverCmd)
}
