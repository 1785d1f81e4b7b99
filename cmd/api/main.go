package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/robinjoseph08/golib/signals"
	"github.com/shelfmates/shelfmates/pkg/config"
	"github.com/shelfmates/shelfmates/pkg/database"
	"github.com/shelfmates/shelfmates/pkg/migrations"
	"github.com/shelfmates/shelfmates/pkg/server"
	"github.com/shelfmates/shelfmates/pkg/tracing"
	"github.com/shelfmates/shelfmates/pkg/version"
	"github.com/spf13/pflag"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx := context.Background()
	log := logger.New()

	fs := pflag.NewFlagSet("shelfmates", pflag.ExitOnError)
	fs.String("config", "", "path to the YAML config file (overrides CONFIG_FILE)")
	fs.String("server-host", "", "host to listen on")
	fs.Int("server-port", 0, "port to listen on")
	fs.String("database-driver", "", "sqlite or postgres")
	fs.String("database-file-path", "", "SQLite database file")
	fs.String("database-url", "", "Postgres connection URL")
	fs.Bool("database-debug", false, "log every query")
	fs.String("quote-delete-policy", "", "preserve or cascade quotes when a book is deleted")
	_ = fs.Parse(os.Args[1:])

	log.Info("starting shelfmates", logger.Data{"version": version.Version})

	cfg, err := config.NewWithFlags(fs)
	if err != nil {
		log.Err(err).Fatal("config error")
	}

	shutdownTracing, err := tracing.Setup(ctx, cfg)
	if err != nil {
		log.Err(err).Fatal("tracing error")
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Err(err).Fatal("database error")
	}

	group, err := migrations.BringUpToDate(ctx, db)
	if err != nil {
		log.Err(err).Fatal("migrations error")
	}
	if group.ID == 0 {
		log.Info("no new migrations to run")
	} else {
		log.Info("migrated to new group", logger.Data{"group_id": group.ID, "migration_names": group.Migrations.String()})
	}

	srv, err := server.New(cfg, db)
	if err != nil {
		log.Err(err).Fatal("server error")
	}

	graceful := signals.Setup()

	go func() {
		lc := net.ListenConfig{}
		listener, err := lc.Listen(ctx, "tcp", cfg.Addr())
		if err != nil {
			log.Err(err).Fatal("failed to bind port")
		}

		// ServerPort may be 0, so log the port we actually got.
		actualPort := listener.Addr().(*net.TCPAddr).Port
		log.Info("server started", logger.Data{
			"host":                cfg.ServerHost,
			"port":                actualPort,
			"database_driver":     cfg.DatabaseDriver,
			"quote_delete_policy": cfg.QuoteDeletePolicy,
		})

		err = srv.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Err(err).Fatal("server stopped")
		}
		log.Info("server stopped")
	}()

	<-graceful
	log.Info("starting graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	err = srv.Shutdown(shutdownCtx)
	if err != nil {
		log.Err(err).Error("server shutdown error")
	}
	log.Info("server shutdown")

	err = shutdownTracing(shutdownCtx)
	if err != nil {
		log.Err(err).Error("tracing shutdown error")
	}

	err = db.Close()
	if err != nil {
		log.Err(err).Error("database close error")
	}
	log.Info("database closed")
}
