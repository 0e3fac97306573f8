package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/mikronet-dev/hotspot-backend/internal/config"
	"github.com/mikronet-dev/hotspot-backend/internal/httpserver"
	"github.com/mikronet-dev/hotspot-backend/internal/migrations"
	"github.com/mikronet-dev/hotspot-backend/internal/paystack"
	"github.com/mikronet-dev/hotspot-backend/internal/provisioning"
	"github.com/mikronet-dev/hotspot-backend/internal/routeros"
	"github.com/mikronet-dev/hotspot-backend/internal/store"
	"github.com/mikronet-dev/hotspot-backend/internal/whatsapp"
	"github.com/mikronet-dev/hotspot-backend/internal/worker"
)

func main() {
	// Best-effort: load environment variables from .env-style files in local
	// development. These calls are safe to ignore in production environments.
	_ = godotenv.Load(
		"../.env",
		".env",
	)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	logDBTarget(cfg.DatabaseURL)
	configureDB(db)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping database: %v", err)
	}

	if err := runMigrationsWithDirtyFix(db); err != nil {
		log.Fatalf("failed to apply database migrations: %v", err)
	}

	st, err := store.New(db)
	if err != nil {
		log.Fatalf("failed to create store: %v", err)
	}
	ledger, err := store.NewLedgerStore(db)
	if err != nil {
		log.Fatalf("failed to create ledger store: %v", err)
	}
	jobStore, err := store.NewJobStore(db)
	if err != nil {
		log.Fatalf("failed to create job store: %v", err)
	}

	gateway := paystack.NewClient(cfg.PaystackSecretKey)
	router := routeros.NewProvisioner(cfg.MikroTikAddress(), cfg.MikroTikUser, cfg.MikroTikPassword)

	var notifier provisioning.Notifier
	if cfg.NotificationsEnabled() {
		notifier = whatsapp.NewClient(cfg.WhatsAppToken, cfg.WhatsAppPhoneNumberID)
	} else {
		log.Println("WhatsApp credentials not set, voucher delivery disabled")
	}

	jobWorker := worker.New(worker.Config{}, jobStore, nil)
	worker.RegisterProvisioningJobs(jobWorker, ledger, st, jobStore, router, notifier)

	pipeline := provisioning.NewService(gateway, st, ledger, st, router, notifier, jobStore)

	srv := httpserver.New(cfg, db, st, pipeline, jobWorker)

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-shutdownCtx.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("graceful shutdown failed: %v", err)
		}
	}()

	log.Printf("backend starting on %s", cfg.ServerAddress)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("server exited with error: %v", err)
		os.Exit(1)
	}
}

func configureDB(db *sql.DB) {
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
}

func runMigrationsWithDirtyFix(db *sql.DB) error {
	if err := migrations.Up(db); err != nil {
		log.Printf("migrations: error detected: %v", err)
		if strings.Contains(err.Error(), "Dirty database version") {
			log.Printf("migrations: dirty database detected, attempting to fix...")
			if fixErr := migrations.FixDirtyDatabase(db); fixErr != nil {
				log.Printf("migrations: failed to fix dirty database: %v", fixErr)
				return err
			}
			return migrations.Up(db)
		}
		return err
	}
	return nil
}

func logDBTarget(dsn string) {
	// Avoid logging secrets: only log hostname + database path.
	u, err := url.Parse(dsn)
	if err != nil {
		log.Printf("db: configured (dsn parse error: %v)", err)
		return
	}
	log.Printf("db: host=%s db=%s", u.Hostname(), strings.TrimPrefix(u.Path, "/"))
}
