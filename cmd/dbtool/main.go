package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/mikronet-dev/hotspot-backend/internal/config"
	"github.com/mikronet-dev/hotspot-backend/internal/migrations"
	"github.com/mikronet-dev/hotspot-backend/internal/models"
	"github.com/mikronet-dev/hotspot-backend/internal/store"
)

func main() {
	// Load environment variables
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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping database: %v", err)
	}

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "fix":
			log.Printf("Attempting to fix dirty database...")
			if err := migrations.FixDirtyDatabase(db); err != nil {
				log.Fatalf("failed to fix dirty database: %v", err)
			}
			log.Printf("Database fixed successfully")

		case "force":
			if len(os.Args) < 3 {
				log.Fatalf("usage: %s force <version>", os.Args[0])
			}
			version := os.Args[2]
			var v uint
			if _, err := fmt.Sscanf(version, "%d", &v); err != nil {
				log.Fatalf("invalid version number: %s", version)
			}

			log.Printf("Forcing database version to %d...", v)
			if err := migrations.ForceVersion(db, v); err != nil {
				log.Fatalf("failed to force version: %v", err)
			}
			log.Printf("Database version forced to %d", v)

		case "seed-plans":
			path := ""
			if len(os.Args) > 2 {
				path = os.Args[2]
			}
			if err := seedPlans(db, path); err != nil {
				log.Fatalf("failed to seed plans: %v", err)
			}

		case "pending-retries":
			if err := listPendingRetries(db); err != nil {
				log.Fatalf("failed to list pending retries: %v", err)
			}

		default:
			log.Printf("Usage: %s [fix|force <version>|seed-plans [file.json]|pending-retries]", os.Args[0])
			os.Exit(1)
		}
	} else {
		log.Printf("Applying migrations...")
		if err := migrations.Up(db); err != nil {
			log.Fatalf("failed to apply migrations: %v", err)
		}
		log.Printf("Migrations applied")
	}
}

// defaultPlans is the starter catalog used when no seed file is given.
var defaultPlans = []models.Plan{
	{ID: "hourly", Name: "1 Hour", Description: "One hour of internet access", Icon: "clock", Duration: "1h", Price: 100, ProfileName: "1-hour-profile", LimitUptime: "1h"},
	{ID: "daily", Name: "Daily Plan", Description: "24 hours of internet access", Icon: "sun", Duration: "24h", Price: 500, ProfileName: "24-hour-profile", LimitUptime: "24h"},
	{ID: "weekly", Name: "Weekly Plan", Description: "7 days of internet access", Icon: "calendar", Duration: "7d", Price: 2500, ProfileName: "7-day-profile", LimitUptime: "7d"},
}

func seedPlans(db *sql.DB, path string) error {
	plans := defaultPlans
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read seed file: %w", err)
		}
		var fromFile []struct {
			models.Plan
			ProfileName string `json:"profile_name"`
			LimitUptime string `json:"limit_uptime"`
		}
		if err := json.Unmarshal(data, &fromFile); err != nil {
			return fmt.Errorf("parse seed file: %w", err)
		}
		plans = make([]models.Plan, 0, len(fromFile))
		for _, p := range fromFile {
			plan := p.Plan
			plan.ProfileName = p.ProfileName
			plan.LimitUptime = p.LimitUptime
			plans = append(plans, plan)
		}
	}

	st, err := store.New(db)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, plan := range plans {
		if err := st.UpsertPlan(ctx, plan); err != nil {
			return err
		}
		log.Printf("seeded plan %s (%s, %d)", plan.ID, plan.Duration, plan.Price)
	}

	return nil
}

// listPendingRetries prints payments that were captured but are still waiting
// on a successful router write, plus retry jobs that gave up.
func listPendingRetries(db *sql.DB) error {
	ledger, err := store.NewLedgerStore(db)
	if err != nil {
		return err
	}
	jobs, err := store.NewJobStore(db)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	records, err := ledger.ListInFlight(ctx, 100)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		log.Printf("no in-flight payments")
	}
	for _, rec := range records {
		log.Printf("in-flight: reference=%s plan=%s amount=%d reserved_at=%s",
			rec.Reference, rec.PlanID, rec.Amount, rec.CreatedAt.Format(time.RFC3339))
	}

	failed, err := jobs.ListFailed(ctx, models.JobTypeProvisionRetry, 100)
	if err != nil {
		return err
	}

	for _, job := range failed {
		lastError := ""
		if job.LastError != nil {
			lastError = *job.LastError
		}
		log.Printf("exhausted: job=%d reference=%s attempts=%d last_error=%q",
			job.ID, job.Payload.GetString("reference"), job.Attempts, lastError)
	}
	if len(failed) > 0 {
		log.Printf("%d exhausted retry job(s) need manual provisioning", len(failed))
	}

	stats, err := jobs.GetStats(ctx)
	if err != nil {
		return err
	}
	log.Printf("queue: %d pending, %d processing, %d completed, %d failed (%d total)",
		stats.Pending, stats.Processing, stats.Completed, stats.Failed, stats.Total)

	return nil
}
