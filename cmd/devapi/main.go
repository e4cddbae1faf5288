package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"feeminton/internal/adapters/devapi"
	"feeminton/internal/adapters/http/middleware"
	"feeminton/internal/adapters/http/perf"
	"feeminton/internal/adapters/storage"
	attendanceStore "feeminton/internal/adapters/storage/attendance"
	groupStore "feeminton/internal/adapters/storage/group"
	memberStore "feeminton/internal/adapters/storage/member"
	scheduleStore "feeminton/internal/adapters/storage/schedule"
	"feeminton/internal/config"
	"feeminton/pkg/logging"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logging.Setup(cfg.IsProduction())

	db, err := storage.Open(cfg.DevAPIDB)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	if cfg.DevAPISeed {
		seeded, err := storage.SeedDemo(context.Background(), db, time.Now())
		if err != nil {
			log.Fatalf("failed to seed database: %v", err)
		}
		if seeded {
			log.Println("Demo groups, members and schedules loaded")
		}
	}

	// Amounts go out as JSON numbers, the way the club API sends them
	decimal.MarshalJSONWithoutQuotes = true

	collector := perf.NewCollector(perf.DefaultRingSize)
	timedDB := storage.NewTimedDB(db, collector)
	srv := devapi.NewServer(devapi.Stores{
		Groups:      groupStore.NewSQLiteStore(timedDB),
		Members:     memberStore.NewSQLiteStore(timedDB),
		Schedules:   scheduleStore.NewSQLiteStore(timedDB),
		Attendances: attendanceStore.NewSQLiteStore(timedDB),
	}, nil)

	handler := middleware.Timing(collector)(srv.Handler())

	log.Printf("Feeminton dev API %s starting on %s (db=%s)", version, cfg.DevAPIAddr, cfg.DevAPIDB)
	if err := http.ListenAndServe(cfg.DevAPIAddr, handler); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
