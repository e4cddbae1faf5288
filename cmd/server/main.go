package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"

	"feeminton/internal/adapters/api"
	emailPkg "feeminton/internal/adapters/email"
	web "feeminton/internal/adapters/http"
	"feeminton/internal/adapters/http/perf"
	"feeminton/internal/adapters/metrics"
	"feeminton/internal/config"
	"feeminton/internal/domain/organizer"
	"feeminton/pkg/logging"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	hashPasscode := flag.String("hash-passcode", "", "print the bcrypt hash of a passcode for FEEMINTON_ORGANIZER_HASH and exit")
	flag.Parse()

	if *hashPasscode != "" {
		hash, err := organizer.HashPasscode(*hashPasscode)
		if err != nil {
			log.Fatalf("failed to hash passcode: %v", err)
		}
		fmt.Println(hash)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logging.Setup(cfg.IsProduction())

	// Upstream REST API: default base plus the allow-list for ?api=
	base := api.ResolveBase(cfg.APIBase, cfg.Env)
	selector := api.NewSelector(base, cfg.APIAllowed)

	// Performance instrumentation: one collector for requests and upstream calls
	collector := perf.NewCollector(perf.DefaultRingSize)
	m := metrics.New()
	httpClient := &http.Client{
		Timeout:   cfg.APITimeout,
		Transport: api.NewTimedTransport(nil, collector, m),
	}

	gate, err := organizer.NewGate(cfg.OrganizerHash)
	if err != nil {
		log.Fatalf("invalid organizer hash: %v", err)
	}
	if !gate.Enabled() {
		log.Println("Organizer gate disabled (set FEEMINTON_ORGANIZER_HASH to require a passcode for edits)")
	}

	// Configure the schedule digest sender
	if cfg.ResendKey != "" {
		web.SetEmailSender(emailPkg.NewResendSender(cfg.ResendKey, cfg.DigestFrom), cfg.DigestFrom, cfg.DigestTo)
		log.Println("Email sender configured (Resend)")
	} else {
		web.SetEmailSender(emailPkg.NewNoopSender(), cfg.DigestFrom, cfg.DigestTo)
		if cfg.IsProduction() && cfg.DigestEnabled() {
			log.Println("WARNING: FEEMINTON_RESEND_KEY is not set, schedule digests are logged only")
		}
	}

	mux := web.NewMux(&web.Services{
		APIs:       selector,
		HTTPClient: httpClient,
		Metrics:    m,
		Gate:       gate,
		Production: cfg.IsProduction(),
	}, collector)

	slog.Info("server_event", "event", "starting", "version", version, "addr", cfg.Addr, "env", cfg.Env, "api", base.Param())

	if err := http.ListenAndServe(cfg.Addr, mux); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
