package web

import (
	"crypto/rand"
	"embed"
	"encoding/hex"
	"io/fs"
	"log"
	"net/http"
	"os"
	"time"

	"feeminton/internal/adapters/api"
	"feeminton/internal/adapters/email"
	"feeminton/internal/adapters/http/middleware"
	"feeminton/internal/adapters/http/perf"
	"feeminton/internal/adapters/metrics"
	"feeminton/internal/domain/organizer"
)

//go:embed templates static
var assets embed.FS

// Services holds everything the handlers call out to.
type Services struct {
	APIs       *api.Selector
	HTTPClient *http.Client     // shared by every API client; carries the timeout
	Metrics    *metrics.Metrics // optional
	Gate       organizer.Gate
	Production bool
}

// loadCSRFKey reads the CSRF secret from FEEMINTON_CSRF_KEY (hex-encoded, 32 bytes).
// In production, the key MUST be set. In development, a random key is generated per startup.
func loadCSRFKey(production bool) []byte {
	if keyHex := os.Getenv("FEEMINTON_CSRF_KEY"); keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil || len(key) != 32 {
			log.Fatal("FEEMINTON_CSRF_KEY must be 64 hex characters (32 bytes)")
		}
		return key
	}
	if production {
		log.Fatal("FEEMINTON_CSRF_KEY is required in production")
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		log.Fatalf("failed to generate CSRF key: %v", err)
	}
	log.Println("WARNING: using random CSRF key (forms won't survive restart). Set FEEMINTON_CSRF_KEY for production.")
	return key
}

// Global services instance (set by NewMux)
var services *Services

// Global session store instance
var sessions *middleware.SessionStore

// Global schedule view controllers, one per session, API base and group
var views *ViewRegistry

// RateLimitPerSecond controls the per-IP rate limit. Tests can increase this.
var RateLimitPerSecond = 10

// Global perf collector (set by NewMux)
var perfCollector *perf.Collector

// Global email sender instance (set by SetEmailSender)
var emailSender email.Sender = email.NewNoopSender()

// Digest addressing; an empty digestTo disables the digest.
var digestFrom string
var digestTo []string

// SetEmailSender sets the sender and addresses of the schedule digest.
func SetEmailSender(sender email.Sender, from string, to []string) {
	emailSender = sender
	digestFrom = from
	digestTo = to
}

// NewMux wires HTTP handlers for the app. /metrics and /healthz sit outside
// the session and CSRF chain so scrapers do not mint sessions.
func NewMux(s *Services, collector *perf.Collector) http.Handler {
	services = s
	perfCollector = collector
	sessions = middleware.NewSessionStore()
	views = NewViewRegistry(middleware.SessionTTL)
	middleware.SecureCookies = s.Production

	mux := http.NewServeMux()
	static, err := fs.Sub(assets, "static")
	if err != nil {
		log.Fatalf("static assets missing: %v", err)
	}
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	registerRoutes(mux)

	// CSRF key: 32-byte hex-encoded secret from env var
	csrfKey := loadCSRFKey(s.Production)

	// Rate limiter: configurable requests per second per IP (OWASP A04)
	limiter := middleware.NewRateLimiter(RateLimitPerSecond, time.Second)

	// Apply middleware: Timing -> RateLimit -> ViewSession -> CSRF -> SecurityHeaders -> Mux
	app := middleware.Chain(mux,
		middleware.SecurityHeaders,
		middleware.CSRF(csrfKey),
		middleware.ViewSession(sessions),
		middleware.RateLimit(limiter),
		middleware.Timing(collector),
	)

	root := http.NewServeMux()
	root.HandleFunc("/healthz", handleHealthz)
	if s.Metrics != nil {
		root.Handle("/metrics", s.Metrics.Handler())
	}
	root.Handle("/", app)
	return root
}
