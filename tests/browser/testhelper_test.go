package browser_test

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"

	"feeminton/internal/adapters/api"
	"feeminton/internal/adapters/devapi"
	web "feeminton/internal/adapters/http"
	"feeminton/internal/adapters/http/middleware"
	"feeminton/internal/adapters/http/perf"
	"feeminton/internal/adapters/metrics"
	"feeminton/internal/adapters/storage"
	attendanceStore "feeminton/internal/adapters/storage/attendance"
	groupStore "feeminton/internal/adapters/storage/group"
	memberStore "feeminton/internal/adapters/storage/member"
	scheduleStore "feeminton/internal/adapters/storage/schedule"
	"feeminton/internal/domain/organizer"
)

// testApp holds the running front end, its dev API and Playwright handles.
type testApp struct {
	BaseURL string
	API     *httptest.Server
	Client  *api.Client
	DB      *sql.DB
	Server  *http.Server
	PW      *playwright.Playwright
	Browser playwright.Browser
}

// newTestApp seeds a temp SQLite dev API for the current month and starts
// the front end against it.
func newTestApp(t *testing.T) *testApp {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := storage.Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open test DB: %v", err)
	}
	if _, err := storage.SeedDemo(context.Background(), db, time.Now()); err != nil {
		t.Fatalf("failed to seed test DB: %v", err)
	}
	backend := devapi.NewServer(devapi.Stores{
		Groups:      groupStore.NewSQLiteStore(db),
		Members:     memberStore.NewSQLiteStore(db),
		Schedules:   scheduleStore.NewSQLiteStore(db),
		Attendances: attendanceStore.NewSQLiteStore(db),
	}, nil)
	apiSrv := httptest.NewServer(backend.Handler())

	// Find a free port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find free port: %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	// Add test port to CSRF trusted origins before creating mux
	middleware.ExtraTrustedOrigins = append(middleware.ExtraTrustedOrigins,
		fmt.Sprintf("127.0.0.1:%d", port),
		fmt.Sprintf("localhost:%d", port),
	)
	web.RateLimitPerSecond = 1000

	cfg := api.NewConfig(apiSrv.URL + "/api")
	mux := web.NewMux(&web.Services{
		APIs:       api.NewSelector(cfg, nil),
		HTTPClient: apiSrv.Client(),
		Metrics:    metrics.New(),
		Gate:       organizer.Gate{},
	}, perf.NewCollector(perf.DefaultRingSize))
	srv := &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", port),
		Handler: mux,
	}
	go func() {
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("test server error: %v", err)
		}
	}()

	// Wait for server to be ready
	baseURL := fmt.Sprintf("http://127.0.0.1:%d", port)
	for i := 0; i < 50; i++ {
		resp, err := http.Get(baseURL + "/healthz")
		if err == nil {
			resp.Body.Close()
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	// Start Playwright
	pw, err := playwright.Run()
	if err != nil {
		t.Fatalf("failed to start Playwright: %v", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		t.Fatalf("failed to launch browser: %v", err)
	}

	app := &testApp{
		BaseURL: baseURL,
		API:     apiSrv,
		Client:  api.NewClient(cfg, apiSrv.Client()),
		DB:      db,
		Server:  srv,
		PW:      pw,
		Browser: browser,
	}

	t.Cleanup(func() {
		browser.Close()
		pw.Stop()
		srv.Close()
		apiSrv.Close()
		db.Close()
	})

	return app
}

// newPage creates a new browser page (tab).
func (a *testApp) newPage(t *testing.T) playwright.Page {
	t.Helper()
	page, err := a.Browser.NewPage()
	if err != nil {
		t.Fatalf("failed to create page: %v", err)
	}
	t.Cleanup(func() { page.Close() })
	return page
}

// openGroup navigates to the schedules page of group 1 for the current month.
func (a *testApp) openGroup(t *testing.T, page playwright.Page) {
	t.Helper()
	if _, err := page.Goto(a.BaseURL + "/schedules?groupId=1&groupName=Tuesday+Smashers"); err != nil {
		t.Fatalf("failed to navigate to schedules: %v", err)
	}
	if err := page.Locator(".schedule-card").First().WaitFor(playwright.LocatorWaitForOptions{
		Timeout: playwright.Float(5000),
	}); err != nil {
		t.Fatalf("no schedule cards rendered: %v", err)
	}
}
