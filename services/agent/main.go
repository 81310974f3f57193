package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/attendance/internal/config"
	"github.com/attendance/internal/handler"
	"github.com/attendance/internal/logger"
	"github.com/attendance/internal/middleware"
	"github.com/attendance/internal/oracle"
	"github.com/attendance/internal/push"
	"github.com/attendance/internal/repository"
	"github.com/attendance/internal/session"
	"github.com/attendance/internal/startup"
	"github.com/attendance/internal/storage"
	"github.com/attendance/internal/storage/pgstore"
	"github.com/attendance/internal/ws"
	"github.com/attendance/migrations"
)

func main() {
	logger.SetPrefix("agent")
	migrate := flag.Bool("migrate", false, "run database migrations and exit")
	dev := flag.Bool("dev", false, "start with embedded PostgreSQL and no external Redis")
	flag.Parse()

	logger.Info("starting attendance agent")
	cfg := config.Load()

	var embeddedDB *embeddedpostgres.EmbeddedPostgres
	if *dev {
		var err error
		embeddedDB, err = startEmbeddedPostgres(cfg)
		if err != nil {
			logger.Errorf("embedded postgres: %v", err)
			os.Exit(1)
		}
		defer func() {
			logger.Info("stopping embedded postgres...")
			if err := embeddedDB.Stop(); err != nil {
				logger.Errorf("embedded postgres stop: %v", err)
			}
		}()
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL())
	if err != nil {
		logger.Errorf("parse db config: %v", err)
		os.Exit(1)
	}
	poolCfg.MaxConns = int32(cfg.DBMaxConnections())
	poolCfg.MinConns = 4

	pool := startup.ConnectDBWithRetry(poolCfg, 60*time.Second, "")
	defer pool.Close()

	runMigrations(pool)
	if *migrate && !*dev {
		return
	}
	logger.Info("database connected, migrations applied")

	journalRepo := repository.NewJournalRepository(pool)
	sessionRepo := repository.NewSessionStateRepository(pool)

	// Кэш открытых смен: Redis в обычном режиме, Postgres в -dev.
	var store storage.SessionStore
	if *dev {
		store = pgstore.New(sessionRepo)
		logger.Info("session store: postgres (-dev)")
	} else {
		store = startup.ConnectRedisWithRetry(cfg.Redis.URL, 60*time.Second, "")
		logger.Info("session store: redis")
	}
	defer store.Close()

	hrClient := oracle.NewClient(cfg.HRServiceURL, cfg.HRServiceToken)
	pushClient := push.NewClient(cfg.PushServiceURL)

	sessions := session.NewManager(session.Deps{
		Store:    store,
		Oracle:   hrClient,
		Journal:  journalRepo,
		Notifier: pushClient,
	})
	defer sessions.Shutdown()

	hubCtx, hubCancel := context.WithCancel(context.Background())
	hub := ws.NewHub(sessions, cfg.MaxWSConnections)
	sessions.SetListener(hub)

	var hubWg sync.WaitGroup
	hubWg.Add(1)
	go func() {
		defer hubWg.Done()
		hub.Run(hubCtx)
	}()

	attendanceH := handler.NewAttendanceHandler(sessions, hrClient, journalRepo)
	correctionH := handler.NewCorrectionHandler(hrClient)
	configH := handler.NewConfigHandler(cfg)
	pushH := handler.NewPushHandler(pushClient)
	wsH := handler.NewWSHandler(hub, cfg.CORSAllowedOrigins)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(middleware.RecoverJSON)
	// Не сжимать WebSocket — иначе ResponseWriter не реализует http.Hijacker и upgrade даёт 500.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if strings.EqualFold(req.Header.Get("Upgrade"), "websocket") {
				next.ServeHTTP(w, req)
				return
			}
			chimw.Compress(5)(next).ServeHTTP(w, req)
		})
	})
	r.Use(middleware.RequestLog)
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.RateLimitAPI)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.CORSAllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Employee-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK); w.Write([]byte("ok")) })
	r.Get("/api/config/push", configH.GetPushConfig)

	// Идентификация: сервис авторизации в обычном режиме, X-Employee-Id в -dev.
	identity := middleware.DevIdentity
	if cfg.AuthServiceURL != "" {
		identity = middleware.IdentityValidate(cfg.AuthServiceURL, nil)
	} else if !*dev {
		logger.Errorf("AUTH_SERVICE_URL не задан; вне -dev это недопустимо")
		os.Exit(1)
	}

	r.Group(func(r chi.Router) {
		r.Use(identity)
		r.Post("/api/attendance/geo-checkin", attendanceH.CheckIn)
		r.Post("/api/attendance/geo-checkout", attendanceH.CheckOut)
		r.Get("/api/attendance/status", attendanceH.Status)
		r.Post("/api/attendance/activate", attendanceH.Activate)
		r.Post("/api/attendance/deactivate", attendanceH.Deactivate)
		r.Get("/api/attendance/summary", attendanceH.Summary)
		r.Get("/api/attendance/journal", attendanceH.Journal)
		r.Get("/api/attendance/correction", correctionH.Get)
		r.Post("/api/attendance/correction", correctionH.Submit)
		r.Get("/api/attendance/correction-requests", correctionH.List)
		r.Post("/api/push/subscribe", pushH.Subscribe)
		r.Delete("/api/push/subscribe", pushH.Unsubscribe)
		r.Get("/ws", wsH.ServeWS)
	})

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	var srvWg sync.WaitGroup
	errCh := make(chan error, 1)
	srvWg.Add(1)
	go func() {
		defer srvWg.Done()
		logger.Infof("server listening on %s", cfg.ServerAddr)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Errorf("server error: %v", err)
			os.Exit(1)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server shutdown: %v", err)
	}
	logger.Info("server stopped accepting connections")
	hubCancel()
	hubWg.Wait()
	logger.Info("hub stopped")
	srvWg.Wait()
	logger.Info("server goroutine exited")
}

func runMigrations(pool *pgxpool.Pool) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	entries, err := migrations.Files.ReadDir(".")
	if err != nil {
		logger.Errorf("read migrations: %v", err)
		os.Exit(1)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		data, err := migrations.Files.ReadFile(name)
		if err != nil {
			logger.Errorf("read migration %s: %v", name, err)
			os.Exit(1)
		}
		if _, err := pool.Exec(ctx, string(data)); err != nil {
			logger.Errorf("run migration %s: %v", name, err)
			os.Exit(1)
		}
	}
	logger.Info("migrations applied")
}

func startEmbeddedPostgres(cfg *config.Config) (*embeddedpostgres.EmbeddedPostgres, error) {
	const (
		port     = 5432
		user     = "attendance"
		password = "attendance_secret"
		database = "attendance"
	)

	dataDir := filepath.Join(".", ".pgdata")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create pgdata dir: %w", err)
	}

	db := embeddedpostgres.NewDatabase(
		embeddedpostgres.DefaultConfig().
			Port(port).
			Username(user).
			Password(password).
			Database(database).
			DataPath(dataDir).
			RuntimePath(filepath.Join(os.TempDir(), "embedded-pg-runtime")),
	)

	logger.Info("starting embedded PostgreSQL...")
	if err := db.Start(); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}

	cfg.Database.URL = fmt.Sprintf(
		"postgres://%s:%s@localhost:%d/%s?sslmode=disable",
		user, password, port, database,
	)
	logger.Infof("embedded PostgreSQL running on port %d", port)
	return db, nil
}
