// Command server runs the atrium HTTP API.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"atrium/internal/admin"
	"atrium/internal/audit"
	"atrium/internal/authz"
	"atrium/internal/chat"
	"atrium/internal/client"
	"atrium/internal/event"
	"atrium/internal/finance"
	"atrium/internal/platform/config"
	"atrium/internal/platform/database"
	"atrium/internal/platform/logger"
	"atrium/internal/platform/tracer"
	"atrium/internal/storage"
	"atrium/internal/task"
	"atrium/internal/todo"
	"atrium/internal/token"
	"atrium/internal/user"
	dErrors "atrium/pkg/domain-errors"
	"atrium/pkg/platform/middleware/metadata"
	request "atrium/pkg/platform/middleware/request"
	"atrium/pkg/platform/middleware/session"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	dbCfg := database.DefaultConfig()
	dbCfg.URL = cfg.DatabaseURL
	pool, err := database.New(dbCfg)
	if err != nil {
		return err
	}
	if pool == nil {
		log.Warn("DATABASE_URL not set, using in-memory stores")
	} else {
		defer pool.Close() //nolint:errcheck // process exit
	}

	httpMetrics := request.NewMetrics()
	auditMetrics := audit.NewMetrics()
	trc := tracer.NewOTel()

	codec := token.New(cfg.SessionSecret, cfg.SessionTTL)
	resolver := session.NewResolver(token.NewSessionVerifier(codec), cfg.SessionCookieName)

	var (
		db           *sql.DB
		userStore    user.Store
		clientStore  client.Store
		searchStore  client.SearchStore
		taskStore    task.Store
		todoStore    todo.Store
		eventStore   event.Store
		financeStore finance.Store
		financeTx    finance.TxRunner
		chatStore    chat.Store
		fileStore    storage.Store
		auditStore   audit.Store
		browser      admin.Browser
	)
	if pool != nil {
		db = pool.DB()
		userStore = user.NewPostgres(db)
		clientPG := client.NewPostgres(db)
		clientStore, searchStore = clientPG, clientPG
		taskStore = task.NewPostgres(db)
		todoStore = todo.NewPostgres(db)
		eventStore = event.NewPostgres(db)
		financeStore = finance.NewPostgres(db)
		financeTx = database.NewTxManager(db)
		chatStore = chat.NewPostgres(db)
		fileStore = storage.NewPostgres(db)
		auditStore = audit.NewPostgres(db)
		browser = admin.NewPostgresBrowser(db)
	} else {
		userStore = user.NewInMemoryStore()
		clientMem := client.NewInMemoryStore()
		clientStore, searchStore = clientMem, clientMem
		taskStore = task.NewInMemoryStore()
		todoStore = todo.NewInMemoryStore()
		eventStore = event.NewInMemoryStore()
		financeMem := finance.NewInMemoryStore()
		financeStore = financeMem
		financeTx = finance.NewMemoryTx(financeMem)
		chatStore = chat.NewInMemoryStore()
		fileStore = storage.NewInMemoryStore()
		auditStore = audit.NewInMemoryStore()
		browser = admin.NewInMemoryBrowser()
	}

	recorder := audit.NewRecorder(auditStore,
		audit.WithLogger(log),
		audit.WithMetrics(auditMetrics),
		audit.WithTracer(trc),
		audit.WithAsyncBuffer(256),
	)
	defer recorder.Close()

	retention := audit.NewRetention(auditStore, cfg.AuditRetentionDays, cfg.AuditRetentionInterval, log,
		audit.WithRetentionMetrics(auditMetrics),
		audit.WithRetentionTracer(trc),
	)

	userService := user.New(userStore, codec, user.WithLogger(log), user.WithAuditor(recorder))
	clientService := client.New(clientStore, searchStore, client.WithLogger(log), client.WithAuditor(recorder))
	taskService := task.New(taskStore, task.WithLogger(log), task.WithAuditor(recorder))
	todoService := todo.New(todoStore, todo.WithLogger(log), todo.WithAuditor(recorder))
	eventService := event.New(eventStore, event.WithLogger(log), event.WithAuditor(recorder))
	financeService := finance.New(financeStore, financeTx,
		finance.WithLogger(log), finance.WithAuditor(recorder), finance.WithTracer(trc))
	chatService := chat.New(chatStore, chat.WithLogger(log), chat.WithAuditor(recorder))
	storageService := storage.New(fileStore, storage.WithLogger(log), storage.WithAuditor(recorder))
	adminService := admin.New(browser, admin.WithLogger(log), admin.WithAuditor(recorder))

	policy := authz.New(authz.WithMembershipChecker(chatService))

	if err := bootstrapAdmin(context.Background(), userService, log); err != nil {
		return err
	}

	userHandler := user.NewHandler(userService, log, resolver.CookieName(), cfg.SessionTTL)
	userAdminHandler := user.NewAdminHandler(userService, log)
	clientHandler := client.NewHandler(clientService, policy, log)
	taskHandler := task.NewHandler(taskService, policy, log)
	todoHandler := todo.NewHandler(todoService, policy, log)
	eventHandler := event.NewHandler(eventService, policy, log)
	financeHandler := finance.NewHandler(financeService, policy, log)
	chatHandler := chat.NewHandler(chatService, policy, log)
	storageHandler := storage.NewHandler(storageService, policy, log)
	auditHandler := audit.NewHandler(auditStore, retention, log)
	adminHandler := admin.NewHandler(adminService, log)

	metadataMW := metadata.NewMiddleware(&metadata.Config{TrustedProxies: cfg.TrustedProxies})

	r := chi.NewRouter()
	r.Use(request.Recovery(log))
	r.Use(request.RequestID)
	r.Use(metadataMW.Handler)
	r.Use(request.Logger(log))
	r.Use(request.LatencyMiddleware(httpMetrics))
	r.Use(request.ContentTypeJSON)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if pool != nil {
			if err := pool.Health(req.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())

	userHandler.Register(r)

	r.Group(func(r chi.Router) {
		r.Use(session.Require(resolver, log))

		userHandler.RegisterProtected(r)
		clientHandler.Register(r)
		taskHandler.Register(r)
		todoHandler.Register(r)
		eventHandler.Register(r)
		financeHandler.Register(r)
		chatHandler.Register(r)
		storageHandler.Register(r)

		r.Group(func(r chi.Router) {
			r.Use(authz.RequireAdmin(userService, log))

			userAdminHandler.Register(r)
			auditHandler.Register(r)
			adminHandler.Register(r)
		})
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return retention.Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// bootstrapAdmin creates the initial admin account from the environment on
// first start. A conflict means the account already exists.
func bootstrapAdmin(ctx context.Context, users *user.Service, log *slog.Logger) error {
	email := os.Getenv("ATRIUM_ADMIN_EMAIL")
	pass := os.Getenv("ATRIUM_ADMIN_PASSWORD")
	if email == "" || pass == "" {
		return nil
	}

	u, err := users.Create(ctx, &user.CreateUserRequest{
		Email:    email,
		Username: "admin",
		Name:     "Administrator",
		Role:     "admin",
		Password: pass,
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			return nil
		}
		return err
	}
	log.Info("bootstrap admin created", "user_id", u.ID)
	return nil
}
