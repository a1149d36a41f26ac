package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/fkhayef/roommate-ledger/docs"
	"github.com/fkhayef/roommate-ledger/internal/activity"
	"github.com/fkhayef/roommate-ledger/internal/balance"
	"github.com/fkhayef/roommate-ledger/internal/config"
	"github.com/fkhayef/roommate-ledger/internal/database"
	"github.com/fkhayef/roommate-ledger/internal/expense"
	"github.com/fkhayef/roommate-ledger/internal/ledger"
	"github.com/fkhayef/roommate-ledger/internal/metrics"
	"github.com/fkhayef/roommate-ledger/internal/roommate"
	"github.com/fkhayef/roommate-ledger/internal/settlement"
	mw "github.com/fkhayef/roommate-ledger/pkg/middleware"
)

// @title        Roommate Ledger API
// @version      1.0
// @description  Shared expenses and balances between roommates.
// @BasePath     /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	})))

	// Initialize database connection
	db, err := database.NewPostgresConnection(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	slog.Info("connected to database", "driver", cfg.DatabaseDriver)

	if cfg.AutoMigrate {
		if err := database.Migrate(context.Background(), db); err != nil {
			slog.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
	}

	roommateRepo := roommate.NewRepository(db)
	expenseRepo := expense.NewRepository(db)
	settlementRepo := settlement.NewRepository(db)
	activityRepo := activity.NewRepository(db)

	// Balance engine, rebuilt from the stored history
	book := ledger.NewBook()
	if err := rebuildLedger(context.Background(), book, roommateRepo, expenseRepo, settlementRepo); err != nil {
		slog.Error("failed to rebuild balances", "error", err)
		os.Exit(1)
	}

	// Activity feed is written in the background
	worker := activity.NewWorker(activityRepo, cfg.ActivityBuffer)
	worker.Start()

	// Roommate feature
	roommateService := roommate.NewService(roommateRepo, book, worker)
	roommateHandler := roommate.NewHandler(roommateService)

	// Expense feature
	expenseService := expense.NewService(expenseRepo, book, worker)
	expenseHandler := expense.NewHandler(expenseService)

	// Settlement feature
	settlementService := settlement.NewService(settlementRepo, book, worker)
	settlementHandler := settlement.NewHandler(settlementService)

	// Balance feature
	balanceService := balance.NewService(book, roommateRepo)
	balanceHandler := balance.NewHandler(balanceService)

	// Activity feature
	activityService := activity.NewService(activityRepo)
	activityHandler := activity.NewHandler(activityService)

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	docs.SwaggerInfo.Host = "localhost:" + cfg.Port
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.AuthMode == config.AuthJWT {
			r.Use(mw.JWTAuth([]byte(cfg.JWTSecret)))
		} else {
			r.Use(mw.TestUserMiddleware)
		}

		// Mount feature routers
		r.Mount("/roommates", roommateHandler.Routes())
		r.Mount("/expenses", expenseHandler.Routes())
		r.Mount("/settlements", settlementHandler.Routes())
		r.Mount("/balances", balanceHandler.Routes())
		r.Mount("/activity", activityHandler.Routes())
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port, "auth_mode", cfg.AuthMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	slog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
	worker.Shutdown()
}

// rebuildLedger folds every stored expense and settlement into book.
func rebuildLedger(ctx context.Context, book *ledger.Book, people *roommate.Repository, expenses *expense.Repository, settlements *settlement.Repository) error {
	persons, err := people.ListAll(ctx)
	if err != nil {
		return err
	}
	allExpenses, err := expenses.ListAll(ctx)
	if err != nil {
		return err
	}
	allSettlements, err := settlements.ListAll(ctx)
	if err != nil {
		return err
	}

	if err := book.Rebuild(persons, allExpenses, allSettlements); err != nil {
		return err
	}
	slog.Info("balances rebuilt",
		"roommates", len(persons),
		"expenses", len(allExpenses),
		"settlements", len(allSettlements))
	return nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
