package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/orderdesk/orderdesk-backend/internal/config"
	"github.com/orderdesk/orderdesk-backend/internal/kafkax"
	"github.com/orderdesk/orderdesk-backend/internal/logging"
	"github.com/orderdesk/orderdesk-backend/internal/modules/auth"
	"github.com/orderdesk/orderdesk-backend/internal/modules/notify"
	"github.com/orderdesk/orderdesk-backend/internal/modules/order"
	"github.com/orderdesk/orderdesk-backend/internal/modules/product"
	"github.com/orderdesk/orderdesk-backend/internal/modules/user"
	"github.com/orderdesk/orderdesk-backend/internal/postgres"
	"github.com/orderdesk/orderdesk-backend/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logging.New(cfg.ServiceName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("postgres connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("connected to postgres")

	redisClient := redisx.New(cfg.RedisAddr)
	defer redisClient.Close()

	// Event sinks: redis pub/sub always, kafka only when brokers are set.
	dispatchers := notify.Multi{notify.NewRedisDispatcher(redisClient, log)}
	var producer *kafkax.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = kafkax.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, 1024, log)
		producer.Start(ctx)
		dispatchers = append(dispatchers, notify.NewKafkaDispatcher(producer, log))
		log.Info("kafka producer started", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(30 * time.Second))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	userRepo := user.NewPostgresRepository(db)
	productRepo := product.NewPostgresRepository(db)
	orderRepo := order.NewPostgresRepository(db)
	txManager := postgres.NewTxManager(db)

	authService := auth.NewService(userRepo, cfg.JWTSecret, cfg.TokenTTL)
	authn := auth.Authenticate(authService)
	staffOnly := auth.RequireRole(user.RoleStaff, user.RoleAdmin)
	adminOnly := auth.RequireRole(user.RoleAdmin)

	auth.NewHandler(authService).RegisterRoutes(router)

	userService := user.NewService(userRepo)
	user.NewHandler(userService).RegisterRoutes(router, chainMiddleware(authn, adminOnly))

	productService := product.NewService(productRepo)
	product.NewHandler(productService).RegisterRoutes(router, authn, staffOnly)

	orderService := order.NewService(orderRepo, productRepo, userRepo, txManager, dispatchers, log)
	order.NewHandler(orderService, redisClient).RegisterRoutes(router, authn, staffOnly)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	go func() {
		log.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
	if producer != nil {
		producer.Close()
		producer.WaitClosed()
	}
	log.Info("bye")
}

// chainMiddleware composes middlewares into one, applied left to right.
func chainMiddleware(mws ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}
