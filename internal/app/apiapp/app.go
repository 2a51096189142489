package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Wewst/coffe-pass/internal/config"
	pgrepo "github.com/Wewst/coffe-pass/internal/repo/postgres"
	redrepo "github.com/Wewst/coffe-pass/internal/repo/redis"
	allowancesvc "github.com/Wewst/coffe-pass/internal/services/allowance"
	authsvc "github.com/Wewst/coffe-pass/internal/services/auth"
	partnersvc "github.com/Wewst/coffe-pass/internal/services/partners"
	paymentsvc "github.com/Wewst/coffe-pass/internal/services/payments"
	ratesvc "github.com/Wewst/coffe-pass/internal/services/rate"
	redemptionsvc "github.com/Wewst/coffe-pass/internal/services/redemptions"
	userssvc "github.com/Wewst/coffe-pass/internal/services/users"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
		if err := pgrepo.Ping(ctx, p, 3*time.Second); err != nil {
			log.Warn("postgres unreachable at startup, continuing in degraded mode", zap.Error(err))
		}
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	sessionRepo := redrepo.NewSessionRepo(redisClient)
	rateRepo := redrepo.NewRateRepo(redisClient)

	txManager := pgrepo.NewTxManager(pool)
	userRepo := pgrepo.NewUserRepo(pool)
	allowanceRepo := pgrepo.NewAllowanceRepo(pool)
	paymentRepo := pgrepo.NewPaymentRepo(pool)
	codeRepo := pgrepo.NewCodeRepo(pool)
	partnerRepo := pgrepo.NewPartnerRepo(pool)

	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL)
	verifier := authsvc.NewInitDataVerifier(cfg.Telegram.BotToken)
	userService := userssvc.NewService(userRepo, allowanceRepo)
	authService := authsvc.NewService(verifier, jwtManager, sessionRepo, userService, cfg.Auth.RefreshTTL)
	allowanceService := allowancesvc.NewService(allowanceRepo, paymentRepo)
	paymentService := paymentsvc.NewService(paymentsvc.Dependencies{
		Txs:      txManager,
		Payments: paymentRepo,
		Ledger:   allowanceRepo,
	}, paymentsvc.Config{
		PassPrice: cfg.Pass.Price,
	})
	redemptionService := redemptionsvc.NewService(redemptionsvc.Dependencies{
		Txs:      txManager,
		Codes:    codeRepo,
		Ledger:   allowanceRepo,
		Partners: partnerRepo,
	})
	partnerService := partnersvc.NewService(partnerRepo)
	rateLimiter := ratesvc.NewLimiter(rateRepo, cfg.Pass.CodesPerMinute)

	RegisterRoutes(r, Dependencies{
		AuthService:       authService,
		AllowanceService:  allowanceService,
		PaymentService:    paymentService,
		RedemptionService: redemptionService,
		PartnerService:    partnerService,
		RateLimiter:       rateLimiter,
		Logger:            log,
		Config:            cfg,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		httpRouter: r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}

// Postgres exposes the pool for background jobs sharing the app's lifecycle.
func (a *App) Postgres() *pgxpool.Pool {
	return a.postgres
}
