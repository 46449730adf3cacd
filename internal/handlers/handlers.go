package handlers

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/AdrianLinares/petcare-app-sub000/internal/access"
	"github.com/AdrianLinares/petcare-app-sub000/internal/config"
	"github.com/AdrianLinares/petcare-app-sub000/internal/metrics"
	"github.com/AdrianLinares/petcare-app-sub000/internal/middleware"
	"github.com/AdrianLinares/petcare-app-sub000/internal/models"
	"github.com/AdrianLinares/petcare-app-sub000/internal/repository"
	"github.com/AdrianLinares/petcare-app-sub000/internal/security"
	"github.com/AdrianLinares/petcare-app-sub000/internal/service"
)

type RecoveryAPI interface {
	RequestReset(ctx context.Context, email string) service.RequestResetResult
	ValidateToken(ctx context.Context, secret string) (models.ResetToken, error)
	CompleteReset(ctx context.Context, secret string, newPassword string) error
}

type AccountAPI interface {
	Describe(actor models.Account) service.AccessSummary
	Create(ctx context.Context, actor models.Account, input service.CreateAccountInput) (models.Account, error)
	ChangeRole(ctx context.Context, actor models.Account, targetID string, role models.Role, tier models.AdminTier) (models.Account, error)
	ChangeEmail(ctx context.Context, actor models.Account, targetID string, email string) (models.Account, error)
	Remove(ctx context.Context, actor models.Account, targetID string) error
	ChangePassword(ctx context.Context, actor models.Account, current string, next string) error
	List(ctx context.Context, actor models.Account, limit, offset int) ([]models.Account, error)
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type HandlerSet struct {
	log          zerolog.Logger
	cfg          *config.AppConfig
	recovery     RecoveryAPI
	accounts     AccountAPI
	accountStore middleware.AccountGetter
	metrics      *metrics.Recorder
	checks       map[string]HealthCheck
}

func NewHandlerSet(
	log zerolog.Logger,
	db *pgxpool.Pool,
	cache *redis.Client,
	mailer service.Mailer,
	rec *metrics.Recorder,
	cfg *config.AppConfig,
) (HandlerSet, *service.RecoveryService, error) {
	accountRepo := repository.NewAccountRepository(db)
	tokenRepo := repository.NewResetTokenRepository(db)

	policy := security.PasswordPolicy{
		MinLength:        cfg.Password.MinLength,
		RequireMixedCase: cfg.Password.RequireMixedCase,
		RequireDigit:     cfg.Password.RequireDigit,
		RequireSymbol:    cfg.Password.RequireSymbol,
	}

	recovery, err := service.NewRecoveryService(accountRepo, tokenRepo, mailer, cfg.Recovery.LinkBaseURL, log,
		service.WithTokenTTL(cfg.Recovery.TokenTTL),
		service.WithPolicy(policy),
		service.WithRecoveryMetrics(rec),
	)
	if err != nil {
		return HandlerSet{}, nil, fmt.Errorf("recovery service: %w", err)
	}

	accounts := service.NewAccountService(accountRepo, tokenRepo, mailer, log,
		service.WithAccountPolicy(policy),
		service.WithAccountMetrics(rec),
	)

	return NewHandlerSetWith(log, cfg, Dependencies{
		Recovery:     recovery,
		Accounts:     accounts,
		AccountStore: accountRepo,
		Metrics:      rec,
		Checks: map[string]HealthCheck{
			"database": db.Ping,
			"cache":    func(ctx context.Context) error { return cache.Ping(ctx).Err() },
		},
	}), recovery, nil
}

// Dependencies are the services a HandlerSet routes to.
type Dependencies struct {
	Recovery     RecoveryAPI
	Accounts     AccountAPI
	AccountStore middleware.AccountGetter
	Metrics      *metrics.Recorder
	Checks       map[string]HealthCheck
}

func NewHandlerSetWith(log zerolog.Logger, cfg *config.AppConfig, deps Dependencies) HandlerSet {
	return HandlerSet{
		log:          log,
		cfg:          cfg,
		recovery:     deps.Recovery,
		accounts:     deps.Accounts,
		accountStore: deps.AccountStore,
		metrics:      deps.Metrics,
		checks:       deps.Checks,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)
	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}

	v1 := router.Group("/v1")
	{
		password := v1.Group("/password")
		password.Use(middleware.RateLimit(h.cfg.Recovery.RatePerMinute, h.cfg.Recovery.RateBurst))
		password.POST("/forgot", h.ForgotPassword)
		password.GET("/reset", h.ValidateResetToken)
		password.POST("/reset", h.ResetPassword)
	}

	accounts := v1.Group("/accounts")
	accounts.Use(middleware.Auth(h.cfg.Security.JWTAccessSecret, h.accountStore))
	{
		accounts.GET("/me", h.Me)
		accounts.PUT("/me/password", h.ChangePassword)
		accounts.GET("", middleware.RequireCapability(h.metrics, access.ViewAllAccounts), h.ListAccounts)
		accounts.POST("", middleware.RequireCapability(h.metrics, access.CreateAccounts), h.CreateAccount)
		accounts.PATCH("/:id/role", h.ChangeRole)
		accounts.PATCH("/:id/email", h.ChangeEmail)
		accounts.DELETE("/:id", middleware.RequireCapability(h.metrics, access.DeleteAccounts), h.RemoveAccount)
	}
}
