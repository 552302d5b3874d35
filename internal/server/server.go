package server

import (
	"context"
	"net/http"
	"time"

	auditdomain "github.com/aramabarzani/creditbook/internal/audit/domain"
	"github.com/aramabarzani/creditbook/internal/config"
	customerdomain "github.com/aramabarzani/creditbook/internal/customer/domain"
	ledgerdomain "github.com/aramabarzani/creditbook/internal/ledger/domain"
	licensedomain "github.com/aramabarzani/creditbook/internal/license/domain"
	memberdomain "github.com/aramabarzani/creditbook/internal/member/domain"
	"github.com/aramabarzani/creditbook/internal/observability/logger"
	"github.com/aramabarzani/creditbook/internal/observability/metrics"
	"github.com/aramabarzani/creditbook/internal/observability/tracing"
	ownerdomain "github.com/aramabarzani/creditbook/internal/owner/domain"
	quotadomain "github.com/aramabarzani/creditbook/internal/quota/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterRoutes() }),
	fx.Invoke(RunHTTP),
)

type Params struct {
	fx.In

	Engine      *gin.Engine
	Config      config.Config
	DB          *gorm.DB
	Log         *zap.Logger
	OwnerSvc    ownerdomain.Service
	LicenseSvc  licensedomain.Service
	QuotaSvc    quotadomain.Service
	CustomerSvc customerdomain.Service
	LedgerSvc   ledgerdomain.Service
	MemberSvc   memberdomain.Service
	AuditSvc    auditdomain.Service `optional:"true"`
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	db          *gorm.DB
	log         *zap.Logger
	ownerSvc    ownerdomain.Service
	licenseSvc  licensedomain.Service
	quotaSvc    quotadomain.Service
	customerSvc customerdomain.Service
	ledgerSvc   ledgerdomain.Service
	memberSvc   memberdomain.Service
	auditSvc    auditdomain.Service
}

// NewEngine builds the gin engine with the ambient middleware chain. Route
// registration happens separately so tests can mount a subset.
func NewEngine(cfg config.Config, httpMetrics *metrics.HTTPMetrics) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(logger.GinMiddleware(logger.MiddlewareConfig{
		SkipPaths: []string{"/healthz"},
	}))
	engine.Use(tracing.GinMiddleware("creditbook"))
	engine.Use(metrics.GinMiddleware(httpMetrics))

	limiter := newRateLimiter(cfg.HTTP.RateLimitPerMin, time.Minute)
	engine.Use(func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			AbortWithError(c, rateLimitedError())
			return
		}
		c.Next()
	})

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return engine
}

func NewServer(p Params) *Server {
	return &Server{
		engine:      p.Engine,
		cfg:         p.Config,
		db:          p.DB,
		log:         p.Log.Named("server"),
		ownerSvc:    p.OwnerSvc,
		licenseSvc:  p.LicenseSvc,
		quotaSvc:    p.QuotaSvc,
		customerSvc: p.CustomerSvc,
		ledgerSvc:   p.LedgerSvc,
		memberSvc:   p.MemberSvc,
		auditSvc:    p.AuditSvc,
	}
}

func (s *Server) RegisterRoutes() {
	api := s.engine.Group("/api")

	api.POST("/owners", s.RegisterOwner)

	owners := api.Group("/owners/:id")
	owners.GET("", s.GetOwner)
	owners.GET("/license", s.GetLicense)
	owners.POST("/license/renew", s.RenewLicense)
	owners.GET("/limits/:kind", s.CheckLimit)

	owners.POST("/members", s.CreateMember)
	owners.GET("/members", s.ListMembers)
	owners.POST("/members/:mid/deactivate", s.DeactivateMember)

	owners.POST("/customers", s.CreateCustomer)
	owners.GET("/customers", s.ListCustomers)
	owners.GET("/customers/:cid", s.GetCustomerByID)
	owners.GET("/customers/:cid/ledger", s.GetCustomerLedger)
	owners.POST("/customers/:cid/blacklist", s.SetCustomerBlacklist)
	owners.GET("/customers/:cid/transactions", s.ListTransactions)

	owners.POST("/transactions", s.RecordTransaction)
	owners.POST("/transactions/:tid/settle", s.SettleTransaction)

	api.POST("/internal/test-cleanup", s.TestCleanup)
}

// RunHTTP starts the HTTP listener on fx startup and drains it on shutdown.
func RunHTTP(lc fx.Lifecycle, engine *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      engine,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTP.Addr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			timeout := time.Duration(cfg.HTTP.ShutdownTimeoutS) * time.Second
			shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
