package http

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"moff.io/walletauth/internal/auth"
	"moff.io/walletauth/internal/cache"
	"moff.io/walletauth/internal/config"
	"moff.io/walletauth/internal/identity"
	"moff.io/walletauth/internal/wallets"
	"moff.io/walletauth/pkg/concurrent"
	"moff.io/walletauth/pkg/errors"
	"moff.io/walletauth/pkg/log"
	"moff.io/walletauth/pkg/log/middleware"
)

// Deps are the components the routes are served by.
type Deps struct {
	Aggregator *wallets.Aggregator
	Dispatcher *auth.Dispatcher
	// Issuer serves the web3 token grant when set.
	Issuer *identity.Issuer
	// TokenSecret verifies bearer tokens on /me, nil decodes them unverified.
	TokenSecret []byte
}

type Server struct {
	deps Deps

	addr      string
	timeout   time.Duration
	rateLimit int
	statement string
	discovery concurrent.Limiter

	once    sync.Once
	handler http.Handler
	srv     *http.Server
}

func NewServer(deps Deps) *Server {
	return &Server{deps: deps, addr: ":8080", discovery: concurrent.NewLimiter(16)}
}

// Apply reads the http and dispatch sections, it must run before Handler.
func (s *Server) Apply(cfg *config.Configuration) {
	if cfg == nil {
		return
	}
	if cfg.HTTP.Address != "" {
		s.addr = cfg.HTTP.Address
	}
	s.timeout = cfg.HTTP.RequestTimeout
	s.rateLimit = cfg.HTTP.RateLimit
	s.statement = cfg.Dispatch.Statement
	if cfg.HTTP.MaxDiscoveries > 0 {
		s.discovery = concurrent.NewLimiter(cfg.HTTP.MaxDiscoveries)
	}
}

func (s *Server) Handler() http.Handler {
	s.once.Do(func() {
		s.handler = s.routes()
	})
	return s.handler
}

func (s *Server) routes() *gin.Engine {
	if !log.IsDebug() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RecoveredHTTPLog(), middleware.TimeoutHTTP(s.timeout))
	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"ok": true})
	})
	router.GET("/wallets", s.bounded, s.listWallets)
	router.GET("/wallets/flat", s.bounded, s.flatWallets)
	router.GET("/install/:wallet/qr.png", s.installQR)
	router.POST("/login", s.limited, s.bounded, s.login)
	router.GET("/me", s.me)
	if s.deps.Issuer != nil {
		router.POST("/auth/v1/token", s.limited, s.tokenGrant)
	}
	return router
}

// limited applies the per client rate limit when redis is configured.
func (s *Server) limited(ctx *gin.Context) {
	ok, retry := cache.Allow(ctx.Request.Context(), ctx.ClientIP()+":"+ctx.FullPath(), s.rateLimit)
	if ok {
		ctx.Next()
		return
	}
	ctx.Header("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
	ctx.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": "Too many sign-in attempts"})
}

// bounded holds a discovery credential for the rest of the request.
func (s *Server) bounded(ctx *gin.Context) {
	if err := s.discovery.TryAdd(ctx.Request.Context()); err != nil {
		ctx.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"message": "Server is busy, try again later"})
		return
	}
	defer s.discovery.Done()
	ctx.Next()
}

func (s *Server) Start(ctx context.Context) {
	s.srv = &http.Server{Addr: s.addr, Handler: s.Handler()}
	go func() {
		log.Infof("http server listening on %v", s.addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(errors.WrapAndReport(err, "http server"))
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()
}

func (s *Server) Stop() {
	if s.srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		log.Errorf("shutdown http server:%v", err)
	}
}
