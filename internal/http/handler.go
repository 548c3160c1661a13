package http

import (
	"context"
	"errors"
	"fmt"
	gohttp "net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/hxuan190/balancer-sor/internal/config"
	"github.com/hxuan190/balancer-sor/internal/http/httputil"
	"github.com/hxuan190/balancer-sor/internal/http/middlewares"
	"github.com/hxuan190/balancer-sor/internal/services/sor"
)

const (
	API_VERSION  = "v1"
	HTTP_SERVICE = "http-service"
)

type HTTPService struct {
	container.BaseDIInstance

	sorSvc      SORService
	rateLimiter *middlewares.RateLimiter
	server      *gohttp.Server
	conf        *config.GeneralConfig
}

func (svc *HTTPService) ID() string {
	return HTTP_SERVICE
}

func (svc *HTTPService) Start() error {
	if svc.conf.Env == config.ProdEnv {
		gin.SetMode(gin.ReleaseMode)
	}

	svc.server = &gohttp.Server{
		Addr:              svc.conf.HTTPHost + ":" + svc.conf.HTTPPort,
		Handler:           NewEngine(svc.sorSvc, svc.rateLimiter),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Info().Str("host", svc.conf.HTTPHost).Str("port", svc.conf.HTTPPort).Msg("http server started")

	if err := svc.server.ListenAndServe(); err != nil && err != gohttp.ErrServerClosed {
		return err
	}

	return nil
}

func (svc *HTTPService) Configure(c container.IContainer) error {
	svc.conf = c.GetConfig(config.GENERAL_CONFIG_KEY).(*config.GeneralConfig)
	if svc.conf == nil {
		return errors.New("invalid server config")
	}

	svc.sorSvc = c.Instance(sor.SOR_SERVICE).(*sor.SmartOrderRouter)
	if svc.conf.RateLimit > 0 {
		svc.rateLimiter = middlewares.NewRateLimiter(svc.conf.RateLimit, svc.conf.RateBurst)
	}
	return nil
}

func (svc *HTTPService) Stop() error {
	if svc.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := svc.server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("failed to stop http server")
		return err
	}
	log.Info().Msg("http server stopped gracefully")
	return nil
}

// NewEngine wires middlewares and every handler onto a gin engine. A nil
// limiter disables rate limiting.
func NewEngine(sorSvc SORService, rateLimiter *middlewares.RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	corsConf := cors.DefaultConfig()
	corsConf.AllowAllOrigins = true
	r.Use(cors.New(corsConf))

	r.Use(middlewares.MetricsMiddleware())
	if rateLimiter != nil {
		r.Use(rateLimiter.RateLimitMiddleware())
	}

	r.GET("/health", func(c *gin.Context) {
		stats := sorSvc.Stats()
		status, code := "ok", gohttp.StatusOK
		if stats.Count == 0 {
			status, code = "loading", gohttp.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "pools": stats.Count})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("api")
	pub := api.Group(API_VERSION)
	priv := api.Group(API_VERSION)
	admin := api.Group(fmt.Sprintf("%s/admin", API_VERSION))

	handlers := []httputil.IHttpHandler{
		NewPoolHandler(sorSvc),
		NewQuoteHandler(sorSvc),
		NewSwapHandler(sorSvc),
	}
	setupHandlers(handlers, pub, priv, admin)
	return r
}

func setupHandlers(
	handlers []httputil.IHttpHandler,
	rootPub *gin.RouterGroup,
	rootPriv *gin.RouterGroup,
	rootAdmin *gin.RouterGroup,
) {
	for _, h := range handlers {
		pub := rootPub.Group(h.Root())
		priv := rootPriv.Group(h.Root())
		admin := rootAdmin.Group(h.Root())
		h.SetRoutes(pub, priv, admin)
	}
}
