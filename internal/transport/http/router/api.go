package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"carbuy-api/internal/core/config"
	"carbuy-api/internal/core/server"
	"carbuy-api/internal/service"
	"carbuy-api/internal/transport/http/handler"
	mdw "carbuy-api/internal/transport/http/middleware"
)

// NewAPIEngine 用户端：路径与老客户端保持一致，不加版本前缀
func NewAPIEngine(l *zap.Logger, svcs *service.Services, cfg *config.Config) *gin.Engine {
	r := server.NewRouter(l, server.Options{
		Name:        cfg.App.Name,
		CORSOrigins: cfg.App.HTTP.CORSOrigins,
	})

	// 中间件
	r.Use(protect(l, cfg.Limits)...)

	// 健康检查 / 指标
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	reg := NewRegistry(
		handler.NewAccountHandler(svcs.Users, svcs.Sessions, l),
		handler.NewListingHandler(svcs.Listings, svcs.Sessions, l),
		handler.NewFavouriteHandler(svcs.Favourites, svcs.Sessions, l),
	)
	reg.MountAllAPI(&r.RouterGroup)

	return r
}

// protect 两个引擎共用的保护链
func protect(l *zap.Logger, lim config.Limits) []gin.HandlerFunc {
	return []gin.HandlerFunc{
		mdw.RequestID(),
		mdw.Recovery(l),
		mdw.RateLimit(rate.Limit(lim.RPS), lim.Burst),
		mdw.ConcurrencyLimit(lim.MaxConcurrent),
		mdw.MaxBodyBytes(lim.MaxBodyBytes),
		mdw.Timeout(time.Duration(lim.RequestTimeoutSec) * time.Second),
		mdw.Metrics(),
		mdw.AccessLog(l),
	}
}
