package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"carbuy-api/internal/core/auth"
	"carbuy-api/internal/core/config"
	"carbuy-api/internal/core/server"
	"carbuy-api/internal/service"
	"carbuy-api/internal/transport/http/handler"
	mdw "carbuy-api/internal/transport/http/middleware"
)

func NewAdminEngine(l *zap.Logger, svcs *service.Services, jwter *auth.JWTer, cfg *config.Config) *gin.Engine {
	r := server.NewRouter(l, server.Options{Name: cfg.App.Name + "-admin"})

	r.Use(protect(l, cfg.Limits)...)

	// 健康检查
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })

	// 管理端 v1（统一要求 admin 角色）
	admin := r.Group("/admin/v1")
	admin.Use(mdw.AuthJWT(jwter, auth.RoleAdmin))

	NewRegistry(handler.NewAdminHandler(svcs, l)).MountAllAdmin(admin)

	return r
}
