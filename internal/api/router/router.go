package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/niosh12/ddeducation/config"
	"github.com/niosh12/ddeducation/internal/api/handler"
	"github.com/niosh12/ddeducation/internal/api/middleware"
	"github.com/niosh12/ddeducation/internal/service"
	"github.com/niosh12/ddeducation/pkg/jwt"
)

// 认证接口限流：每个 IP 每分钟 10 次
const (
	authRateLimit  = 10
	authRateWindow = time.Minute
)

// Setup 初始化并返回 Gin 路由引擎
// blacklist 与 limiter 可为 nil（Redis 不可用时降级）
func Setup(
	cfg *config.Config,
	h *handler.Handler,
	jwtMgr *jwt.Manager,
	blacklist service.TokenBlacklist,
	limiter middleware.RateLimiter,
	roles service.RoleResolver,
	logger *zap.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		auth.Use(middleware.RateLimit(limiter, authRateLimit, authRateWindow))
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
			auth.POST("/admin/login", h.Auth.AdminLogin)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 公共只读
		v1.GET("/price", h.Price.GetPrice)
		v1.GET("/catalog/:class", h.Catalog.GetCatalog)

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, blacklist, logger))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)
			authorized.GET("/price/stream", h.Price.Stream)

			// 学生端
			mine := authorized.Group("/submissions/me")
			{
				mine.GET("", h.Submission.GetMine)
				mine.GET("/stream", h.Submission.Stream)
				mine.PUT("/profile", h.Submission.UpdateProfile)
				mine.POST("/checkout", h.Submission.Checkout)
			}

			payments := authorized.Group("/payments")
			{
				payments.POST("/confirm", h.Payment.Confirm)
				payments.POST("/cancel", h.Payment.Cancel)
			}

			// 管理端（每个请求重新解析角色）
			admin := authorized.Group("/admin")
			admin.Use(middleware.AdminAuth(roles))
			{
				admin.GET("/submissions", h.Admin.ListSubmissions)
				admin.GET("/submissions/stream", h.Admin.Stream)
				admin.GET("/submissions/export", h.Export.ExportSubmissions)
				admin.GET("/submissions/:id", h.Admin.GetSubmission)
				admin.PUT("/submissions/:id", h.Admin.ForceSet)
				admin.POST("/submissions/:id/transitions", h.Admin.Transition)
				admin.GET("/submissions/:id/history", h.Admin.History)

				admin.PUT("/price", h.Price.UpdatePrice)
				admin.PUT("/roles/:id", h.Admin.AssignRole)
			}
		}
	}

	return r
}
