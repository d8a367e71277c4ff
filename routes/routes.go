package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"checkin-dashboard/config"
	"checkin-dashboard/controllers"
	"checkin-dashboard/middleware"
	"checkin-dashboard/views"
)

// SetupRouter wires the dashboard pages, the JSON API and the static image
// storage onto one engine.
func SetupRouter(
	cfg *config.Config,
	dc *controllers.DashboardController,
	cc *controllers.CheckInController,
	log *zap.Logger,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger(log))
	r.MaxMultipartMemory = cfg.Store.MaxUploadBytes + 1<<20
	r.SetHTMLTemplate(views.Templates())
	r.Static("/files", cfg.Store.StorageBucket)

	allowCredentials := true
	for _, origin := range cfg.CORSOrigins {
		if origin == "*" {
			allowCredentials = false
			break
		}
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", middleware.APIKeyHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: allowCredentials,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Server-rendered dashboard
	r.GET("/", dc.Mount)
	page := r.Group("/s/:id")
	{
		page.GET("", dc.Show)
		page.POST("/form/open", dc.PageOpenForm)
		page.POST("/form/basic", dc.PageConfirmBasic)
		page.POST("/form/detail", dc.PageConfirmDetail)
		page.POST("/form/cancel", dc.PageCancelForm)
		page.POST("/form/dismiss", dc.PageDismissNotice)
		page.GET("/form/preview", dc.Preview)
	}

	api := r.Group("/api", middleware.APIKey(cfg.Store.APIKey))
	{
		sessions := api.Group("/sessions")
		{
			sessions.POST("", dc.CreateSession)
			sessions.GET("/:id", dc.GetSession)
			sessions.POST("/:id/form/open", dc.OpenForm)
			sessions.PATCH("/:id/form/fields", dc.UpdateFields)
			sessions.PUT("/:id/form/image", dc.AttachImage)
			sessions.POST("/:id/form/basic", dc.ConfirmBasic)
			sessions.POST("/:id/form/detail", dc.ConfirmDetail)
			sessions.POST("/:id/form/cancel", dc.CancelForm)
			sessions.POST("/:id/form/dismiss", dc.DismissNotice)
			sessions.GET("/:id/form/preview", dc.Preview)
		}

		checkins := api.Group("/checkins")
		{
			checkins.GET("", cc.List)
			checkins.GET("/export", cc.Export)
		}
	}

	return r
}
