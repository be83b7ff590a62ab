package handlers

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"site-cms/pkg/models"
)

// Router wires every route. sessionName names the session cookie.
func (s *Server) Router(sessionName string, store sessions.Store) *gin.Engine {
	r := gin.New()
	r.Use(RecoveryMiddleware(s.logger), LoggerMiddleware(s.logger), s.metrics.Middleware())
	r.Use(sessions.Sessions(sessionName, store))

	if s.templatesGlob != "" {
		r.LoadHTMLGlob(s.templatesGlob)
	}
	if s.staticDir != "" {
		r.Static("/static", s.staticDir)
	}

	r.GET("/health", s.Health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	// --- Auth Routes ---
	r.GET("/login", s.LoginPage)
	r.GET("/login/oauth", s.OAuthLogin)
	r.GET("/auth/callback", s.AuthCallback)
	r.POST("/login/token", s.TokenLogin)
	r.GET("/logout", s.Logout)

	// --- Public site ---
	r.GET("/", s.SitePage)
	r.NoRoute(s.SitePage)

	// --- Admin (Authorized) ---
	admin := r.Group("/admin")
	admin.Use(s.AuthRequired)
	{
		admin.GET("", func(c *gin.Context) { c.HTML(http.StatusOK, "index.html", nil) })
		admin.GET("/preview/pages/:id", s.PreviewPage)
	}

	api := r.Group("/api")
	api.Use(s.AuthRequired)
	{
		for _, kind := range []models.Kind{models.KindBlogs, models.KindStories} {
			g := api.Group("/" + string(kind))
			g.GET("", s.ListContent(kind))
			g.POST("", s.CreateContent(kind))
			g.GET("/:id", s.GetContent(kind))
			g.PUT("/:id", s.UpdateContent(kind))
			g.DELETE("/:id", s.DeleteContent(kind))
			g.GET("/:id/markdown", s.ContentMarkdown(kind))
			g.GET("/:id/preview", s.ContentPreview(kind))
		}

		api.GET("/pages", s.ListPages)
		api.POST("/pages", s.CreatePage)
		api.GET("/pages/:id", s.GetPage)
		api.PUT("/pages/:id", s.UpdatePage)
		api.DELETE("/pages/:id", s.DeletePage)

		api.GET("/modules", s.ListModules)
		api.POST("/modules", s.CreateModule)
		api.POST("/modules/validate", s.ValidateModule)
		api.GET("/modules/:id", s.GetModule)
		api.PUT("/modules/:id", s.UpdateModule)
		api.DELETE("/modules/:id", s.DeleteModule)

		api.GET("/media", s.ListMedia)
		api.POST("/media", s.UploadMedia)
		api.POST("/media/refresh", s.RefreshMedia)
		api.GET("/media/pending/:id", s.PendingMedia)
		api.DELETE("/media/failed/:id", s.DismissFailed)
		api.DELETE("/media/:id", s.DeleteMedia)

		api.GET("/backup/export", s.ExportBackup)
		api.POST("/backup/import", s.ImportBackup)
	}

	return r
}
