package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xxxsen/mdocs/internal/middleware"
)

type RouterDeps struct {
	Documents *DocumentHandler
	Trash     *TrashHandler
	Shares    *ShareHandler
	Export    *ExportHandler
	JWTSecret []byte
	// ShareLimiter guards the unauthenticated share endpoint. Nil disables it.
	ShareLimiter gin.HandlerFunc
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))
	authGroup.POST("/documents", deps.Documents.Create)
	authGroup.GET("/documents", deps.Documents.List)
	authGroup.DELETE("/documents", deps.Documents.SoftDeleteMany)
	authGroup.GET("/documents/recent", deps.Documents.ListRecent)
	authGroup.GET("/documents/starred", deps.Documents.ListStarred)
	authGroup.GET("/documents/:id", deps.Documents.Get)
	authGroup.PUT("/documents/:id", deps.Documents.Update)
	authGroup.POST("/documents/:id/star", deps.Documents.ToggleStar)
	authGroup.POST("/documents/:id/access", deps.Documents.TouchAccess)
	authGroup.POST("/documents/:id/share", deps.Shares.SetStatus)

	authGroup.GET("/trash", deps.Trash.List)
	authGroup.POST("/trash", deps.Trash.Action)
	authGroup.DELETE("/trash", deps.Trash.Sweep)

	authGroup.GET("/export", deps.Export.Export)
	authGroup.POST("/export/backup", deps.Export.Backup)

	public := api.Group("/public")
	if deps.ShareLimiter != nil {
		public.Use(deps.ShareLimiter)
	}
	public.GET("/share/:link", deps.Shares.PublicGet)

	api.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
