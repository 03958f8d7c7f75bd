package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nova-social/nova-faces/internal/api/handlers"
	"github.com/nova-social/nova-faces/internal/api/ws"
	"github.com/nova-social/nova-faces/internal/auth"
	"github.com/nova-social/nova-faces/internal/queue"
	"github.com/nova-social/nova-faces/internal/recognition"
	"github.com/nova-social/nova-faces/internal/storage"
)

type RouterConfig struct {
	APIKey   string
	DB       *storage.PostgresStore
	Media    *storage.MediaStore
	Producer *queue.Producer
	Hub      *ws.Hub
	Service  *recognition.Service
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.DB, cfg.Media, cfg.Producer)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 (with auth)
	v1 := r.Group("/v1")
	v1.Use(auth.APIKeyMiddleware(cfg.APIKey))

	// WebSocket
	v1.GET("/ws", cfg.Hub.HandleWS)

	// Faces
	faceH := handlers.NewFaceHandler(cfg.Service, cfg.Hub)
	v1.POST("/faces/detect", faceH.Detect)
	v1.POST("/faces", faceH.Register)
	v1.POST("/faces/recognize", faceH.Recognize)
	v1.GET("/owners/:id/faces", faceH.ListOwnerFaces)
	v1.DELETE("/owners/:id/faces", faceH.DeleteOwnerFaces)

	// Publications
	pubH := handlers.NewPublicationHandler(cfg.Service, cfg.Producer)
	v1.POST("/publications/analyze", pubH.Analyze)
	v1.POST("/publications/analyze/async", pubH.AnalyzeAsync)

	return r
}
