package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/technohippies/scarlett-sub000/internal/middleware"
)

type RouterDeps struct {
	Ingest    *IngestHandler
	Retrieval *RetrievalHandler
	Dedup     *DedupHandler
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/visits", deps.Ingest.RecordVisit)
	api.POST("/chat/messages", deps.Ingest.SaveChatMessage)
	api.POST("/bookmarks", deps.Ingest.SaveBookmark)
	api.POST("/learning", deps.Ingest.SaveLearningNote)

	api.POST("/retrieval/search", deps.Retrieval.Search)

	// Manual dedup trigger is throttled; the cron pass is the normal path.
	dedupGroup := api.Group("/dedup")
	dedupGroup.Use(middleware.RateLimit(5 * time.Second))
	dedupGroup.POST("/run", deps.Dedup.Run)
	dedupGroup.GET("/pending", deps.Dedup.Pending)
}
