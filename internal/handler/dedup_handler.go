package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/technohippies/scarlett-sub000/internal/pkg/response"
	"github.com/technohippies/scarlett-sub000/internal/service"
)

type DedupHandler struct {
	dedup *service.DedupService
}

func NewDedupHandler(dedup *service.DedupService) *DedupHandler {
	return &DedupHandler{dedup: dedup}
}

// Run triggers one dedup pass outside the cron cadence.
func (h *DedupHandler) Run(c *gin.Context) {
	result, err := h.dedup.ProcessPendingBatch(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

func (h *DedupHandler) Pending(c *gin.Context) {
	count, err := h.dedup.CountPending(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"pending": count})
}
