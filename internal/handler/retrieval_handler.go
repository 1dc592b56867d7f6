package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/technohippies/scarlett-sub000/internal/pkg/errcode"
	"github.com/technohippies/scarlett-sub000/internal/pkg/response"
	"github.com/technohippies/scarlett-sub000/internal/service"
)

type RetrievalHandler struct {
	retrieval *service.RetrievalService
}

func NewRetrievalHandler(retrieval *service.RetrievalService) *RetrievalHandler {
	return &RetrievalHandler{retrieval: retrieval}
}

type searchRequest struct {
	Query             string  `json:"query"`
	ModelID           string  `json:"model_id"`
	MaxResults        int     `json:"max_results"`
	MinRelevanceScore float64 `json:"min_relevance_score"`
}

func (h *RetrievalHandler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		response.Error(c, errcode.ErrInvalid, "query required")
		return
	}
	rc, err := h.retrieval.PerformSearch(c.Request.Context(), req.Query, req.ModelID, &service.RetrievalOptions{
		MaxResults:        req.MaxResults,
		MinRelevanceScore: req.MinRelevanceScore,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"context":   rc,
		"formatted": service.FormatContext(rc),
	})
}
