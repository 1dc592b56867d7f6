package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/technohippies/scarlett-sub000/internal/pkg/errcode"
	"github.com/technohippies/scarlett-sub000/internal/pkg/response"
	"github.com/technohippies/scarlett-sub000/internal/service"
)

type IngestHandler struct {
	capture *service.CaptureService
}

func NewIngestHandler(capture *service.CaptureService) *IngestHandler {
	return &IngestHandler{capture: capture}
}

type visitRequest struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Markdown string `json:"markdown"`
}

func (h *IngestHandler) RecordVisit(c *gin.Context) {
	var req visitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	version, err := h.capture.RecordVisit(c.Request.Context(), req.URL, req.Title, req.Markdown)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"id":     version.ID,
		"status": version.Status,
	})
}

type chatMessageRequest struct {
	ThreadID string `json:"thread_id"`
	Role     string `json:"role"`
	Content  string `json:"content"`
}

func (h *IngestHandler) SaveChatMessage(c *gin.Context) {
	var req chatMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	msg, err := h.capture.SaveChatMessage(c.Request.Context(), req.ThreadID, req.Role, req.Content)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"id": msg.ID})
}

type bookmarkRequest struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Note  string `json:"note"`
}

func (h *IngestHandler) SaveBookmark(c *gin.Context) {
	var req bookmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	bm, err := h.capture.SaveBookmark(c.Request.Context(), req.URL, req.Title, req.Note)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"id": bm.ID})
}

type learningNoteRequest struct {
	Word    string `json:"word"`
	Content string `json:"content"`
}

func (h *IngestHandler) SaveLearningNote(c *gin.Context) {
	var req learningNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	note, err := h.capture.SaveLearningNote(c.Request.Context(), req.Word, req.Content)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"id": note.ID})
}
