package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/technohippies/scarlett-sub000/internal/pkg/errcode"
	appErr "github.com/technohippies/scarlett-sub000/internal/pkg/errors"
	"github.com/technohippies/scarlett-sub000/internal/pkg/response"
)

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err))
	switch {
	case appErr.IsNotFound(err):
		response.Error(c, errcode.ErrNotFound, "not found")
	case appErr.IsConfig(err):
		response.Error(c, errcode.ErrBadConfig, "ai provider not configured")
	case appErr.IsProvider(err):
		response.Error(c, errcode.ErrAIUnavailable, "ai provider unavailable")
	case appErr.IsStore(err):
		response.Error(c, errcode.ErrStoreFailed, "storage failure")
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, errcode.ErrInvalid, err.Error())
	case errors.Is(err, appErr.ErrConflict):
		response.Error(c, errcode.ErrConflict, "conflict")
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}
