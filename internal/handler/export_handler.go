package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/mdocs/internal/pkg/response"
	"github.com/xxxsen/mdocs/internal/service"
)

type ExportHandler struct {
	exports *service.ExportService
}

func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

func (h *ExportHandler) Export(c *gin.Context) {
	payload, err := h.exports.Export(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, payload)
}

func (h *ExportHandler) Backup(c *gin.Context) {
	key, err := h.exports.Backup(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"key": key})
}
