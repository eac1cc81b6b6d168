package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/mdocs/internal/model"
	"github.com/xxxsen/mdocs/internal/pkg/response"
	"github.com/xxxsen/mdocs/internal/service"
)

type ShareHandler struct {
	documents *service.DocumentService
}

func NewShareHandler(documents *service.DocumentService) *ShareHandler {
	return &ShareHandler{documents: documents}
}

type shareRequest struct {
	IsPublic *bool `json:"is_public"`
}

// publicDocument is what an anonymous reader sees. Owner and bookkeeping
// fields stay private.
type publicDocument struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Ctime   int64  `json:"ctime"`
	Mtime   int64  `json:"mtime"`
}

func toPublicDocument(doc *model.Document) publicDocument {
	return publicDocument{
		ID:      doc.ID,
		Title:   doc.Title,
		Content: doc.Content,
		Ctime:   doc.Ctime,
		Mtime:   doc.Mtime,
	}
}

func (h *ShareHandler) SetStatus(c *gin.Context) {
	var req shareRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsPublic == nil {
		badRequest(c, "is_public is required")
		return
	}
	status, err := h.documents.SetShareStatus(c.Request.Context(), getUserID(c), c.Param("id"), *req.IsPublic)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, status)
}

func (h *ShareHandler) PublicGet(c *gin.Context) {
	doc, err := h.documents.ResolveShared(c.Request.Context(), c.Param("link"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, toPublicDocument(doc))
}
