package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/mdocs/internal/pkg/response"
	"github.com/xxxsen/mdocs/internal/service"
)

type DocumentHandler struct {
	documents *service.DocumentService
}

func NewDocumentHandler(documents *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

type documentRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type deleteRequest struct {
	IDs []string `json:"ids"`
}

func (h *DocumentHandler) Create(c *gin.Context) {
	var req documentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	doc, err := h.documents.Create(c.Request.Context(), getUserID(c), service.DocumentCreateInput{
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.documents.List(c.Request.Context(), getUserID(c), uint(queryInt(c, "limit")), uint(queryInt(c, "offset")))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, docs)
}

func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.documents.Get(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

func (h *DocumentHandler) Update(c *gin.Context) {
	var req documentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	doc, err := h.documents.Update(c.Request.Context(), getUserID(c), c.Param("id"), service.DocumentUpdateInput{
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

func (h *DocumentHandler) SoftDeleteMany(c *gin.Context) {
	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	count, err := h.documents.SoftDeleteMany(c.Request.Context(), getUserID(c), req.IDs)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": count})
}

func (h *DocumentHandler) ToggleStar(c *gin.Context) {
	starred, err := h.documents.ToggleStar(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"starred": starred})
}

func (h *DocumentHandler) TouchAccess(c *gin.Context) {
	if err := h.documents.TouchAccess(c.Request.Context(), getUserID(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *DocumentHandler) ListRecent(c *gin.Context) {
	docs, err := h.documents.ListRecent(c.Request.Context(), getUserID(c), queryInt(c, "limit"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, docs)
}

func (h *DocumentHandler) ListStarred(c *gin.Context) {
	docs, err := h.documents.ListStarred(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, docs)
}
