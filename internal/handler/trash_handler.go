package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mdocs/internal/pkg/response"
	"github.com/xxxsen/mdocs/internal/service"
)

const (
	trashActionRestore         = "restore"
	trashActionPermanentDelete = "permanent_delete"
)

type TrashHandler struct {
	documents *service.DocumentService
}

func NewTrashHandler(documents *service.DocumentService) *TrashHandler {
	return &TrashHandler{documents: documents}
}

type trashActionRequest struct {
	Action string `json:"action"`
	ID     string `json:"id"`
}

// List sweeps the caller's expired trash first so purged entries never show.
func (h *TrashHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	userID := getUserID(c)
	if _, err := h.documents.SweepUser(ctx, userID); err != nil {
		logutil.GetLogger(ctx).Warn("sweep before trash listing failed", zap.String("user_id", userID), zap.Error(err))
	}
	trashed, err := h.documents.ListTrashed(ctx, userID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"documents":       trashed,
		"retention_hours": h.documents.Retention() / 3600,
	})
}

func (h *TrashHandler) Action(c *gin.Context) {
	var req trashActionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ID == "" {
		badRequest(c, "invalid request")
		return
	}
	var (
		ok  bool
		err error
	)
	switch req.Action {
	case trashActionRestore:
		ok, err = h.documents.Restore(c.Request.Context(), getUserID(c), req.ID)
	case trashActionPermanentDelete:
		ok, err = h.documents.PermanentDelete(c.Request.Context(), getUserID(c), req.ID)
	default:
		badRequest(c, "unknown action")
		return
	}
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"success": ok})
}

func (h *TrashHandler) Sweep(c *gin.Context) {
	purged, err := h.documents.SweepUser(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"purged": purged})
}
