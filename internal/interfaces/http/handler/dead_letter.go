package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	appdelivery "github.com/erp/gs1bridge/internal/application/delivery"
	"github.com/erp/gs1bridge/internal/interfaces/http/dto"
)

// DeadLetters is the dead-letter inspection and requeue surface
type DeadLetters interface {
	List(ctx context.Context, filter appdelivery.DeadLetterFilter) (*appdelivery.DeadLetterListResult, error)
	Requeue(ctx context.Context, limit int) (*appdelivery.RequeueResult, error)
}

// DeadLetterHandler exposes the dead-letter queue of the delivery pipeline
type DeadLetterHandler struct {
	BaseHandler
	service DeadLetters
}

// NewDeadLetterHandler creates a DeadLetterHandler
func NewDeadLetterHandler(service DeadLetters) *DeadLetterHandler {
	return &DeadLetterHandler{service: service}
}

// RequeueRequest bounds a requeue pass. Zero requeues everything.
type RequeueRequest struct {
	Limit int `json:"limit" binding:"omitempty,min=0,max=10000"`
}

// List handles GET /gs1/dead-letters
func (h *DeadLetterHandler) List(c *gin.Context) {
	var filter appdelivery.DeadLetterFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, dto.ErrCodeInvalidInput, "Invalid query parameters")
		return
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Requeue handles POST /gs1/dead-letters/requeue. An empty body requeues
// every dead entry.
func (h *DeadLetterHandler) Requeue(c *gin.Context) {
	var req RequeueRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, dto.ErrCodeInvalidInput, "Invalid request body")
			return
		}
	}

	result, err := h.service.Requeue(c.Request.Context(), req.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
