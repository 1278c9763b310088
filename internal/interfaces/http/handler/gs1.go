package handler

import (
	"context"
	"encoding/xml"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appgs1 "github.com/erp/gs1bridge/internal/application/gs1"
	"github.com/erp/gs1bridge/internal/domain/delivery"
	"github.com/erp/gs1bridge/internal/domain/gs1"
	"github.com/erp/gs1bridge/internal/infrastructure/logger"
	"github.com/erp/gs1bridge/internal/interfaces/http/dto"
)

// DespatchAdviceProcessor consumes inbound despatch advice messages
type DespatchAdviceProcessor interface {
	ProcessDespatchAdvice(ctx context.Context, msg *gs1.DespatchAdviceMessage) (*appgs1.DespatchResult, error)
}

// OrderResponseProcessor consumes inbound order response messages
type OrderResponseProcessor interface {
	ProcessOrderResponse(ctx context.Context, msg *gs1.OrderResponseMessage) (*appgs1.OrderResponseResult, error)
}

// GS1Handler receives GS1 XML documents from trading partners
type GS1Handler struct {
	BaseHandler
	despatch DespatchAdviceProcessor
	response OrderResponseProcessor
	archive  delivery.Archive
	logger   *zap.Logger
}

// NewGS1Handler creates a GS1Handler. A nil archive skips archival.
func NewGS1Handler(
	despatch DespatchAdviceProcessor,
	response OrderResponseProcessor,
	archive delivery.Archive,
	logger *zap.Logger,
) *GS1Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GS1Handler{
		despatch: despatch,
		response: response,
		archive:  archive,
		logger:   logger,
	}
}

// ReceiveDespatchAdvice handles POST /gs1/despatchAdvice
func (h *GS1Handler) ReceiveDespatchAdvice(c *gin.Context) {
	body, ok := h.readBody(c)
	if !ok {
		return
	}
	var msg gs1.DespatchAdviceMessage
	if err := xml.Unmarshal(body, &msg); err != nil {
		h.BadRequest(c, dto.ErrCodeInvalidXML, "Body is not a despatchAdviceMessage document")
		return
	}

	instanceID := msg.Header.DocumentIdentification.InstanceIdentifier
	ctx := h.requestContext(c, instanceID)
	h.store(ctx, gs1.KindDespatchAdvice, instanceID, body)

	result, err := h.despatch.ProcessDespatchAdvice(ctx, &msg)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.InboundResult{
		Kind:       string(gs1.KindDespatchAdvice),
		MessageID:  instanceID,
		Created:    idStrings(result.Created),
		Completed:  idStrings(result.CompletedOrders),
		Materials:  result.MaterialsCreated,
		Duplicates: result.Duplicates,
	})
}

// ReceiveOrderResponse handles POST /gs1/orderResponse
func (h *GS1Handler) ReceiveOrderResponse(c *gin.Context) {
	body, ok := h.readBody(c)
	if !ok {
		return
	}
	var msg gs1.OrderResponseMessage
	if err := xml.Unmarshal(body, &msg); err != nil {
		h.BadRequest(c, dto.ErrCodeInvalidXML, "Body is not an orderResponseMessage document")
		return
	}

	instanceID := msg.Header.DocumentIdentification.InstanceIdentifier
	ctx := h.requestContext(c, instanceID)
	h.store(ctx, gs1.KindOrderResponse, instanceID, body)

	result, err := h.response.ProcessOrderResponse(ctx, &msg)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.InboundResult{
		Kind:       string(gs1.KindOrderResponse),
		MessageID:  instanceID,
		Updated:    idStrings(result.UpdatedOrders),
		Duplicates: result.Duplicates,
	})
}

func (h *GS1Handler) readBody(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge, "Request body exceeds maximum allowed size")
			return nil, false
		}
		h.BadRequest(c, dto.ErrCodeBadRequest, "Failed to read request body")
		return nil, false
	}
	if len(body) == 0 {
		h.BadRequest(c, dto.ErrCodeBadRequest, "Request body is empty")
		return nil, false
	}
	return body, true
}

func (h *GS1Handler) requestContext(c *gin.Context, instanceID string) context.Context {
	ctx := logger.WithRequestID(c.Request.Context(), getRequestID(c))
	ctx = logger.WithMessageID(ctx, instanceID)
	return delivery.WithPrincipal(ctx, delivery.Principal{Name: "partner:" + c.ClientIP()})
}

// store archives the raw body. The message is processed whether or not
// archival succeeds.
func (h *GS1Handler) store(ctx context.Context, kind gs1.Kind, instanceID string, body []byte) {
	if h.archive == nil {
		return
	}
	id := instanceID
	if id == "" {
		id = uuid.NewString()
	}
	err := h.archive.Store(ctx, delivery.Record{
		ID:        id,
		Kind:      kind,
		Direction: delivery.DirectionInbound,
		Body:      body,
		Status:    "received",
		At:        time.Now().UTC(),
	})
	if err != nil {
		logger.WithLogger(ctx, h.logger).Warn("failed to archive inbound message",
			zap.String("message_kind", string(kind)),
			zap.Error(err),
		)
	}
}

func idStrings(ids []uuid.UUID) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
