package handler

import (
	"net/http"

	"casestats_backend/internal/events"
	"casestats_backend/internal/statistics/service"
	"casestats_backend/internal/statistics/transport"
	"casestats_backend/platform/httpkit"
	"casestats_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for the statistics bounded context.
type Handler struct {
	ingest *service.Ingest
	query  *service.Query
	bus    events.Bus
	val    *validator.Validator
}

// New creates a new statistics handler.
func New(ingest *service.Ingest, query *service.Query, bus events.Bus, val *validator.Validator) *Handler {
	return &Handler{ingest: ingest, query: query, bus: bus, val: val}
}

// RegisterRoutes registers the ingestion and read routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/case-events", h.IngestCaseEvent)
	rg.POST("/task-events", h.IngestTaskEvent)
	rg.GET("/cases/:id/records", h.ListRecords)
}

// RegisterInternalRoutes registers the operational routes.
func (h *Handler) RegisterInternalRoutes(rg *gin.RouterGroup) {
	rg.POST("/cases/:id/reconcile", h.RequestReconcile)
}

// IngestCaseEvent handles POST /api/v1/case-events
func (h *Handler) IngestCaseEvent(c *gin.Context) {
	var req transport.CaseStatusEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	if err := h.ingest.RecordCaseStatusChange(c.Request.Context(), req.ToParams()); httpkit.HandleError(c, err) {
		return
	}

	httpkit.Accepted(c, transport.EventAcceptedResponse{CaseID: req.CaseID})
}

// IngestTaskEvent handles POST /api/v1/task-events
func (h *Handler) IngestTaskEvent(c *gin.Context) {
	var req transport.TaskEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	if err := h.ingest.RecordTaskEvent(c.Request.Context(), req.ToParams()); httpkit.HandleError(c, err) {
		return
	}

	httpkit.Accepted(c, transport.EventAcceptedResponse{CaseID: req.CaseID, TaskID: req.TaskID})
}

// ListRecords handles GET /api/v1/cases/:id/records
func (h *Handler) ListRecords(c *gin.Context) {
	caseRef := c.Param("id")

	records, err := h.query.RecordsForCase(c.Request.Context(), caseRef)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.NewRecordListResponse(caseRef, records))
}

// RequestReconcile handles POST /api/v1/internal/cases/:id/reconcile.
// Reconciliation itself runs on the worker; the endpoint only announces the
// request so the scheduler can queue it.
func (h *Handler) RequestReconcile(c *gin.Context) {
	caseRef := c.Param("id")
	if caseRef == "" {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, "case id is required")
		return
	}

	h.bus.Publish(c.Request.Context(), events.CaseReconcileRequested{
		BaseEvent: events.NewBaseEvent(),
		CaseRef:   caseRef,
	})

	httpkit.Accepted(c, transport.ReconcileAcceptedResponse{CaseID: caseRef})
}
