package handler

import (
	"encoding/json"
	"net/http"

	"bloomly/internal/settlements/service"
	httputil "bloomly/pkg/http"
	"bloomly/pkg/logger"
	"bloomly/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type SettlementHandler struct {
	service service.SettlementService
	log     *logger.Logger
}

func NewSettlementHandler(service service.SettlementService, log *logger.Logger) *SettlementHandler {
	return &SettlementHandler{
		service: service,
		log:     log,
	}
}

func (h *SettlementHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	settlement, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByID", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, settlement); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SettlementHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAll", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	settlements, total, err := h.service.GetAll(r.Context(), limit, offset)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAll", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WritePaginated(w, settlements, total, limit, int(offset)); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *SettlementHandler) Aggregate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.AggregationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Aggregate", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	settlement, err := h.service.Aggregate(r.Context(), &req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Aggregate", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if settlement == nil {
		if err := httputil.WriteSuccess(w, map[string]string{
			"message": "no eligible bookings in period",
		}); err != nil {
			h.log.Error("failed to write success response", "handler", "Aggregate", "operation", "WriteSuccess", "error", err)
		}
		return
	}

	if err := httputil.WriteCreated(w, settlement); err != nil {
		h.log.Error("failed to write created response", "handler", "Aggregate", "operation", "WriteCreated", "error", err)
	}
}

func (h *SettlementHandler) AggregateAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.BatchAggregationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "AggregateAll", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	result, err := h.service.AggregateAll(r.Context(), &req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "AggregateAll", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, result); err != nil {
		h.log.Error("failed to write success response", "handler", "AggregateAll", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SettlementHandler) Advance(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	var req model.AdvanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Advance", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	settlement, err := h.service.Advance(r.Context(), id, &req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Advance", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, settlement); err != nil {
		h.log.Error("failed to write success response", "handler", "Advance", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SettlementHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/settlements", h.GetAll)
	router.GET("/api/v1/settlements/id/:id", h.GetByID)
	router.POST("/api/v1/settlements/aggregate", h.Aggregate)
	router.POST("/api/v1/settlements/aggregate/all", h.AggregateAll)
	router.POST("/api/v1/settlements/id/:id/advance", h.Advance)
}
