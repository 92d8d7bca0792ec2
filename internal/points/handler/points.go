package handler

import (
	"encoding/json"
	"net/http"

	"bloomly/internal/points/service"
	httputil "bloomly/pkg/http"
	"bloomly/pkg/logger"
	"bloomly/pkg/model"
	"bloomly/pkg/processor"

	"github.com/julienschmidt/httprouter"
)

type PointsHandler struct {
	service service.PointsService
	log     *logger.Logger
}

func NewPointsHandler(service service.PointsService, log *logger.Logger) *PointsHandler {
	return &PointsHandler{
		service: service,
		log:     log,
	}
}

func (h *PointsHandler) InitiateCharge(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.ChargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "InitiateCharge", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	session, err := h.service.InitiateCharge(r.Context(), &req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "InitiateCharge", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, session); err != nil {
		h.log.Error("failed to write created response", "handler", "InitiateCharge", "operation", "WriteCreated", "error", err)
	}
}

// Webhook receives processor confirmations. The HMAC signature is
// verified by middleware before this runs. Unknown event types are
// acknowledged so the processor stops redelivering them.
func (h *PointsHandler) Webhook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var event processor.WebhookEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid webhook payload",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Webhook", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if event.Type != processor.EventCheckoutCompleted {
		h.log.Debug("Ignoring webhook event", "event_type", event.Type)
		if err := httputil.WriteSuccess(w, map[string]bool{"received": true}); err != nil {
			h.log.Error("failed to write success response", "handler", "Webhook", "operation", "WriteSuccess", "error", err)
		}
		return
	}

	if err := h.service.ConfirmCharge(r.Context(), event.SessionID); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Webhook", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, map[string]bool{"received": true}); err != nil {
		h.log.Error("failed to write success response", "handler", "Webhook", "operation", "WriteSuccess", "error", err)
	}
}

func (h *PointsHandler) GetTransaction(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	tx, err := h.service.GetTransaction(r.Context(), id)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetTransaction", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, tx); err != nil {
		h.log.Error("failed to write success response", "handler", "GetTransaction", "operation", "WriteSuccess", "error", err)
	}
}

func (h *PointsHandler) GetPartnerTransactions(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	partnerID := ps.ByName("partnerId")

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetPartnerTransactions", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	txs, err := h.service.GetPartnerTransactions(r.Context(), partnerID, limit, offset)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetPartnerTransactions", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, txs); err != nil {
		h.log.Error("failed to write success response", "handler", "GetPartnerTransactions", "operation", "WriteSuccess", "error", err)
	}
}

func (h *PointsHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/points/charges", h.InitiateCharge)
	router.POST("/api/v1/points/webhook", h.Webhook)
	router.GET("/api/v1/points/transactions/id/:id", h.GetTransaction)
	router.GET("/api/v1/points/partners/:partnerId/transactions", h.GetPartnerTransactions)
}
