package handler

import (
	"net/http"
	"strconv"

	"fintrack/internal/api/middleware"
	"fintrack/internal/app/service"
	"fintrack/internal/common"
	"fintrack/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type OperationHandler struct {
	operationService *service.OperationService
}

func NewOperationHandler(ops *service.OperationService) *OperationHandler {
	return &OperationHandler{operationService: ops}
}

// RegisterRoutes expects to be mounted behind middleware.Authenticator.
func (h *OperationHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.createOperation)
	r.Get("/", h.listOperations)
	r.Get("/{operationID}", h.getOperation)
	r.Put("/{operationID}", h.updateOperation)
	r.Delete("/{operationID}", h.deleteOperation)
}

func currentUser(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Not authenticated")
	}
	return user, ok
}

func operationID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "operationID"), 10, 64)
	if err != nil {
		v := &common.ValidationError{}
		v.Add("id", "value is not a valid integer")
		common.RespondWithDomainError(w, r, v)
		return 0, false
	}
	return id, true
}

func (h *OperationHandler) createOperation(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req service.CreateOperationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}

	op, err := h.operationService.Create(r.Context(), user.ID, req)
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, op)
}

func (h *OperationHandler) listOperations(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	skip, err := queryInt(r, "skip", 0)
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", service.DefaultListLimit)
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}

	page, err := h.operationService.List(r.Context(), user.ID, service.ListOperationsQuery{
		Skip:      skip,
		Limit:     limit,
		MonthYear: r.URL.Query().Get("month_year"),
	})
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, page)
}

func (h *OperationHandler) getOperation(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := operationID(w, r)
	if !ok {
		return
	}

	op, err := h.operationService.Get(r.Context(), user.ID, id)
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, op)
}

func (h *OperationHandler) updateOperation(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := operationID(w, r)
	if !ok {
		return
	}

	var req service.UpdateOperationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}

	op, err := h.operationService.Update(r.Context(), user.ID, id, req)
	if err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, op)
}

func (h *OperationHandler) deleteOperation(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := operationID(w, r)
	if !ok {
		return
	}

	if err := h.operationService.Delete(r.Context(), user.ID, id); err != nil {
		common.RespondWithDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
