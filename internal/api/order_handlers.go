package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/kitchenlane/catering-ops/internal/auth"
	"github.com/kitchenlane/catering-ops/internal/lifecycle"
	"github.com/kitchenlane/catering-ops/internal/models"
	"github.com/kitchenlane/catering-ops/internal/service"
)

func (s *Server) getOrdersHandler(w http.ResponseWriter, r *http.Request) {
	var statuses []models.OrderStatus

	if raw := r.URL.Query().Get("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status, err := models.ParseOrderStatus(strings.TrimSpace(part))
			if err != nil {
				s.respondWithError(w, http.StatusBadRequest, err.Error())
				return
			}
			statuses = append(statuses, status)
		}
	}

	orders, err := s.orderService.ListOrders(r.Context(), statuses...)

	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    orders,
	})
}

func (s *Server) createOrderHandler(w http.ResponseWriter, r *http.Request) {
	role, ok := auth.RoleFromContext(r.Context())

	if !ok || !lifecycle.CanMutateOrders(role) {
		s.respondWithError(w, http.StatusForbidden, "only administrators can create orders")
		return
	}

	var draft models.OrderDraft

	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	defer r.Body.Close()

	order, err := s.orderService.CreateOrder(r.Context(), &draft)

	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusCreated, ApiResponse{
		Success: true,
		Data:    order,
	})
}

func (s *Server) getOrderByIDHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	order, err := s.orderService.GetOrder(r.Context(), id)

	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    order,
	})
}

func (s *Server) updateOrderHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	role, ok := auth.RoleFromContext(r.Context())

	if !ok {
		s.respondWithError(w, http.StatusUnauthorized, "missing role")
		return
	}

	var edit service.OrderEdit

	if err := json.NewDecoder(r.Body).Decode(&edit); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	defer r.Body.Close()

	order, err := s.orderService.UpdateOrder(r.Context(), id, role, &edit)

	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    order,
	})
}

// updateOrderStatusHandler drives the role status endpoint. The target status
// comes from the query string so kitchen and driver clients can hit it
// without a body.
func (s *Server) updateOrderStatusHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	role, ok := auth.RoleFromContext(r.Context())

	if !ok {
		s.respondWithError(w, http.StatusUnauthorized, "missing role")
		return
	}

	raw := r.URL.Query().Get("status")

	if raw == "" {
		s.respondWithError(w, http.StatusBadRequest, "status query parameter is required")
		return
	}

	target, err := models.ParseOrderStatus(raw)

	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := s.orderService.UpdateStatus(r.Context(), id, role, target)

	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    order,
	})
}

func (s *Server) assignDriverHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	role, ok := auth.RoleFromContext(r.Context())

	if !ok {
		s.respondWithError(w, http.StatusUnauthorized, "missing role")
		return
	}

	var body struct {
		DriverID string `json:"driver_id"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	defer r.Body.Close()

	order, err := s.orderService.AssignDriver(r.Context(), id, role, body.DriverID)

	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    order,
	})
}

func (s *Server) deleteOrderHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	role, ok := auth.RoleFromContext(r.Context())

	if !ok {
		s.respondWithError(w, http.StatusUnauthorized, "missing role")
		return
	}

	if err := s.orderService.DeleteOrder(r.Context(), id, role); err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
	})
}
