package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/kitchenlane/catering-ops/internal/auth"
	"github.com/kitchenlane/catering-ops/internal/lifecycle"
	"github.com/kitchenlane/catering-ops/internal/service"
)

var (
	errMissingRole              = errors.New("missing role")
	errRoleMayNotManageVehicles = errors.New("role may not manage vehicles")
	errDriverIDRequired         = errors.New("driver_id is required")
)

func (s *Server) getDriversHandler(w http.ResponseWriter, r *http.Request) {
	drivers, err := s.fleetService.ListDrivers(r.Context())

	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    drivers,
	})
}

func (s *Server) getDriverByIDHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	driver, err := s.fleetService.GetDriver(r.Context(), id)

	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    driver,
	})
}

// setDriverStatusHandler lets a driver change their own duty status, and an
// admin change anyone's.
func (s *Server) setDriverStatusHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	role, ok := auth.RoleFromContext(r.Context())

	if !ok {
		s.respondWithError(w, http.StatusUnauthorized, "missing role")
		return
	}

	if !lifecycle.CanMutateOrders(role) {
		subject, _ := auth.SubjectFromContext(r.Context())
		if role != lifecycle.RoleDriver || subject != id {
			s.respondWithError(w, http.StatusForbidden, "drivers may only change their own status")
			return
		}
	}

	var body struct {
		Status string `json:"status"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	defer r.Body.Close()

	driver, err := s.fleetService.SetDriverStatus(r.Context(), id, body.Status)

	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    driver,
	})
}

func (s *Server) getVehiclesHandler(w http.ResponseWriter, r *http.Request) {
	vehicles, err := s.fleetService.ListVehicles(r.Context())

	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    vehicles,
	})
}

func (s *Server) createVehicleHandler(w http.ResponseWriter, r *http.Request) {
	var input service.VehicleInput

	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	defer r.Body.Close()

	vehicle, err := s.fleetService.CreateVehicle(r.Context(), &input)

	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusCreated, ApiResponse{
		Success: true,
		Data:    vehicle,
	})
}

func (s *Server) getVehicleByIDHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	vehicle, err := s.fleetService.GetVehicle(r.Context(), id)

	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    vehicle,
	})
}

func (s *Server) updateVehicleHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var input service.VehicleInput

	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	defer r.Body.Close()

	vehicle, err := s.fleetService.UpdateVehicle(r.Context(), id, &input)

	if err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    vehicle,
	})
}

func (s *Server) deleteVehicleHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := s.fleetService.DeleteVehicle(r.Context(), id); err != nil {
		s.respondWithServiceError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
	})
}

// declareVehicleHandler acquires the vehicle lease for the calling driver.
// Admins may declare on behalf of a driver by passing driver_id.
func (s *Server) declareVehicleHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	driverID, err := s.resolveVehicleDriver(r)

	if err != nil {
		code := http.StatusForbidden
		if errors.Is(err, errDriverIDRequired) {
			code = http.StatusBadRequest
		}
		s.respondWithError(w, code, err.Error())
		return
	}

	vehicle, svcErr := s.fleetService.DeclareVehicle(r.Context(), id, driverID)

	if svcErr != nil {
		s.respondWithServiceError(w, svcErr)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    vehicle,
	})
}

func (s *Server) releaseVehicleHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	driverID, err := s.resolveVehicleDriver(r)

	if err != nil {
		code := http.StatusForbidden
		if errors.Is(err, errDriverIDRequired) {
			code = http.StatusBadRequest
		}
		s.respondWithError(w, code, err.Error())
		return
	}

	vehicle, svcErr := s.fleetService.ReleaseVehicle(r.Context(), id, driverID)

	if svcErr != nil {
		s.respondWithServiceError(w, svcErr)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    vehicle,
	})
}

// resolveVehicleDriver decides which driver a declare/release acts for: the
// caller when they are a driver, or the driver_id in the body for admins.
func (s *Server) resolveVehicleDriver(r *http.Request) (string, error) {
	role, ok := auth.RoleFromContext(r.Context())

	if !ok {
		return "", errMissingRole
	}

	if role == lifecycle.RoleDriver {
		subject, _ := auth.SubjectFromContext(r.Context())
		return subject, nil
	}

	if !lifecycle.CanMutateOrders(role) {
		return "", errRoleMayNotManageVehicles
	}

	var body struct {
		DriverID string `json:"driver_id"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return "", errDriverIDRequired
	}
	defer r.Body.Close()

	return body.DriverID, nil
}
