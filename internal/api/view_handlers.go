package api

import (
	"net/http"

	"github.com/kitchenlane/catering-ops/internal/projection"
	"github.com/kitchenlane/catering-ops/internal/refresh"
)

// View names registered in the refresh registry.
const (
	viewKitchenQueue   = "kitchen-queue"
	viewKitchenHistory = "kitchen-history"
	viewDriverTasks    = "driver-tasks"
	viewDriverHistory  = "driver-history"
	viewDashboard      = "dashboard"
)

// viewResponse wraps a snapshot with its freshness so clients can show a
// stale indicator instead of blank screens.
type viewResponse struct {
	View     string         `json:"view"`
	Snapshot interface{}    `json:"snapshot"`
	Status   refresh.Status `json:"status"`
}

// serveView responds with the named view's last good snapshot. A view with
// no data yet (store down since boot) is 503, not an empty success.
func (s *Server) serveView(w http.ResponseWriter, name string) {
	refresher := s.refreshRegistry.Get(name)

	if refresher == nil {
		s.respondWithError(w, http.StatusNotFound, "unknown view")
		return
	}

	snapshot, status := refresher.Snapshot()

	if !status.HasData {
		s.respondWithError(w, http.StatusServiceUnavailable, "view has no data yet")
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data: viewResponse{
			View:     name,
			Snapshot: snapshot,
			Status:   status,
		},
	})
}

func (s *Server) kitchenQueueHandler(w http.ResponseWriter, r *http.Request) {
	s.serveView(w, viewKitchenQueue)
}

func (s *Server) kitchenHistoryHandler(w http.ResponseWriter, r *http.Request) {
	s.serveView(w, viewKitchenHistory)
}

func (s *Server) driverTasksHandler(w http.ResponseWriter, r *http.Request) {
	s.serveView(w, viewDriverTasks)
}

func (s *Server) driverHistoryHandler(w http.ResponseWriter, r *http.Request) {
	s.serveView(w, viewDriverHistory)
}

// dashboardStatsHandler serves the dashboard. The Redis snapshot is tried
// first so all instances agree; on a miss it falls back to the local
// refresher and repopulates the cache.
func (s *Server) dashboardStatsHandler(w http.ResponseWriter, r *http.Request) {
	if s.snapshotCache != nil {
		if stats, ok := s.snapshotCache.GetDashboard(r.Context()); ok {
			s.respondWithJSON(w, http.StatusOK, ApiResponse{
				Success: true,
				Data:    stats,
			})
			return
		}
	}

	refresher := s.refreshRegistry.Get(viewDashboard)

	if refresher == nil {
		s.respondWithError(w, http.StatusNotFound, "unknown view")
		return
	}

	snapshot, status := refresher.Snapshot()

	if !status.HasData {
		s.respondWithError(w, http.StatusServiceUnavailable, "dashboard has no data yet")
		return
	}

	stats, ok := snapshot.(projection.DashboardStats)

	if !ok {
		s.respondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if s.snapshotCache != nil && !status.Stale {
		if err := s.snapshotCache.PutDashboard(r.Context(), stats); err != nil {
			s.logger.Warn("Failed to repopulate dashboard cache", "error", err)
		}
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    stats,
	})
}
