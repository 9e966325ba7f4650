/*-------------------------------------------------------------------------
 *
 * EV Dashboard MCP Relay
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"evdash-mcp/internal/database"
	"evdash-mcp/internal/logging"
)

// Executor is the slice of the database client the dashboard needs
type Executor interface {
	ExecuteReadOnly(ctx context.Context, sqlQuery string) (*database.QueryResult, error)
}

// Envelope is the dashboard response shape. Query errors are data, not
// HTTP faults the frontend has to special-case.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// Handler serves the fixed aggregation endpoints behind the dashboard
// charts. Each endpoint fronts exactly one SQL aggregate, routed
// through the same read-only gateway as the MCP query tool.
type Handler struct {
	db Executor
}

// NewHandler creates a dashboard API handler
func NewHandler(db Executor) *Handler {
	return &Handler{db: db}
}

// aggregates maps endpoint paths to their fixed statements
var aggregates = []struct {
	path string
	sql  string
}{
	{
		path: "/vehicles/count-by-county",
		sql: `SELECT county, COUNT(*) AS vehicle_count
		      FROM vehicles GROUP BY county ORDER BY vehicle_count DESC`,
	},
	{
		path: "/vehicles/count-by-make",
		sql: `SELECT make, COUNT(*) AS vehicle_count
		      FROM vehicles GROUP BY make ORDER BY vehicle_count DESC LIMIT 20`,
	},
	{
		path: "/vehicles/count-by-year",
		sql: `SELECT model_year, COUNT(*) AS vehicle_count
		      FROM vehicles GROUP BY model_year ORDER BY model_year`,
	},
	{
		path: "/vehicles/ev-types",
		sql: `SELECT electric_vehicle_type, COUNT(*) AS vehicle_count
		      FROM vehicles GROUP BY electric_vehicle_type ORDER BY vehicle_count DESC`,
	},
	{
		path: "/vehicles/cafv-eligibility",
		sql: `SELECT cafv_eligibility, COUNT(*) AS vehicle_count
		      FROM vehicles GROUP BY cafv_eligibility ORDER BY vehicle_count DESC`,
	},
	{
		path: "/vehicles/top-models",
		sql: `SELECT make, model, COUNT(*) AS vehicle_count
		      FROM vehicles GROUP BY make, model ORDER BY vehicle_count DESC LIMIT 10`,
	},
	{
		path: "/vehicles/avg-range-by-make",
		sql: `SELECT make, ROUND(AVG(electric_range)) AS avg_electric_range
		      FROM vehicles WHERE electric_range > 0
		      GROUP BY make ORDER BY avg_electric_range DESC LIMIT 20`,
	},
	{
		path: "/stations/count-by-county",
		sql: `SELECT county, no_of_ev_charging_stations
		      FROM stations ORDER BY no_of_ev_charging_stations DESC`,
	},
}

// Routes builds the dashboard API router
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	for _, agg := range aggregates {
		r.Get(agg.path, h.fixedQuery(agg.sql))
	}
	return r
}

// fixedQuery builds a handler that runs one fixed aggregate
func (h *Handler) fixedQuery(sqlQuery string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := h.db.ExecuteReadOnly(r.Context(), sqlQuery)
		if err != nil {
			logging.Error("Dashboard query failed", "path", r.URL.Path, "error", err.Error())
			writeJSON(w, http.StatusInternalServerError, Envelope{
				Success: false,
				Message: err.Error(),
			})
			return
		}

		// Empty result sets are success with empty data
		writeJSON(w, http.StatusOK, Envelope{
			Success: true,
			Data:    result.Rows,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.Warn("Failed to encode dashboard response", "error", err.Error())
	}
}
