// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/sitelens/internal/metrics"
	"github.com/tomtom215/sitelens/internal/models"
)

// HealthLive reports that the process is serving requests.
//
// Method: GET
// Endpoint: /api/v1/health/live
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"alive":  true,
			"uptime": time.Since(h.startTime).Seconds(),
		},
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}

// HealthReady reports whether the database answers and the ingest router is
// consuming. Not ready is a 503 so load balancers stop routing.
//
// Method: GET
// Endpoint: /api/v1/health/ready
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	dbConnected := h.db != nil && h.db.Ping(r.Context()) == nil
	ingestRunning := h.ingestRunning == nil || h.ingestRunning()
	ready := dbConnected && ingestRunning

	statusCode := http.StatusOK
	status := "ready"
	if !ready {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	uptime := time.Since(h.startTime).Seconds()
	metrics.AppUptime.Set(uptime)

	respondJSON(w, statusCode, &models.APIResponse{
		Status: status,
		Data: models.HealthStatus{
			Status:            status,
			Version:           Version,
			DatabaseConnected: dbConnected,
			IngestRunning:     ingestRunning,
			Uptime:            uptime,
		},
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}
