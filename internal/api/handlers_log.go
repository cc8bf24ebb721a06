// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

package api

import (
	"net"
	"net/http"

	"github.com/tomtom215/sitelens/internal/ingest"
	"github.com/tomtom215/sitelens/internal/logging"
	"github.com/tomtom215/sitelens/internal/metrics"
	"github.com/tomtom215/sitelens/internal/models"
	"github.com/tomtom215/sitelens/internal/validation"
)

// Log accepts one telemetry event and hands it to the ingest pipeline.
//
// Method: POST
// Endpoint: /api/v1/log
//
// Success is 204 No Content. The client address is always taken from the
// connection (or a trusted proxy), never from the body.
func (h *Handler) Log(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if h.publisher == nil {
		respondError(w, http.StatusServiceUnavailable, ErrCodeIngestUnavailable, "Event intake is not available", nil)
		return
	}

	var ev models.Event
	if err := decodeJSONBody(w, r, &ev); err != nil {
		metrics.RecordIngestRejected("malformed")
		respondError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid request body", nil)
		return
	}

	if verr := validation.ValidateStruct(&ev); verr != nil {
		metrics.RecordIngestRejected("validation")
		respondValidationError(w, verr)
		return
	}
	if err := ev.CheckPayload(); err != nil {
		metrics.RecordIngestRejected("payload")
		respondValidationError(w, validation.NewFieldError("type", "payload", err.Error()))
		return
	}

	ev.ID = ""
	ev.Address = h.clientIP(r)

	if err := h.publisher.PublishEvent(r.Context(), &ev, ingest.GeoHintsFromRequest(r)); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Str("type", string(ev.Type)).Msg("Failed to publish event")
		respondError(w, http.StatusServiceUnavailable, ErrCodeIngestUnavailable, "Event could not be accepted", nil)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) clientIP(r *http.Request) string {
	if h.authMW != nil {
		return h.authMW.ClientIP(r)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
