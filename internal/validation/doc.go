// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

/*
Package validation wraps go-playground/validator v10 with a shared,
thread-safe validator instance and API-friendly error conversion.

Two custom tags are registered:

  - fingerprint: a lowercase base-36 token of at most 7 characters, the
    shape produced by the fingerprint generator.
  - pagepath: an absolute URL path with no whitespace or control characters.

Telemetry events and login requests are validated at the HTTP boundary:

	if verr := validation.ValidateStruct(&ev); verr != nil {
	    apiErr := verr.ToAPIError()
	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
	    return
	}

Errors carry the failing field, tag and parameter; ToAPIError produces a
VALIDATION_ERROR body listing every failing field.
*/
package validation
