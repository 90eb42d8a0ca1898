// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/samber/oops"

	"github.com/holomush/holoauth/internal/auth"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind       string `json:"kind"`
	Message    string `json:"message"`
	Field      string `json:"field,omitempty"`
	Detail     string `json:"detail,omitempty"`
	Code       string `json:"code,omitempty"`
	Stacktrace string `json:"stacktrace,omitempty"`
}

// statusFor maps a failure kind to its HTTP status.
func statusFor(kind auth.Kind) int {
	switch kind {
	case auth.KindNotFound:
		return http.StatusNotFound
	case auth.KindDuplicate:
		return http.StatusConflict
	case auth.KindAuthenticationFailed:
		return http.StatusUnauthorized
	case auth.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func authError(code, msg string) error {
	return oops.Code(code).Errorf("%s", msg)
}

// writeError reports err as JSON. Callers only ever see the public message
// of the kind unless debug is on. Internal failures are already logged by
// the service.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := auth.KindOf(err)
	status := statusFor(kind)

	detail := errorDetail{Kind: kind.String(), Message: kind.PublicMessage()}
	if oopsErr, ok := oops.AsOops(err); ok {
		if kind == auth.KindDuplicate || kind == auth.KindValidation {
			if field, ok := oopsErr.Context()["field"].(string); ok {
				detail.Field = field
			}
		}
		if h.debug {
			detail.Detail = oopsErr.Error()
			detail.Code = auth.CodeOf(err)
			detail.Stacktrace = oopsErr.Stacktrace()
		}
	} else if h.debug {
		detail.Detail = err.Error()
	}

	writeJSON(w, status, errorBody{Error: detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	//nolint:errcheck // client may have disconnected
	json.NewEncoder(w).Encode(v)
}
