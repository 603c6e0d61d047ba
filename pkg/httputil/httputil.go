// Package httputil provides the JSON response helpers shared by the
// gateway's transport edge: the admin API and the pipeline's own
// rejection responses.
package httputil

import (
	"encoding/json"
	"net/http"
	"time"

	"edgegate/pkg/apierrors"
)

// errorEnvelope is the JSON body shape for every rejection the pipeline
// produces.
type errorEnvelope struct {
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// WriteJSON writes v as a JSON body with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes the standard rejection envelope for err. Internal-shaped
// codes (misconfig, transient_store, adapter_failure) omit their message
// from the body so implementation detail never reaches a client; all other
// codes include it.
func WriteError(w http.ResponseWriter, err *apierrors.Error) {
	body := errorEnvelope{Success: false, Timestamp: time.Now().UTC()}
	if apierrors.Internal(err.Code) {
		body.Error = "internal error"
	} else if err.Msg != "" {
		body.Error = err.Msg
	} else {
		body.Error = string(err.Code)
	}
	WriteJSON(w, apierrors.Status(err.Code), body)
}
