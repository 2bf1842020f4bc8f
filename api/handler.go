package api

import (
	"encoding/json"
	"net/http"
)

// HandleSlackRequest serves POST /slack for slash commands and interaction
// callbacks alike.
func (d *Dispatcher) HandleSlackRequest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := r.ParseForm(); err != nil {
		d.logger.Warn("Unable to parse request body", "err", err)
		http.Error(w, "Unable to read request body", http.StatusBadRequest)
		return
	}

	res := d.Dispatch(r.Context(), r.PostForm)
	switch res.Outcome {
	case OutcomeUnauthorized:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(unauthorizedBody))
	case OutcomeOK:
		body, err := json.Marshal(res.Body)
		if err != nil {
			d.logger.Error("Failed to encode response", "err", err)
			http.Error(w, "Failed to encode response", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	default:
		w.WriteHeader(http.StatusOK)
	}
}
