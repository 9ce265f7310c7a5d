package http

import (
	"encoding/json"
	"net/http"

	applog "paycheck/internal/log"
)

// redirectToIndex sends the client back to the dashboard after a mutation.
// HTMX requests get an HX-Redirect header instead of a 303.
func redirectToIndex(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/")
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "JSON encode failed", applog.FieldError, err)
	}
}
