package middleware

import (
	"encoding/json"
	"net/http"
)

type envelope map[string]any

// errorResponse writes {"error": message}. When RequestID ran before, the
// request id is repeated in the body so clients can quote it.
func errorResponse(w http.ResponseWriter, status int, message string) {
	env := envelope{"error": message}
	if id := w.Header().Get(RequestIDHeader); id != "" {
		env["request_id"] = id
	}
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="room-compass"`)
	}

	js, err := json.Marshal(env)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(js)
}
