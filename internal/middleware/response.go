package middleware

import (
	"net/http"

	"github.com/openlearn/live-session-server/internal/httputil"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}
