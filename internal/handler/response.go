package handler

import (
	"net/http"

	"github.com/openlearn/live-session-server/internal/httputil"
)

func writeSuccess(w http.ResponseWriter, status int, data any) {
	httputil.WriteSuccess(w, status, data)
}

func writeError(w http.ResponseWriter, err error) {
	httputil.WriteError(w, err)
}
