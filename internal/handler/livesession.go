package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/openlearn/live-session-server/internal/audit"
	apperrors "github.com/openlearn/live-session-server/internal/errors"
	"github.com/openlearn/live-session-server/internal/middleware"
	"github.com/openlearn/live-session-server/internal/model"
	"github.com/openlearn/live-session-server/internal/service"
	"github.com/openlearn/live-session-server/internal/util"
)

type LiveSessionHandler struct {
	scheduling *service.SchedulingService
	lifecycle  *service.LifecycleService
	admission  *service.AdmissionService
}

func NewLiveSessionHandler(
	scheduling *service.SchedulingService,
	lifecycle *service.LifecycleService,
	admission *service.AdmissionService,
) *LiveSessionHandler {
	return &LiveSessionHandler{
		scheduling: scheduling,
		lifecycle:  lifecycle,
		admission:  admission,
	}
}

func (h *LiveSessionHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/course/{courseID}", h.ListByCourse)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/start", h.Start)
	r.Post("/{id}/end", h.End)
	r.Post("/{id}/join", h.Join)
	r.Get("/{id}/can-join", h.CanJoin)

	return r
}

// POST /live-sessions
func (h *LiveSessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	var input service.CreateSessionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, apperrors.ValidationError("Invalid request body"))
		return
	}

	session, err := h.scheduling.Create(r.Context(), input, user)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, session)
}

// GET /live-sessions/{id}
func (h *LiveSessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	session, attendees, err := h.scheduling.Get(r.Context(), id, user)
	if err != nil {
		writeError(w, err)
		return
	}

	data := map[string]any{"session": session}
	if attendees != nil {
		data["attendees"] = attendees
	}
	writeSuccess(w, http.StatusOK, data)
}

// GET /live-sessions/course/{courseID}
func (h *LiveSessionHandler) ListByCourse(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	courseID := chi.URLParam(r, "courseID")
	if !util.IsValidUUID(courseID) {
		writeError(w, apperrors.InvalidInput("courseID", "must be a UUID"))
		return
	}

	sessions, err := h.scheduling.ListByCourse(r.Context(), courseID, user)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, sessions)
}

// POST /live-sessions/{id}/start
func (h *LiveSessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	session, err := h.lifecycle.Start(r.Context(), id, user)
	if err != nil {
		h.auditDenied(r, audit.EventStartDenied, id, user, err)
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, session)
}

// POST /live-sessions/{id}/end
func (h *LiveSessionHandler) End(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	session, err := h.lifecycle.End(r.Context(), id, user)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, session)
}

// POST /live-sessions/{id}/join
func (h *LiveSessionHandler) Join(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	result, err := h.admission.Join(r.Context(), id, user)
	if err != nil {
		h.auditDenied(r, audit.EventJoinDenied, id, user, err)
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result)
}

// GET /live-sessions/{id}/can-join
func (h *LiveSessionHandler) CanJoin(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	result, err := h.admission.CanJoin(r.Context(), id, user)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result)
}

func (h *LiveSessionHandler) auditDenied(r *http.Request, event audit.EventType, sessionID string, user *model.User, err error) {
	code := apperrors.GetCode(err)
	if code != apperrors.ErrCodeForbidden && code != apperrors.ErrCodeUnauthorized {
		return
	}
	audit.LogFromRequest(r, audit.Event{
		Type:   event,
		UserID: user.ID,
		Details: map[string]interface{}{
			"sessionId": sessionID,
			"code":      string(code),
		},
	})
}

func sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if !util.IsValidUUID(id) {
		log.Debug().Str("id", id).Msg("rejected malformed session id")
		writeError(w, apperrors.InvalidInput("id", "must be a UUID"))
		return "", false
	}
	return id, true
}
