package api

import (
	"net/http"

	"github.com/cybernetisk/okotools/pkg/emulator/store"
	"github.com/go-chi/chi/v5"
)

// SessionHandler issues session tokens.
type SessionHandler struct {
	store *store.Store
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(s *store.Store) *SessionHandler {
	return &SessionHandler{store: s}
}

// Create handles PUT /token/session/:create.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "*") != ":create" {
		writeJSONError(w, http.StatusNotFound, "Unknown session action")
		return
	}

	q := r.URL.Query()
	consumer := q.Get("consumerToken")
	employee := q.Get("employeeToken")
	expiration := q.Get("expirationDate")

	if consumer == "" || employee == "" || expiration == "" {
		writeJSONError(w, http.StatusBadRequest, "consumerToken, employeeToken and expirationDate are required")
		return
	}

	session, err := h.store.CreateSession(consumer, employee, expiration)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"value": session,
	})
}
