package handler

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/simplemailer/simplemailer/internal/service"
)

// Unsubscribe handles GET and POST /unsubscribe and /unsubscribe/{uuid}.
// One-click POSTs from mail clients carry the token in the query string.
func (h *Handler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	token := h.unsubscribeToken(w, r)

	err := h.unsubscribe.Unsubscribe(r.Context(), token)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	case errors.Is(err, service.ErrMissingToken):
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "Missing uuid"})
	default:
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"success": false,
			"error":   "Not found or already removed",
		})
	}
}

func (h *Handler) unsubscribeToken(w http.ResponseWriter, r *http.Request) string {
	if token := r.URL.Query().Get("uuid"); token != "" {
		return token
	}
	if token := r.PathValue("uuid"); token != "" {
		return token
	}
	if r.Method != http.MethodPost {
		return ""
	}

	data, err := readBody(w, r)
	if err != nil || len(data) == 0 {
		return ""
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		var body struct {
			UUID string `json:"uuid"`
		}
		if err := json.Unmarshal(data, &body); err == nil {
			return body.UUID
		}
	case "application/x-www-form-urlencoded", "":
		if values, err := url.ParseQuery(string(data)); err == nil {
			return strings.TrimSpace(values.Get("uuid"))
		}
	}
	return ""
}
