package handler

import (
	"errors"
	"net/http"

	"github.com/simplemailer/simplemailer/internal/model"
	"github.com/simplemailer/simplemailer/internal/service"
)

// ListRecipients handles GET /api/mailing-list
func (h *Handler) ListRecipients(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	recipients, err := h.directory.List(r.Context(), model.ListFilter{
		Email: q.Get("email"),
		Name:  q.Get("name"),
	})
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list recipients")
		writeError(w, r, http.StatusInternalServerError, service.CodeInternal, "Failed to list recipients")
		return
	}
	writeJSON(w, http.StatusOK, recipients)
}

// AddRecipients handles POST /api/mailing-list with one recipient or an array
func (h *Handler) AddRecipients(w http.ResponseWriter, r *http.Request) {
	inputs, err := readOneOrMany[model.AddInput](w, r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, service.CodeValidation, "Invalid request body: "+err.Error())
		return
	}
	if len(inputs) == 0 {
		writeError(w, r, http.StatusBadRequest, service.CodeValidation, "No recipients provided")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"results": h.directory.Add(r.Context(), inputs),
	})
}

// UpdateRecipients handles PUT /api/mailing-list with one update or an array
func (h *Handler) UpdateRecipients(w http.ResponseWriter, r *http.Request) {
	inputs, err := readOneOrMany[model.UpdateInput](w, r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, service.CodeValidation, "Invalid request body: "+err.Error())
		return
	}
	if len(inputs) == 0 {
		writeError(w, r, http.StatusBadRequest, service.CodeValidation, "No updates provided")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"results": h.directory.Update(r.Context(), inputs),
	})
}

type removeRequest struct {
	Identifiers stringOrList `json:"identifiers"`
}

// RemoveRecipients handles DELETE /api/mailing-list. Identifiers come from
// the JSON body or from repeated identifiers query parameters.
func (h *Handler) RemoveRecipients(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(w, r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, service.CodeValidation, err.Error())
		return
	}

	var identifiers []string
	if len(data) > 0 {
		var req removeRequest
		if err := decodeStrict(data, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, service.CodeValidation, "Invalid request body: "+err.Error())
			return
		}
		identifiers = req.Identifiers
	}
	if len(identifiers) == 0 {
		for _, v := range r.URL.Query()["identifiers"] {
			if v != "" {
				identifiers = append(identifiers, v)
			}
		}
	}
	if len(identifiers) == 0 {
		writeError(w, r, http.StatusBadRequest, service.CodeValidation, "No identifiers provided")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"results": h.directory.Remove(r.Context(), identifiers),
	})
}

// SendAll handles POST /api/mailing-list/send
func (h *Handler) SendAll(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(w, r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, service.CodeValidation, err.Error())
		return
	}
	var req service.SendAllRequest
	if len(data) > 0 {
		if err := decodeStrict(data, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, service.CodeValidation, "Invalid request body: "+err.Error())
			return
		}
	}

	res, err := h.bulk.SendAll(r.Context(), req)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to start bulk send")
		writeError(w, r, http.StatusInternalServerError, service.CodeInternal, "Failed to start sending")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"queued":  res.Queued,
		"runId":   res.RunID,
		"message": "Sending started",
	})
}

// GetRun handles GET /api/mailing-list/send/{runId}
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeError(w, r, http.StatusNotFound, service.CodeNotFound, "Run tracking is not enabled")
		return
	}

	run, err := h.runs.Run(r.Context(), r.PathValue("runId"))
	if errors.Is(err, service.ErrRunNotFound) {
		writeError(w, r, http.StatusNotFound, service.CodeNotFound, "Run not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("failed to load dispatch run")
		writeError(w, r, http.StatusInternalServerError, service.CodeInternal, "Failed to load run")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// VerifyTransport handles GET /api/mailing-list/transport
func (h *Handler) VerifyTransport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": h.dispatch.VerifyTransport(r.Context())})
}
