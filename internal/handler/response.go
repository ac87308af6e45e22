package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/iron-alliance/api/internal/logger"
	"github.com/freeeve/iron-alliance/api/internal/service"
	"github.com/freeeve/iron-alliance/api/pkg/campaign"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Error encoding response")
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON reads and decodes JSON from a request body.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// errorStatus maps service and rule errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrGameNotFound), errors.Is(err, service.ErrSaveNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNotCreator), errors.Is(err, service.ErrNotPlayer),
		errors.Is(err, service.ErrNotYourFaction):
		return http.StatusForbidden
	case errors.Is(err, service.ErrGameNotWaiting), errors.Is(err, service.ErrGameNotActive),
		errors.Is(err, service.ErrFactionTaken), errors.Is(err, campaign.ErrPartialReset):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidFaction), errors.Is(err, service.ErrNoFactions),
		errors.Is(err, service.ErrInvalidTimeout):
		return http.StatusBadRequest
	}
	switch campaign.KindOf(err) {
	case "":
		return http.StatusInternalServerError
	case campaign.KindInvalidActionShape:
		return http.StatusBadRequest
	case campaign.KindNotCurrentActor:
		return http.StatusForbidden
	case campaign.KindWrongPhase, campaign.KindBattleStepMismatch, campaign.KindCannotUndo, campaign.KindGameOver:
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}

// writeServiceError writes err with the status errorStatus picks. Rule
// rejections carry their kind so clients can react without parsing text.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		l := logger.ForRequest(r.Context())
		l.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		writeError(w, status, "internal error")
		return
	}
	body := map[string]string{"error": err.Error()}
	if kind := campaign.KindOf(err); kind != "" {
		body["kind"] = string(kind)
	}
	writeJSON(w, status, body)
}
