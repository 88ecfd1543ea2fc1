package endpoints

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/doodlesbykumbi/scanstore/pkg/finder"
	"github.com/doodlesbykumbi/scanstore/pkg/store"
)

// ErrorBody is the payload of the error envelope.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]interface{}{
		"error": ErrorBody{Code: errorCode(code), Message: message},
	})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

func errorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusServiceUnavailable:
		return "unavailable"
	case http.StatusUnprocessableEntity:
		return "unprocessable_entity"
	default:
		return "internal_error"
	}
}

// handleStoreError maps store and finder errors onto HTTP statuses.
func handleStoreError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, store.ErrProjectNotFound),
		errors.Is(err, store.ErrPipelineNotFound),
		errors.Is(err, store.ErrJobNotFound),
		errors.Is(err, store.ErrArtifactNotFound),
		errors.Is(err, store.ErrScanNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrInvalidReportType), errors.Is(err, finder.ErrInvalidParams):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrFindingsAlreadyStored):
		respondWithError(w, http.StatusConflict, err.Error())
	default:
		logger.Error("request failed", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// pathID reads a positive integer path variable.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
