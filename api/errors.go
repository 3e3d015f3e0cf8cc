package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kevincatagnaclearminds-cell/movilis-backend-sub000/cert"
	"github.com/kevincatagnaclearminds-cell/movilis-backend-sub000/credvault"
	"github.com/kevincatagnaclearminds-cell/movilis-backend-sub000/storage"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func mapError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, cert.ErrImmutable):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, cert.ErrDuplicateIdentifier):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, cert.ErrNotAssigned):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, cert.ErrArtifactUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, credvault.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, credvault.ErrUnsupportedFile):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, credvault.ErrWrongSecret):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, credvault.ErrInvalidCredential):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
