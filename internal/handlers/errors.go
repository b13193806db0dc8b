package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"selfmanager/internal/media"
	"selfmanager/internal/service"
	"selfmanager/internal/validation"
)

var errBadUpload error = &service.RequestError{Detail: "Multipart form parse error."}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func respondWithError(w http.ResponseWriter, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		log.Printf("%s: %v", logMsg, err)
	}

	respondJSON(w, status, map[string]string{"detail": userMsg})
}

// respondWithServiceError maps a service error onto its HTTP response
func respondWithServiceError(w http.ResponseWriter, logMsg string, err error) {
	if ae, ok := service.AsAuthorizationError(err); ok {
		respondJSON(w, http.StatusForbidden, map[string]string{"detail": ae.Detail, "reason": string(ae.Reason)})
		return
	}
	if service.IsNotFound(err) {
		respondWithError(w, http.StatusNotFound, ErrNotFound, "", nil)
		return
	}
	if fieldErrs, ok := validation.AsErrors(err); ok {
		respondJSON(w, http.StatusBadRequest, fieldErrs)
		return
	}
	if re, ok := service.AsRequestError(err); ok {
		body := map[string]string{"detail": re.Detail}
		if re.Code != "" {
			body["code"] = re.Code
		}
		respondJSON(w, http.StatusBadRequest, body)
		return
	}

	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		respondWithError(w, http.StatusUnauthorized, err.Error(), "", nil)
	case errors.Is(err, service.ErrInvalidToken):
		respondWithError(w, http.StatusUnauthorized, err.Error(), "", nil)
	case errors.Is(err, media.ErrNotImage):
		respondJSON(w, http.StatusBadRequest, validation.Errors{"image": {media.ErrNotImage.Error() + "."}})
	case errors.Is(err, media.ErrTooLarge):
		respondJSON(w, http.StatusBadRequest, validation.Errors{"image": {"File is too large."}})
	default:
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, logMsg, err)
	}
}

// decodeJSON reads the request body into dst. An empty body leaves dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMalformedJSON, "", nil)
		return false
	}
	return true
}

// pathID parses a numeric path parameter, answering 404 when it is not a number
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		respondWithError(w, http.StatusNotFound, ErrNotFound, "", nil)
		return 0, false
	}
	return id, true
}
