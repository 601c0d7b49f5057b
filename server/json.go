package server

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/go-token-server/oauth2"
)

const contentTypeJSON = "application/json; charset=utf-8"

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

// writeJSONError writes an OAuth2 error response
func writeJSONError(w http.ResponseWriter, errorCode oauth2.ErrorCode, description string, statusCode int) {
	writeJSON(w, statusCode, oauth2.ErrorResponse{
		Error:            errorCode,
		ErrorDescription: description,
	})
}
