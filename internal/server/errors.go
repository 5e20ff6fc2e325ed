package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hpkotak/codebud/internal/chat"
	"github.com/hpkotak/codebud/internal/provider"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

// errBadJSON marks a request body that could not be decoded.
var errBadJSON = errors.New("invalid JSON body")

// classify maps err to a status code and client-facing body.
func classify(err error) (int, errorBody) {
	var (
		vErr    *chat.ValidationError
		initErr *chat.AdapterInitError
		upErr   *provider.UpstreamError
	)
	switch {
	case errors.As(err, &vErr):
		return http.StatusBadRequest, errorBody{Error: vErr.Message, Details: vErr.Details}
	case errors.Is(err, errBadJSON):
		return http.StatusBadRequest, errorBody{Error: err.Error()}
	case errors.Is(err, chat.ErrConfigurationRequired):
		return http.StatusBadRequest, errorBody{Error: chat.ErrConfigurationRequired.Error()}
	case errors.Is(err, provider.ErrUnsupportedProvider):
		return http.StatusBadRequest, errorBody{Error: err.Error()}
	case errors.As(err, &initErr):
		return http.StatusInternalServerError, errorBody{Error: "Failed to initialize AI service"}
	case errors.As(err, &upErr):
		return http.StatusInternalServerError, errorBody{Error: upErr.Error()}
	default:
		return http.StatusInternalServerError, errorBody{Error: err.Error()}
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, body := classify(err)
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
