package utils

import (
	"encoding/json"
	rndm "math/rand"
	"net/http"
	"slices"

	"github.com/google/uuid"

	"pawmart/globals"
)

// --- Random String and ID Generators ---

var letterRunes = []rune("abcdefghijklmnopqrstuvwxyz0123456789_ABCDEFGHIJKLMNOPQRSTUVWXYZ")

// GenerateID creates a random alphanumeric string of length n.
func GenerateID(n int) string {
	b := make([]rune, n)
	for i := range b {
		b[i] = letterRunes[rndm.Intn(len(letterRunes))]
	}
	return string(b)
}

func GetUUID() string {
	return uuid.NewString()
}

// --- HTTP Response Helpers ---

func RespondWithError(w http.ResponseWriter, code int, msg string) {
	RespondWithJSON(w, code, map[string]string{"error": msg})
}

// Sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func SendResponse(w http.ResponseWriter, status int, data any, message string, err error) {
	resp := map[string]any{
		"status":  status,
		"message": message,
		"data":    data,
	}
	if err != nil {
		resp["error"] = err.Error()
	}
	RespondWithJSON(w, status, resp)
}

type M map[string]interface{}

// --- Slice Helpers ---

func Contains(slice []string, value string) bool {
	return slices.Contains(slice, value)
}

// --- Request Identity Helpers ---

// GetUserIDFromRequest reads the user id that auth middleware put on the
// request context. Empty for anonymous requests.
func GetUserIDFromRequest(r *http.Request) string {
	if userID, ok := r.Context().Value(globals.UserIDKey).(string); ok {
		return userID
	}
	return ""
}

// GetDeviceID resolves the device identity: the X-Device-ID header when the
// client sends one, otherwise the user id. One of the two must exist for any
// cart operation.
func GetDeviceID(r *http.Request) string {
	if device := r.Header.Get("X-Device-ID"); device != "" {
		return device
	}
	return GetUserIDFromRequest(r)
}
