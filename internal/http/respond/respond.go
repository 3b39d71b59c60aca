package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// maxBodyBytes bounds request bodies; post images travel inline as data URLs.
const maxBodyBytes = 8 << 20

// Envelope wraps every API response; Code mirrors the HTTP status.
type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// JSON answers with data under the envelope.
func JSON(w http.ResponseWriter, status int, message string, data any) {
	write(w, Envelope{Code: status, Message: message, Data: data})
}

// Error answers with a message and no data.
func Error(w http.ResponseWriter, status int, message string) {
	write(w, Envelope{Code: status, Message: message})
}

// Decode reads a JSON request body into v, rejecting unknown fields and trailing data.
func Decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("decode body: unexpected trailing data")
	}
	return nil
}

// write encodes env before committing the status, so a payload that cannot
// be marshalled becomes a 500 instead of a truncated body.
func write(w http.ResponseWriter, env Envelope) {
	body, err := json.Marshal(env)
	if err != nil {
		slog.Error("respond: marshal payload failed", "status", env.Code, "error", err)
		env = Envelope{Code: http.StatusInternalServerError, Message: "failed to encode response"}
		body, _ = json.Marshal(env)
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(env.Code)
	if _, err := w.Write(append(body, '\n')); err != nil {
		slog.Debug("respond: write body failed", "error", err)
	}
}
