// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/apperr"
	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/model"
	"go.uber.org/zap"
)

// responder writes error envelopes and logs internal failures.
type responder struct {
	logger *zap.Logger
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// statusOf maps an error kind to its HTTP status. Business-rule failures are
// all client errors; a missing bearer token is answered 401 by the
// Authenticator before any service runs.
func statusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindInvalidRequest, apperr.KindExperienceUnavailable, apperr.KindInvalidCode,
		apperr.KindInsufficientCapacity, apperr.KindDuplicateBooking,
		apperr.KindInvalidState, apperr.KindNotDeletable:
		return http.StatusBadRequest
	case apperr.KindUnauthorized, apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// writeError classifies err and writes the JSON error envelope. Internal
// errors are logged and their detail withheld from the client.
func (rs responder) writeError(w http.ResponseWriter, r *http.Request, err error) {
	rs.writeErrorStatus(w, r, err, statusOf(apperr.KindOf(err)))
}

func (rs responder) writeErrorStatus(w http.ResponseWriter, r *http.Request, err error, status int) {
	kind := apperr.KindOf(err)
	msg := apperr.MessageOf(err)
	if kind == apperr.KindInternal {
		rs.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		msg = "internal error"
	}
	writeJSON(w, status, model.ErrorResponse{Error: string(kind), Message: msg})
}

// writeBadBody reports an undecodable request body.
func (rs responder) writeBadBody(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, model.ErrorResponse{
			Error:   string(apperr.KindInvalidRequest),
			Message: "request body too large",
		})
		return
	}
	writeJSON(w, http.StatusBadRequest, model.ErrorResponse{
		Error:   string(apperr.KindInvalidRequest),
		Message: "invalid request body: " + err.Error(),
	})
}

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ping handles GET /ping
func Ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "pong"})
}
