package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/edgard/goalbot/internal/errs"
)

type verifyRequest struct {
	UserID           int64  `json:"user_id"           validate:"required,gt=0"`
	VerificationCode string `json:"verification_code" validate:"required,alphanum,max=32"`
}

type verifyResponse struct {
	ChatID   int64  `json:"chat_id"`
	Username string `json:"username"`
	UserID   int64  `json:"user_id"`
	Verified bool   `json:"verified"`
}

// Verify links the chat holding the code to the given user.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		Error(w, http.StatusBadRequest, "user_id and verification_code are required")
		return
	}

	session, err := h.deps.Verifier.Complete(r.Context(), req.UserID, req.VerificationCode)
	switch {
	case errors.Is(err, errs.ErrNotFound):
		Error(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, errs.ErrValidation):
		Error(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.log.ErrorContext(r.Context(), "Verification failed", "user_id", req.UserID, "error", err)
		Error(w, http.StatusInternalServerError, "verification failed")
		return
	}

	h.log.InfoContext(r.Context(), "Chat verified through API", "chat_id", session.ChatID, "user_id", req.UserID)
	JSON(w, http.StatusOK, verifyResponse{
		ChatID:   session.ChatID,
		Username: session.Username,
		UserID:   session.UserID.Int64,
		Verified: session.Verified,
	})
}

// Health reports whether the database answers.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok", "database": "ok"}
	code := http.StatusOK

	if err := h.deps.Store.Ping(r.Context()); err != nil {
		h.log.WarnContext(r.Context(), "Health check failed", "error", err)
		status["status"] = "degraded"
		status["database"] = "unreachable"
		code = http.StatusServiceUnavailable
	}

	JSON(w, code, status)
}
