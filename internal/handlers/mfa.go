package handlers

import (
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/osa623/arxadmin/internal/security"
)

type mfaSetupRequest struct {
	Email string `json:"email"`
}

type mfaSetupResponse struct {
	QRCode  string `json:"qrCode"`
	Message string `json:"message"`
}

type mfaLoginRequest struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

type mfaLoginResponse struct {
	Success bool         `json:"success"`
	Token   string       `json:"token"`
	User    adminSummary `json:"user"`
}

type adminSummary struct {
	ID        string `json:"id,omitempty"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at,omitempty"`
}

// SetupMFA provisions a fresh TOTP secret for the email and returns a
// scannable QR artifact. Re-running it overwrites the stored secret, so
// codes from a previous enrollment stop working immediately.
func (h *Handler) SetupMFA(c *gin.Context) {
	var req mfaSetupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Code: "INVALID_REQUEST", Message: "invalid payload"})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !validEmail(email) {
		c.JSON(http.StatusBadRequest, errorResponse{Code: "INVALID_REQUEST", Message: "email is required"})
		return
	}

	if len(h.AllowedEmails) > 0 && !slices.Contains(h.AllowedEmails, email) {
		c.JSON(http.StatusForbidden, errorResponse{Code: "FORBIDDEN", Message: "email is not pre-authorized"})
		return
	}

	enrollment, err := security.GenerateEnrollment(h.MFAIssuer, email)
	if err != nil {
		h.Logger.Error("totp enrollment failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Code: "INTERNAL_ERROR", Message: "internal error"})
		return
	}

	if err := h.Store.UpsertMFASecret(c.Request.Context(), email, enrollment.Secret); err != nil {
		h.Logger.Error("mfa secret upsert failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Code: "INTERNAL_ERROR", Message: "internal error"})
		return
	}

	h.Metrics.MFAEnrollments.Inc()
	h.audit(c.Request.Context(), c, email, "mfa.setup", "mfa_secret", strPtr(email))

	c.JSON(http.StatusOK, mfaSetupResponse{
		QRCode:  enrollment.QRCodeDataURL,
		Message: "Scan this in Google Authenticator",
	})
}

// VerifyMFA exchanges a current TOTP code for a 12-hour session token.
func (h *Handler) VerifyMFA(c *gin.Context) {
	var req mfaLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Code: "INVALID_REQUEST", Message: "invalid payload"})
		return
	}

	if !h.allowed(c.Request.Context(), c) {
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	secret, err := h.Store.GetMFASecret(c.Request.Context(), email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			h.Metrics.LoginAttempts.WithLabelValues("mfa", "not_set_up").Inc()
			c.JSON(http.StatusNotFound, errorResponse{Code: "NOT_FOUND", Message: "user not set up"})
			return
		}
		h.Logger.Error("mfa secret lookup failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Code: "INTERNAL_ERROR", Message: "internal error"})
		return
	}

	step, ok := security.ValidateCode(secret.Secret, req.Token, h.Clock.Now())
	if !ok {
		h.Metrics.LoginAttempts.WithLabelValues("mfa", "invalid_code").Inc()
		c.JSON(http.StatusUnauthorized, errorResponse{Code: "UNAUTHORIZED", Message: "invalid 6-digit code"})
		return
	}

	consumed, err := h.Store.ConsumeCodeStep(c.Request.Context(), email, step)
	if err != nil {
		h.Logger.Error("code step consume failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Code: "INTERNAL_ERROR", Message: "internal error"})
		return
	}
	if !consumed {
		h.Metrics.LoginAttempts.WithLabelValues("mfa", "replay").Inc()
		c.JSON(http.StatusUnauthorized, errorResponse{Code: "UNAUTHORIZED", Message: "invalid 6-digit code"})
		return
	}

	token, err := security.NewSessionToken(email, email, h.JWTSecret, h.MFATTL, h.Clock.Now())
	if err != nil {
		h.Logger.Error("jwt sign failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Code: "INTERNAL_ERROR", Message: "internal error"})
		return
	}

	summary := adminSummary{Email: email}
	if admin, err := h.Store.GetAdminByEmail(c.Request.Context(), email); err == nil {
		summary.ID = admin.ID.String()
		summary.CreatedAt = admin.CreatedAt.UTC().Format(time.RFC3339)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		h.Logger.Error("admin summary lookup failed", "error", err)
	}

	h.Metrics.LoginAttempts.WithLabelValues("mfa", "success").Inc()
	h.audit(c.Request.Context(), c, email, "mfa.login", "mfa_secret", strPtr(email))

	c.JSON(http.StatusOK, mfaLoginResponse{Success: true, Token: token, User: summary})
}
