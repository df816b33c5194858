package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/osa623/arxadmin/internal/security"
	"github.com/osa623/arxadmin/internal/storage"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type credentialsResponse struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Token string    `json:"token"`
}

type adminResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	CreatedAt string    `json:"created_at"`
	UpdatedAt string    `json:"updated_at"`
}

func (h *Handler) RegisterAdmin(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Code: "INVALID_REQUEST", Message: "invalid payload"})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !validEmail(email) || req.Password == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Code: "INVALID_REQUEST", Message: "email and password are required"})
		return
	}
	if len(req.Password) < 6 {
		c.JSON(http.StatusBadRequest, errorResponse{Code: "INVALID_REQUEST", Message: "password must be at least 6 characters"})
		return
	}

	hash, err := security.HashPassword(req.Password, h.Argon2)
	if err != nil {
		h.Logger.Error("password hash failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Code: "INTERNAL_ERROR", Message: "internal error"})
		return
	}

	admin, err := h.Store.CreateAdmin(c.Request.Context(), email, hash)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateEmail) {
			c.JSON(http.StatusBadRequest, errorResponse{Code: "ADMIN_EXISTS", Message: "admin already exists"})
			return
		}
		h.Logger.Error("admin insert failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Code: "INTERNAL_ERROR", Message: "internal error"})
		return
	}

	token, err := security.NewSessionToken(admin.ID.String(), admin.Email, h.JWTSecret, h.PasswordTTL, h.Clock.Now())
	if err != nil {
		h.Logger.Error("jwt sign failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Code: "INTERNAL_ERROR", Message: "internal error"})
		return
	}

	h.audit(c.Request.Context(), c, admin.Email, "admin.register", "admin", strPtr(admin.ID.String()))

	c.JSON(http.StatusCreated, credentialsResponse{ID: admin.ID, Email: admin.Email, Token: token})
}

func (h *Handler) LoginAdmin(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Code: "INVALID_REQUEST", Message: "invalid payload"})
		return
	}

	if !h.allowed(c.Request.Context(), c) {
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	admin, err := h.Store.GetAdminByEmail(c.Request.Context(), email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			h.Metrics.LoginAttempts.WithLabelValues("password", "invalid").Inc()
			c.JSON(http.StatusBadRequest, errorResponse{Code: "INVALID_CREDENTIALS", Message: "invalid credentials"})
			return
		}
		h.Logger.Error("login lookup failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Code: "INTERNAL_ERROR", Message: "internal error"})
		return
	}

	ok, err := security.VerifyPassword(req.Password, admin.PasswordHash)
	if err != nil || !ok {
		h.Metrics.LoginAttempts.WithLabelValues("password", "invalid").Inc()
		c.JSON(http.StatusBadRequest, errorResponse{Code: "INVALID_CREDENTIALS", Message: "invalid credentials"})
		return
	}

	token, err := security.NewSessionToken(admin.ID.String(), admin.Email, h.JWTSecret, h.PasswordTTL, h.Clock.Now())
	if err != nil {
		h.Logger.Error("jwt sign failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Code: "INTERNAL_ERROR", Message: "internal error"})
		return
	}

	h.Metrics.LoginAttempts.WithLabelValues("password", "success").Inc()
	h.audit(c.Request.Context(), c, admin.Email, "admin.login", "admin", strPtr(admin.ID.String()))

	c.JSON(http.StatusOK, credentialsResponse{ID: admin.ID, Email: admin.Email, Token: token})
}

func (h *Handler) GetAdmin(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Code: "INVALID_REQUEST", Message: "invalid admin id"})
		return
	}

	admin, err := h.Store.GetAdminByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, errorResponse{Code: "NOT_FOUND", Message: "admin not found"})
			return
		}
		h.Logger.Error("admin lookup failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Code: "INTERNAL_ERROR", Message: "internal error"})
		return
	}

	c.JSON(http.StatusOK, adminResponse{
		ID:        admin.ID,
		Email:     admin.Email,
		CreatedAt: admin.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: admin.UpdatedAt.UTC().Format(time.RFC3339),
	})
}

func strPtr(s string) *string { return &s }
