package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"time"

	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/osa623/arxadmin/internal/config"
	"github.com/osa623/arxadmin/internal/rate"
	"github.com/osa623/arxadmin/internal/security"
	"github.com/osa623/arxadmin/internal/storage"
	"github.com/osa623/arxadmin/libs/auth"
)

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type Store interface {
	CreateAdmin(ctx context.Context, email, passwordHash string) (*storage.Admin, error)
	GetAdminByEmail(ctx context.Context, email string) (*storage.Admin, error)
	GetAdminByID(ctx context.Context, id uuid.UUID) (*storage.Admin, error)
	UpsertMFASecret(ctx context.Context, email, secret string) error
	GetMFASecret(ctx context.Context, email string) (*storage.MFASecret, error)
	ConsumeCodeStep(ctx context.Context, email string, step int64) (bool, error)
	UpsertExtracted(ctx context.Context, sector, company, year, recordType string, data json.RawMessage, pdfID *string) (*storage.ExtractedRecord, error)
	GetExtracted(ctx context.Context, id uuid.UUID) (*storage.ExtractedRecord, error)
	UpdateExtractedData(ctx context.Context, id uuid.UUID, data json.RawMessage) (*storage.ExtractedRecord, error)
	DeleteExtracted(ctx context.Context, id uuid.UUID) error
	ListStructureRows(ctx context.Context) ([]storage.StructureRow, error)
	InsertAudit(ctx context.Context, log storage.AuditLog) error
}

type Handler struct {
	Store         Store
	Logger        *slog.Logger
	JWTSecret     []byte
	PasswordTTL   time.Duration
	MFATTL        time.Duration
	MFAIssuer     string
	AllowedEmails []string
	Argon2        security.Argon2Params
	RateLimiter   rate.Limiter
	Metrics       *Metrics
	Clock         Clock
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func New(store Store, logger *slog.Logger, cfg *config.Config, limiter rate.Limiter, metrics *Metrics) *Handler {
	return &Handler{
		Store:         store,
		Logger:        logger,
		JWTSecret:     []byte(cfg.JWTSecret),
		PasswordTTL:   cfg.PasswordTokenTTL,
		MFATTL:        cfg.MFA.TokenTTL,
		MFAIssuer:     cfg.MFA.Issuer,
		AllowedEmails: cfg.MFA.AllowedEmails,
		Argon2: security.Argon2Params{
			Memory:      cfg.Argon2.Memory,
			Iterations:  cfg.Argon2.Iterations,
			Parallelism: cfg.Argon2.Parallelism,
			SaltLength:  cfg.Argon2.SaltLength,
			KeyLength:   cfg.Argon2.KeyLength,
		},
		RateLimiter: limiter,
		Metrics:     metrics,
		Clock:       systemClock{},
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/admin/register", h.RegisterAdmin)
	r.POST("/admin/login", h.LoginAdmin)
	r.POST("/auth/setup", h.SetupMFA)
	r.POST("/auth/login", h.VerifyMFA)

	protected := r.Group("/", auth.Middleware(h.JWTSecret))
	protected.GET("/admin/:id", h.GetAdmin)
	protected.POST("/data", h.SaveData)
	protected.GET("/data/structure", h.GetStructure)
	protected.GET("/data/:id", h.GetData)
	protected.PUT("/data/:id", h.UpdateData)
	protected.DELETE("/data/:id", h.DeleteData)
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func validEmail(email string) bool {
	return emailPattern.MatchString(email)
}

func (h *Handler) allowed(ctx context.Context, c *gin.Context) bool {
	allowed, retryAfter, err := h.RateLimiter.Allow(ctx, c.ClientIP(), h.Clock.Now())
	if err != nil {
		h.Logger.Error("rate limiter failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Code: "INTERNAL_ERROR", Message: "internal error"})
		return false
	}
	if !allowed {
		c.Header("Retry-After", retryAfter.Round(time.Second).String())
		c.JSON(http.StatusTooManyRequests, errorResponse{Code: "RATE_LIMITED", Message: "too many requests"})
		return false
	}
	return true
}

func (h *Handler) audit(ctx context.Context, c *gin.Context, actor, action, entityType string, entityID *string) {
	err := h.Store.InsertAudit(ctx, storage.AuditLog{
		Actor:      actor,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		IP:         c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	})
	if err != nil {
		h.Logger.Error("audit log failed", "error", err)
	}
}

func principalFromContext(c *gin.Context) string {
	v, ok := c.Get(auth.ContextPrincipalKey)
	if !ok {
		return ""
	}
	principal, _ := v.(string)
	return principal
}
