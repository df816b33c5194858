package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/osa623/arxadmin/internal/rate"
	"github.com/osa623/arxadmin/internal/testutil"
	"github.com/pquerna/otp/totp"
)

func setupMFA(t *testing.T, h *Handler, store *memStore, email string) string {
	t.Helper()
	router := setupRouter(h)
	resp := testutil.MakeAPIRequest(router, http.MethodPost, "/auth/setup", map[string]string{"email": email})
	testutil.AssertHTTPStatus(t, resp, http.StatusOK)

	var body struct {
		QRCode  string `json:"qrCode"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode setup response: %v", err)
	}
	if !strings.HasPrefix(body.QRCode, "data:image/png;base64,") {
		t.Fatalf("expected PNG data URL, got %q", body.QRCode[:min(len(body.QRCode), 40)])
	}
	if body.Message == "" {
		t.Fatalf("expected guidance message")
	}

	secret, ok := store.secrets[email]
	if !ok {
		t.Fatalf("expected secret persisted for %s", email)
	}
	return secret.Secret
}

func TestMFASetupAndVerify(t *testing.T) {
	store := newMemStore()
	now := time.Now()
	h := setupHandler(t, store, now)
	secret := setupMFA(t, h, store, "ops@firm.test")

	code, err := totp.GenerateCode(secret, now)
	if err != nil {
		t.Fatalf("generate code: %v", err)
	}

	router := setupRouter(h)
	resp := testutil.MakeAPIRequest(router, http.MethodPost, "/auth/login", map[string]string{
		"email": "ops@firm.test",
		"token": code,
	})
	testutil.AssertHTTPStatus(t, resp, http.StatusOK)

	var body struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
		User    struct {
			Email string `json:"email"`
		} `json:"user"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if !body.Success || body.Token == "" {
		t.Fatalf("expected success with token, got %+v", body)
	}
	if body.User.Email != "ops@firm.test" {
		t.Fatalf("expected fallback summary with email, got %q", body.User.Email)
	}
}

func TestMFASetupRejectsMissingEmail(t *testing.T) {
	h := setupHandler(t, newMemStore(), time.Now())
	router := setupRouter(h)

	resp := testutil.MakeAPIRequest(router, http.MethodPost, "/auth/setup", map[string]string{"email": ""})
	testutil.AssertErrorCode(t, resp, testutil.ErrorCodeInvalidRequest)

	resp = testutil.MakeAPIRequest(router, http.MethodPost, "/auth/setup", map[string]string{"email": "not-an-email"})
	testutil.AssertErrorCode(t, resp, testutil.ErrorCodeInvalidRequest)
}

func TestMFASetupAllowList(t *testing.T) {
	store := newMemStore()
	h := setupHandler(t, store, time.Now())
	h.AllowedEmails = []string{"ops@firm.test"}
	router := setupRouter(h)

	resp := testutil.MakeAPIRequest(router, http.MethodPost, "/auth/setup", map[string]string{"email": "intruder@firm.test"})
	testutil.AssertErrorCode(t, resp, testutil.ErrorCodeForbidden)

	resp = testutil.MakeAPIRequest(router, http.MethodPost, "/auth/setup", map[string]string{"email": "ops@firm.test"})
	testutil.AssertHTTPStatus(t, resp, http.StatusOK)
}

func TestMFAVerifyWithoutSetup(t *testing.T) {
	h := setupHandler(t, newMemStore(), time.Now())
	router := setupRouter(h)

	resp := testutil.MakeAPIRequest(router, http.MethodPost, "/auth/login", map[string]string{
		"email": "ops@firm.test",
		"token": "123456",
	})
	testutil.AssertErrorCode(t, resp, testutil.ErrorCodeNotFound)
}

func TestMFAVerifyRejectsWrongCode(t *testing.T) {
	store := newMemStore()
	now := time.Now()
	h := setupHandler(t, store, now)
	setupMFA(t, h, store, "ops@firm.test")

	router := setupRouter(h)
	resp := testutil.MakeAPIRequest(router, http.MethodPost, "/auth/login", map[string]string{
		"email": "ops@firm.test",
		"token": "000000",
	})
	testutil.AssertErrorCode(t, resp, testutil.ErrorCodeUnauthorized)
}

func TestMFAVerifyRejectsCodeFromOtherSecret(t *testing.T) {
	store := newMemStore()
	now := time.Now()
	h := setupHandler(t, store, now)
	setupMFA(t, h, store, "ops@firm.test")

	otherSecret := setupMFA(t, h, store, "other@firm.test")
	code, err := totp.GenerateCode(otherSecret, now)
	if err != nil {
		t.Fatalf("generate code: %v", err)
	}

	router := setupRouter(h)
	resp := testutil.MakeAPIRequest(router, http.MethodPost, "/auth/login", map[string]string{
		"email": "ops@firm.test",
		"token": code,
	})
	testutil.AssertErrorCode(t, resp, testutil.ErrorCodeUnauthorized)
}

func TestMFAResetupInvalidatesOldSecret(t *testing.T) {
	store := newMemStore()
	now := time.Now()
	h := setupHandler(t, store, now)

	oldSecret := setupMFA(t, h, store, "ops@firm.test")
	oldCode, err := totp.GenerateCode(oldSecret, now)
	if err != nil {
		t.Fatalf("generate code: %v", err)
	}

	newSecret := setupMFA(t, h, store, "ops@firm.test")
	if newSecret == oldSecret {
		t.Fatalf("expected re-setup to generate a fresh secret")
	}

	router := setupRouter(h)
	resp := testutil.MakeAPIRequest(router, http.MethodPost, "/auth/login", map[string]string{
		"email": "ops@firm.test",
		"token": oldCode,
	})
	testutil.AssertErrorCode(t, resp, testutil.ErrorCodeUnauthorized)
}

func TestMFAVerifyRejectsReplay(t *testing.T) {
	store := newMemStore()
	now := time.Now()
	h := setupHandler(t, store, now)
	secret := setupMFA(t, h, store, "ops@firm.test")

	code, err := totp.GenerateCode(secret, now)
	if err != nil {
		t.Fatalf("generate code: %v", err)
	}

	router := setupRouter(h)
	body := map[string]string{"email": "ops@firm.test", "token": code}

	resp := testutil.MakeAPIRequest(router, http.MethodPost, "/auth/login", body)
	testutil.AssertHTTPStatus(t, resp, http.StatusOK)

	resp = testutil.MakeAPIRequest(router, http.MethodPost, "/auth/login", body)
	testutil.AssertErrorCode(t, resp, testutil.ErrorCodeUnauthorized)
}

func TestMFAVerifyRateLimited(t *testing.T) {
	store := newMemStore()
	now := time.Now()
	h := setupHandler(t, store, now)
	h.RateLimiter = rate.NewMemory(1, time.Minute)
	router := setupRouter(h)

	body := map[string]string{"email": "ops@firm.test", "token": "123456"}

	resp := testutil.MakeAPIRequest(router, http.MethodPost, "/auth/login", body)
	testutil.AssertErrorCode(t, resp, testutil.ErrorCodeNotFound)

	resp = testutil.MakeAPIRequest(router, http.MethodPost, "/auth/login", body)
	testutil.AssertErrorCode(t, resp, testutil.ErrorCodeRateLimited)
}
