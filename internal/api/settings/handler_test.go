package settings

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"saas-starter/internal/domain/users"
	"saas-starter/internal/infra/logging"
	"saas-starter/internal/testutils"
)

func setup(t *testing.T, user *users.SessionUser) (*gin.Engine, *testutils.MemStore) {
	t.Helper()
	repo := testutils.NewMemStore()
	h := NewHandler(repo, logging.Discard())

	r := testutils.SetupTestRouter()
	r.Use(func(c *gin.Context) {
		if user != nil {
			c.Set(users.SessionKey, user)
		}
		c.Next()
	})
	r.PUT("/api/settings/profile", h.UpdateProfile)
	r.PUT("/api/settings/password", h.ChangePassword)
	r.GET("/api/settings/notifications", h.GetNotifications)
	r.PUT("/api/settings/notifications", h.UpdateNotifications)
	return r, repo
}

func send(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) result {
	t.Helper()
	var res result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return res
}

var ada = &users.SessionUser{ID: "u1", Email: "ada@example.com"}

func withPassword(t *testing.T, repo *testutils.MemStore, pw string) {
	t.Helper()
	p := repo.AddProfile("u1", "ada@example.com")
	hash, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	require.NoError(t, err)
	h := string(hash)
	p.PasswordHash = &h
}

func TestSettingsRequireSession(t *testing.T) {
	r, _ := setup(t, nil)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPut, "/api/settings/profile"},
		{http.MethodPut, "/api/settings/password"},
		{http.MethodGet, "/api/settings/notifications"},
		{http.MethodPut, "/api/settings/notifications"},
	} {
		w := send(r, tc.method, tc.path, `{}`)
		assert.Equal(t, http.StatusUnauthorized, w.Code, tc.path)
		assert.Equal(t, "You must be logged in.", decode(t, w).Error, tc.path)
	}
}

func TestUpdateProfile(t *testing.T) {
	r, repo := setup(t, ada)
	repo.AddProfile("u1", "ada@example.com")

	w := send(r, http.MethodPut, "/api/settings/profile", `{"first_name":"  Ada ","last_name":"Lovelace"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Profile updated successfully.", decode(t, w).Message)

	p := repo.Profiles["u1"]
	require.NotNil(t, p.FullName)
	assert.Equal(t, "Ada", *p.FirstName)
	assert.Equal(t, "Ada Lovelace", *p.FullName)
}

func TestUpdateProfileValidation(t *testing.T) {
	r, repo := setup(t, ada)
	repo.AddProfile("u1", "ada@example.com")

	w := send(r, http.MethodPut, "/api/settings/profile", `{"first_name":"   ","last_name":""}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	res := decode(t, w)
	assert.False(t, res.Success)
	assert.Equal(t, "Please correct the highlighted fields.", res.Error)
	assert.Equal(t, "First name is required", res.FieldErrors["first_name"])
	assert.Equal(t, "Last name is required", res.FieldErrors["last_name"])
	assert.Nil(t, repo.Profiles["u1"].FullName)
}

func TestChangePassword(t *testing.T) {
	r, repo := setup(t, ada)
	withPassword(t, repo, "Tom&Jerry42")

	w := send(r, http.MethodPut, "/api/settings/password",
		`{"current_password":"Tom&Jerry42","new_password":"a<b>C12345","confirm_password":"a<b>C12345"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Password updated successfully.", decode(t, w).Message)

	stored := *repo.Profiles["u1"].PasswordHash
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored), []byte("a<b>C12345")))
}

func TestChangePasswordRejectsWrongCurrent(t *testing.T) {
	r, repo := setup(t, ada)
	withPassword(t, repo, "Tom&Jerry42")
	before := *repo.Profiles["u1"].PasswordHash

	w := send(r, http.MethodPut, "/api/settings/password",
		`{"current_password":"Tom&Jerry43","new_password":"Secret123","confirm_password":"Secret123"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	res := decode(t, w)
	assert.Equal(t, "Current password is incorrect.", res.Error)
	assert.Equal(t, "Current password is incorrect.", res.FieldErrors["current_password"])
	assert.Equal(t, before, *repo.Profiles["u1"].PasswordHash)
}

func TestChangePasswordGoogleAccount(t *testing.T) {
	r, repo := setup(t, ada)
	repo.AddProfile("u1", "ada@example.com")

	w := send(r, http.MethodPut, "/api/settings/password",
		`{"current_password":"whatever","new_password":"Secret123","confirm_password":"Secret123"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, repo.Profiles["u1"].PasswordHash)
}

func TestValidatePasswordChange(t *testing.T) {
	tests := []struct {
		name                   string
		current, next, confirm string
		want                   map[string]string
	}{
		{"valid", "oldpass", "Secret123", "Secret123", map[string]string{}},
		{"short current", "abc", "Secret123", "Secret123", map[string]string{"current_password": "Current password is required"}},
		{"too short", "oldpass", "Ab1", "Ab1", map[string]string{
			"new_password":     "Password must be at least 6 characters",
			"confirm_password": "Confirm your new password",
		}},
		{"no uppercase", "oldpass", "secret123", "secret123", map[string]string{"new_password": "Include at least one uppercase letter"}},
		{"no digit", "oldpass", "SecretPass", "SecretPass", map[string]string{"new_password": "Include at least one number"}},
		{"mismatch", "oldpass", "Secret123", "Secret124", map[string]string{"confirm_password": "Passwords do not match"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, validatePasswordChange(tt.current, tt.next, tt.confirm))
		})
	}
}

func TestNotificationPreferences(t *testing.T) {
	r, repo := setup(t, ada)

	w := send(r, http.MethodGet, "/api/settings/notifications", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"marketing_emails":false,"payment_alerts":true,"security_alerts":true}`,
		pick(t, w.Body.Bytes(), "marketing_emails", "payment_alerts", "security_alerts"))

	w = send(r, http.MethodPut, "/api/settings/notifications",
		`{"marketing_emails":true,"payment_alerts":false,"security_alerts":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Notification preferences saved.", decode(t, w).Message)

	saved := repo.Preferences["u1"]
	require.NotNil(t, saved)
	assert.True(t, saved.MarketingEmails)
	assert.False(t, saved.PaymentAlerts)

	// A second save overwrites the same row.
	w = send(r, http.MethodPut, "/api/settings/notifications",
		`{"marketing_emails":false,"payment_alerts":true,"security_alerts":false}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, repo.Preferences, 1)
	assert.True(t, repo.Preferences["u1"].PaymentAlerts)
	assert.False(t, repo.Preferences["u1"].SecurityAlerts)
}

func TestUpdateNotificationsStoreError(t *testing.T) {
	r, repo := setup(t, ada)
	repo.Fail["UpsertNotificationPreferences"] = errors.New("db down")

	w := send(r, http.MethodPut, "/api/settings/notifications", `{"payment_alerts":true}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.False(t, decode(t, w).Success)
}

func TestUpdateNotificationsMalformed(t *testing.T) {
	r, _ := setup(t, ada)

	w := send(r, http.MethodPut, "/api/settings/notifications", `{"payment_alerts":"maybe"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid notification settings.", decode(t, w).Error)
}

func pick(t *testing.T, raw []byte, keys ...string) string {
	t.Helper()
	var all map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &all))
	out := map[string]interface{}{}
	for _, k := range keys {
		out[k] = all[k]
	}
	b, err := json.Marshal(out)
	require.NoError(t, err)
	return string(b)
}
