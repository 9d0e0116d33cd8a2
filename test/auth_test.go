package test

import (
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"primetrade/internal/config"
)

func TestRegister(t *testing.T) {
	app := CreateTestApp()

	email := uniqueEmail("register")
	resp := doJSON(t, app, "POST", "/api/v1/auth/register", "", map[string]string{
		"name":     "Register Test",
		"email":    email,
		"password": "secret123",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	data, ok := body["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, email, data["email"])
	assert.Equal(t, "user", data["role"])
}

func TestRegisterDuplicateEmail(t *testing.T) {
	app := CreateTestApp()

	email := uniqueEmail("dup")
	registerUser(t, app, "First", email, "secret123")

	resp := doJSON(t, app, "POST", "/api/v1/auth/register", "", map[string]string{
		"name":     "Second",
		"email":    email,
		"password": "secret123",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "User already exists", body["message"])
}

func TestRegisterValidation(t *testing.T) {
	app := CreateTestApp()

	// Malformed email
	resp := doJSON(t, app, "POST", "/api/v1/auth/register", "", map[string]string{
		"name":     "Bad Email",
		"email":    "not-an-email",
		"password": "secret123",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Password too short
	resp = doJSON(t, app, "POST", "/api/v1/auth/register", "", map[string]string{
		"name":     "Short Pw",
		"email":    uniqueEmail("shortpw"),
		"password": "abc",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// A client may send a role at registration; it must not stick. Accepting it
// would be an open privilege escalation.
func TestRegisterIgnoresSuppliedRole(t *testing.T) {
	app := CreateTestApp()

	email := uniqueEmail("escalate")
	resp := doJSON(t, app, "POST", "/api/v1/auth/register", "", map[string]string{
		"name":     "Wannabe Admin",
		"email":    email,
		"password": "secret123",
		"role":     "superadmin",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "user", data["role"])

	// The account really is a plain user: the admin-only user list refuses it.
	token := loginUser(t, app, email, "secret123")
	listResp := doJSON(t, app, "GET", "/api/v1/auth/users", token, nil)
	defer listResp.Body.Close()
	assert.Equal(t, http.StatusForbidden, listResp.StatusCode)
}

func TestLogin(t *testing.T) {
	app := CreateTestApp()

	email := uniqueEmail("login")
	userID := registerUser(t, app, "Login Test", email, "password123")

	resp := doJSON(t, app, "POST", "/api/v1/auth/login", "", map[string]string{
		"email":    email,
		"password": "password123",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	data, ok := body["data"].(map[string]interface{})
	require.True(t, ok)
	require.NotEmpty(t, data["token"])

	user, ok := data["user"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(userID), user["id"])
	assert.Equal(t, email, user["email"])
}

func TestLoginWrongPassword(t *testing.T) {
	app := CreateTestApp()

	email := uniqueEmail("wrongpw")
	registerUser(t, app, "Wrong Creds", email, "password123")

	resp := doJSON(t, app, "POST", "/api/v1/auth/login", "", map[string]string{
		"email":    email,
		"password": "not-the-password",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "Invalid credentials", body["message"])
}

func TestLoginUnknownEmail(t *testing.T) {
	app := CreateTestApp()

	resp := doJSON(t, app, "POST", "/api/v1/auth/login", "", map[string]string{
		"email":    uniqueEmail("nobody"),
		"password": "whatever1",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// The login token resolves back to the same user on protected routes.
func TestTokenRoundTrip(t *testing.T) {
	app := CreateTestApp()

	email := uniqueEmail("roundtrip")
	registerUser(t, app, "Round Trip", email, "password123")
	token := loginUser(t, app, email, "password123")

	resp := doJSON(t, app, "GET", "/api/v1/tasks", token, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestProtectedRouteRejectsBadTokens(t *testing.T) {
	app := CreateTestApp()

	// No token
	resp := doJSON(t, app, "GET", "/api/v1/tasks", "", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Garbage token
	resp = doJSON(t, app, "GET", "/api/v1/tasks", "not.a.token", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Token signed with the wrong secret
	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 1,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	forgedString, err := forged.SignedString([]byte("some-other-secret"))
	require.NoError(t, err)
	resp = doJSON(t, app, "GET", "/api/v1/tasks", forgedString, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestExpiredTokenRejected(t *testing.T) {
	app := CreateTestApp()

	email := uniqueEmail("expired")
	userID := registerUser(t, app, "Expired", email, "password123")

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(-time.Minute).Unix(),
	})
	expiredString, err := expired.SignedString(config.SecretKey)
	require.NoError(t, err)

	resp := doJSON(t, app, "GET", "/api/v1/tasks", expiredString, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// A valid token whose user has since been deleted no longer authenticates.
func TestTokenForDeletedUserRejected(t *testing.T) {
	app := CreateTestApp()

	email := uniqueEmail("ghost")
	userID := registerUser(t, app, "Ghost", email, "password123")
	token := loginUser(t, app, email, "password123")

	// One authenticated request first, so the verification cache holds the
	// user and deletion must invalidate it.
	warmup := doJSON(t, app, "GET", "/api/v1/tasks", token, nil)
	warmup.Body.Close()
	require.Equal(t, http.StatusOK, warmup.StatusCode)

	adminEmail := uniqueEmail("reaper")
	seedUser(t, "Reaper", adminEmail, "adminpass1", "admin")
	adminToken := loginUser(t, app, adminEmail, "adminpass1")

	resp := doJSON(t, app, "DELETE", userPath(userID), adminToken, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, "GET", "/api/v1/tasks", token, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
