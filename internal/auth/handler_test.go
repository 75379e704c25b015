package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/2beens/liftstats/internal/auth"
	"github.com/2beens/liftstats/internal/instrumentation"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) (*auth.Handler, *auth.Service, redismock.ClientMock) {
	t.Helper()
	service, redisMock := newTestService(t)
	return auth.NewHandler(service, instrumentation.NewTestInstrumentation()), service, redisMock
}

func credentialsJson(t *testing.T, email, password string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	require.NoError(t, err)
	return body
}

func postJson(t *testing.T, target string, body []byte) *http.Request {
	t.Helper()
	req, err := http.NewRequest("POST", target, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHandler_HandleSignup(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.HandleSignup(rec, postJson(t, "/auth/signup",
		credentialsJson(t, "lifter@example.com", "super-secret-pass")))

	require.Equal(t, http.StatusCreated, rec.Code)
	var user auth.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, 1, user.ID)
	assert.Equal(t, "lifter@example.com", user.Email)
	assert.NotContains(t, rec.Body.String(), "password", "hash never leaves the server")

	// duplicate email
	rec = httptest.NewRecorder()
	handler.HandleSignup(rec, postJson(t, "/auth/signup",
		credentialsJson(t, "lifter@example.com", "another-secret")))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandler_HandleSignup_BadRequest(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.HandleSignup(rec, postJson(t, "/auth/signup", []byte(`{not-json`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	handler.HandleSignup(rec, postJson(t, "/auth/signup",
		credentialsJson(t, "lifter@example.com", "short")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_HandleLogin(t *testing.T) {
	handler, service, redisMock := newTestHandler(t)

	user, err := service.Signup(context.Background(), "lifter@example.com", "super-secret-pass")
	require.NoError(t, err)

	redisMock.ExpectSet("liftstats-session||"+testToken, user.ID, auth.DefaultTTL).SetVal("OK")

	rec := httptest.NewRecorder()
	handler.HandleLogin(rec, postJson(t, "/auth/login",
		credentialsJson(t, "lifter@example.com", "super-secret-pass")))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, testToken, resp.Token)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestHandler_HandleLogin_WrongCredentials(t *testing.T) {
	handler, service, _ := newTestHandler(t)

	_, err := service.Signup(context.Background(), "lifter@example.com", "super-secret-pass")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handler.HandleLogin(rec, postJson(t, "/auth/login",
		credentialsJson(t, "lifter@example.com", "wrong-pass")))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	handler.HandleLogin(rec, postJson(t, "/auth/login",
		credentialsJson(t, "", "super-secret-pass")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_HandleLogout(t *testing.T) {
	handler, _, redisMock := newTestHandler(t)

	redisMock.ExpectDel("liftstats-session||" + testToken).SetVal(1)

	req, err := http.NewRequest("POST", "/auth/logout", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testToken)

	rec := httptest.NewRecorder()
	handler.HandleLogout(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "logged-out", rec.Body.String())

	// no token, no logout
	req, err = http.NewRequest("POST", "/auth/logout", nil)
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	handler.HandleLogout(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBearerToken(t *testing.T) {
	mkReq := func(header string) *http.Request {
		req, err := http.NewRequest("GET", "/workouts", nil)
		require.NoError(t, err)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		return req
	}

	assert.Equal(t, "abc123", auth.BearerToken(mkReq("Bearer abc123")))
	assert.Equal(t, "abc123", auth.BearerToken(mkReq("Bearer abc123 ")))
	assert.Empty(t, auth.BearerToken(mkReq("")))
	assert.Empty(t, auth.BearerToken(mkReq("Basic abc123")))
	assert.Empty(t, auth.BearerToken(mkReq("Bearer")))
}
