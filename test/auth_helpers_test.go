package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/2beens/liftstats/internal/auth"

	"github.com/stretchr/testify/require"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *IntegrationTestSuite) doRequest(
	ctx context.Context,
	t *testing.T,
	method, path, token string,
	payload any,
) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		payloadJson, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(payloadJson)
	}

	req, err := http.NewRequestWithContext(ctx, method, serverEndpoint+path, body)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.httpClient.Do(req)
	require.NoError(t, err)
	return resp
}

func (s *IntegrationTestSuite) doSignup(ctx context.Context, t *testing.T, email, password string) auth.User {
	t.Helper()

	resp := s.doRequest(ctx, t, "POST", "/auth/signup", "", credentials{
		Email:    email,
		Password: password,
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var user auth.User
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&user))
	return user
}

func (s *IntegrationTestSuite) doLogin(ctx context.Context, t *testing.T, email, password string) string {
	t.Helper()

	resp := s.doRequest(ctx, t, "POST", "/auth/login", "", credentials{
		Email:    email,
		Password: password,
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var loginResp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&loginResp))
	require.NotEmpty(t, loginResp.Token)
	return loginResp.Token
}

// signupAndLogin registers a fresh account and returns a session token for it
func (s *IntegrationTestSuite) signupAndLogin(ctx context.Context, t *testing.T, email, password string) string {
	t.Helper()
	s.doSignup(ctx, t, email, password)
	return s.doLogin(ctx, t, email, password)
}

func (s *IntegrationTestSuite) wipeData(ctx context.Context, t *testing.T, token string) {
	t.Helper()
	resp := s.doRequest(ctx, t, "POST", "/dev/wipe", token, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(respBytes)
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out),
		fmt.Sprintf("decode response body for %s", resp.Request.URL.Path))
	return out
}
