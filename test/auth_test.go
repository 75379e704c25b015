package test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) TestAuth() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	email := gofakeit.Email()
	password := gofakeit.Password(true, true, true, false, false, 12)

	t.Run("signup and login", func(t *testing.T) {
		user := s.doSignup(ctx, t, email, password)
		assert.Positive(t, user.ID)
		assert.Equal(t, strings.ToLower(email), user.Email)

		token := s.doLogin(ctx, t, email, password)
		assert.NotEmpty(t, token)
	})

	t.Run("signup with taken email", func(t *testing.T) {
		resp := s.doRequest(ctx, t, "POST", "/auth/signup", "", credentials{
			Email:    email,
			Password: "some-other-pass",
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("login with bad password", func(t *testing.T) {
		resp := s.doRequest(ctx, t, "POST", "/auth/login", "", credentials{
			Email:    email,
			Password: "bad-password",
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("login with unknown email", func(t *testing.T) {
		resp := s.doRequest(ctx, t, "POST", "/auth/login", "", credentials{
			Email:    "nobody@example.com",
			Password: password,
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("logout kills the session", func(t *testing.T) {
		token := s.doLogin(ctx, t, email, password)

		// the session works ...
		resp := s.doRequest(ctx, t, "GET", "/workouts", token, nil)
		require.NoError(t, resp.Body.Close())
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp = s.doRequest(ctx, t, "POST", "/auth/logout", token, nil)
		require.NoError(t, resp.Body.Close())
		require.Equal(t, http.StatusOK, resp.StatusCode)

		// ... until it does not
		resp = s.doRequest(ctx, t, "GET", "/workouts", token, nil)
		require.NoError(t, resp.Body.Close())
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("no token no workouts", func(t *testing.T) {
		resp := s.doRequest(ctx, t, "GET", "/workouts", "", nil)
		require.NoError(t, resp.Body.Close())
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("rate limiting", func(t *testing.T) {
		// simulate login requests brute force attack
		loginReq := credentials{
			Email:    "brute@force.com",
			Password: "brute-force-pass",
		}

		// config is set to allow 10 login attempts per minute, so after
		// the 10th attempt we should get rejected
		// but first, drop the counter spent by the tests above
		require.NoError(t, s.redisDataCleanup(ctx))

		for i := 1; i <= 15; i++ {
			resp := s.doRequest(ctx, t, "POST", "/auth/login", "", loginReq)

			if i <= 10 {
				require.Equal(t, http.StatusUnauthorized, resp.StatusCode, "iteration: %d", i)
			} else {
				require.Equal(t, http.StatusTooEarly, resp.StatusCode, "iteration: %d", i)
				assert.Contains(t, readBody(t, resp), "retry after", "iteration: %d", i)
			}

			assert.NoError(t, resp.Body.Close())
		}

		require.NoError(t, s.redisDataCleanup(ctx))
	})
}
