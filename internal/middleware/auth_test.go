package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func runAuth(t *testing.T, authorization string) (int, echo.Context) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := JWTAuth(testSecret)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})(c)
	if err != nil {
		var httpErr *echo.HTTPError
		require.ErrorAs(t, err, &httpErr)
		return httpErr.Code, c
	}
	return rec.Code, c
}

func TestJWTAuth_ValidToken(t *testing.T) {
	token := signToken(t, testSecret, jwt.MapClaims{
		"sub": "medusa-host",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	code, c := runAuth(t, "Bearer "+token)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "medusa-host", c.Get("caller_id"))
}

func TestJWTAuth_MissingToken(t *testing.T) {
	code, _ := runAuth(t, "")
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestJWTAuth_WrongSecret(t *testing.T) {
	token := signToken(t, "other-secret", jwt.MapClaims{"sub": "x"})
	code, _ := runAuth(t, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestJWTAuth_ExpiredToken(t *testing.T) {
	token := signToken(t, testSecret, jwt.MapClaims{
		"sub": "medusa-host",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	code, _ := runAuth(t, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, code)
}
