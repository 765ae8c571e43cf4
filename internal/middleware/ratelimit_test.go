package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_AllowWithinLimit(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("order-1"), "request %d within limit", i+1)
	}
	assert.False(t, rl.Allow("order-1"), "request over limit")

	// Independent keys get independent buckets.
	assert.True(t, rl.Allow("order-2"))
}

func TestRateLimiter_WindowResets(t *testing.T) {
	rl := NewRateLimiter(1, 30*time.Millisecond)

	assert.True(t, rl.Allow("order-1"))
	assert.False(t, rl.Allow("order-1"))

	time.Sleep(40 * time.Millisecond)
	assert.True(t, rl.Allow("order-1"), "new window admits again")
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(5, 20*time.Millisecond)

	rl.Allow("a")
	rl.Allow("b")
	assert.Equal(t, 2, rl.Len())

	time.Sleep(30 * time.Millisecond)
	rl.Cleanup()
	assert.Equal(t, 0, rl.Len())
}

func TestRateLimiter_LazySweep(t *testing.T) {
	rl := NewRateLimiter(5, 20*time.Millisecond)

	rl.Allow("a")
	rl.Allow("b")

	time.Sleep(30 * time.Millisecond)
	// A normal check triggers the sweep; only the fresh bucket survives.
	rl.Allow("c")
	assert.Equal(t, 1, rl.Len())
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	e := echo.New()

	handler := RateLimit(rl, func(c echo.Context) string {
		return c.Param("orderID")
	})(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	request := func(orderID string) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("orderID")
		c.SetParamValues(orderID)

		err := handler(c)
		if err != nil {
			var httpErr *echo.HTTPError
			require.ErrorAs(t, err, &httpErr)
			return httpErr.Code
		}
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, request("5O190127TN364715T"))
	assert.Equal(t, http.StatusTooManyRequests, request("5O190127TN364715T"))
	assert.Equal(t, http.StatusOK, request("4O190127TN364715T"))
}
