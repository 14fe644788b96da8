package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestRateLimiterRejectsAfterBurst(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 2)
	rl.now = func() time.Time { return now }

	r := gin.New()
	r.Use(rl.Middleware())
	r.POST("/webhook", func(c *gin.Context) { c.Status(http.StatusAccepted) })

	do := func() int {
		req := httptest.NewRequest(http.MethodPost, "/webhook", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 2; i++ {
		if got := do(); got != http.StatusAccepted {
			t.Fatalf("request %d: want=%d got=%d", i, http.StatusAccepted, got)
		}
	}
	if got := do(); got != http.StatusTooManyRequests {
		t.Fatalf("over burst: want=%d got=%d", http.StatusTooManyRequests, got)
	}
	now = now.Add(time.Second)
	if got := do(); got != http.StatusAccepted {
		t.Fatalf("after refill: want=%d got=%d", http.StatusAccepted, got)
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(NewRateLimiter(0, 0).Middleware())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 50; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: want=200 got=%d", i, rec.Code)
		}
	}
}
