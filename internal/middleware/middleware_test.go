package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(handlers...)
	r.GET("/ping", func(c *gin.Context) {
		subject, _ := c.Get("subject")
		c.JSON(http.StatusOK, gin.H{"subject": subject})
	})
	return r
}

func signed(t *testing.T, secret string, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestAuthMiddleware(t *testing.T) {
	const secret = "test-secret"
	valid := signed(t, secret, jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "ci-bot",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	expired := signed(t, secret, jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "ci-bot",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	wrongKey := signed(t, "other", jwt.SigningMethodHS256, jwt.MapClaims{"sub": "x"})

	tests := []struct {
		name   string
		secret string
		header string
		status int
	}{
		{"disabled", "", "", http.StatusOK},
		{"missing header", secret, "", http.StatusUnauthorized},
		{"wrong scheme", secret, "Basic abc", http.StatusUnauthorized},
		{"garbage", secret, "Bearer not-a-jwt", http.StatusUnauthorized},
		{"wrong key", secret, "Bearer " + wrongKey, http.StatusUnauthorized},
		{"expired", secret, "Bearer " + expired, http.StatusUnauthorized},
		{"valid", secret, "Bearer " + valid, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(AuthMiddleware(tt.secret))
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestAuthMiddleware_SetsSubject(t *testing.T) {
	token := signed(t, "s", jwt.SigningMethodHS256, jwt.MapClaims{"sub": "ci-bot"})
	r := newRouter(AuthMiddleware("s"))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"subject":"ci-bot"}`, w.Body.String())
}

func TestRequestLogger_RequestID(t *testing.T) {
	r := newRouter(RequestLogger())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestCORS(t *testing.T) {
	r := newRouter(CORS("https://ci.example.com"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/ping", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://ci.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	w = httptest.NewRecorder()
	r = newRouter(CORS(""))
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
