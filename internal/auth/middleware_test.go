package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.RegisteredClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func newRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/whoami", mw, func(c *gin.Context) {
		caller, ok := CallerID(c.Request.Context())
		if !ok {
			caller = "anonymous"
		}
		c.String(http.StatusOK, caller)
	})
	return router
}

func TestMiddleware(t *testing.T) {
	valid := jwt.RegisteredClaims{
		Subject:   "pilot-7",
		Audience:  jwt.ClaimStrings{"jetscope"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	expired := valid
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	noSubject := valid
	noSubject.Subject = ""
	otherAudience := valid
	otherAudience.Audience = jwt.ClaimStrings{"someone-else"}

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{name: "valid token", header: "Bearer " + signToken(t, testSecret, valid), wantStatus: http.StatusOK, wantBody: "pilot-7"},
		{name: "lowercase scheme", header: "bearer " + signToken(t, testSecret, valid), wantStatus: http.StatusOK, wantBody: "pilot-7"},
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "basic scheme", header: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "empty token", header: "Bearer  ", wantStatus: http.StatusUnauthorized},
		{name: "wrong secret", header: "Bearer " + signToken(t, "other", valid), wantStatus: http.StatusUnauthorized},
		{name: "expired", header: "Bearer " + signToken(t, testSecret, expired), wantStatus: http.StatusUnauthorized},
		{name: "no subject", header: "Bearer " + signToken(t, testSecret, noSubject), wantStatus: http.StatusUnauthorized},
		{name: "wrong audience", header: "Bearer " + signToken(t, testSecret, otherAudience), wantStatus: http.StatusUnauthorized},
	}

	router := newRouter(Middleware(testSecret, "jetscope"))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)

			require.Equal(t, tt.wantStatus, resp.Code)
			if tt.wantBody != "" {
				require.Equal(t, tt.wantBody, resp.Body.String())
			}
		})
	}
}

func TestMiddlewareDisabledWithoutSecret(t *testing.T) {
	router := newRouter(Middleware("", ""))

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "anonymous", resp.Body.String())
}
