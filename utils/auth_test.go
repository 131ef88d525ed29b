package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("admin123")
	require.NoError(t, err)
	assert.NotEqual(t, "admin123", hash)
	assert.True(t, CheckPasswordHash("admin123", hash))
	assert.False(t, CheckPasswordHash("admin124", hash))
}

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken(testSecret, 1, 42, "staff", "shop_staff")
	require.NoError(t, err)

	claims, err := ParseToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "staff", claims.Username)
	assert.Equal(t, "shop_staff", claims.Role)
	assert.NotEmpty(t, claims.ID)

	_, err = ParseToken("other-secret", token)
	assert.Error(t, err)

	_, err = GenerateToken("", 1, 42, "staff", "shop_staff")
	assert.Error(t, err)
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	valid, err := GenerateToken(testSecret, 1, 7, "admin", "admin")
	require.NoError(t, err)
	noSubject, err := GenerateToken(testSecret, 1, 0, "admin", "admin")
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		cookie     string
		wantStatus int
	}{
		{"bearer header", "Bearer " + valid, "", http.StatusOK},
		{"bare header", valid, "", http.StatusOK},
		{"cookie", "", valid, http.StatusOK},
		{"missing", "", "", http.StatusUnauthorized},
		{"garbage", "Bearer nope", "", http.StatusUnauthorized},
		{"zero user id", "Bearer " + noSubject, "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/me", AuthMiddleware(testSecret), func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"userId": c.GetUint("userId")})
			})

			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "token", Value: tt.cookie})
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.JSONEq(t, `{"userId": 7}`, w.Body.String())
			}
		})
	}
}
