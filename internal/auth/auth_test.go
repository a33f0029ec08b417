package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret-key-with-enough-length"

func newTestManager(t *testing.T) *TokenManager {
	t.Helper()
	m, err := NewTokenManager(testSecret, time.Hour)
	require.NoError(t, err)
	return m
}

func TestNewTokenManager(t *testing.T) {
	_, err := NewTokenManager("", time.Hour)
	assert.Error(t, err)

	m, err := NewTokenManager(testSecret, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTokenTTL, m.ttl)
}

func TestTokenRoundTrip(t *testing.T) {
	m := newTestManager(t)

	token, err := m.GenerateToken("spotter")
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "spotter", claims.Username)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestValidateToken_Rejects(t *testing.T) {
	m := newTestManager(t)

	other, err := NewTokenManager("a-different-secret-of-some-length", time.Hour)
	require.NoError(t, err)
	foreign, err := other.GenerateToken("spotter")
	require.NoError(t, err)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Username: "spotter",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{Username: "spotter"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong secret", foreign},
		{"expired", expired},
		{"none algorithm", unsigned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := m.ValidateToken(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.Nil(t, claims)
		})
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter22", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)

	assert.True(t, CheckPassword(hash, "hunter22"))
	assert.False(t, CheckPassword(hash, "hunter23"))
	assert.False(t, CheckPassword("not-a-hash", "hunter22"))
}

func TestHashPassword_CostFallback(t *testing.T) {
	hash, err := HashPassword("hunter22", 99)
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}

func newProtectedRouter(m *TokenManager) http.Handler {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r := chi.NewRouter()
	r.Use(m.Authenticate)
	r.Get("/open", ok)
	r.With(RequireLogin).Get("/private", ok)
	r.With(RequireSameUser).Get("/user/{username}", ok)
	return r
}

func TestMiddleware(t *testing.T) {
	m := newTestManager(t)
	token, err := m.GenerateToken("spotter")
	require.NoError(t, err)

	router := newProtectedRouter(m)

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"open without token", "/open", "", http.StatusOK},
		{"open with bad token", "/open", "Bearer nope", http.StatusOK},
		{"private without token", "/private", "", http.StatusUnauthorized},
		{"private with bad token", "/private", "Bearer nope", http.StatusUnauthorized},
		{"private with token", "/private", "Bearer " + token, http.StatusOK},
		{"lowercase scheme", "/private", "bearer " + token, http.StatusOK},
		{"bare token", "/private", token, http.StatusOK},
		{"same user", "/user/spotter", "Bearer " + token, http.StatusOK},
		{"other user", "/user/someoneelse", "Bearer " + token, http.StatusUnauthorized},
		{"user without token", "/user/spotter", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusUnauthorized {
				assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())
			}
		})
	}
}
