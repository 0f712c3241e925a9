package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "secreto-de-prueba"

func signToken(t *testing.T, sub, rol string, exp time.Duration) string {
	t.Helper()
	claims := Claims{
		Sub: sub,
		Rol: rol,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(exp)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func TestParseValidate(t *testing.T) {
	// Arrange
	token := signToken(t, "usuario-789", "cliente", time.Hour)

	// Act
	claims, err := ParseValidate(token, testSecret)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "usuario-789", claims.Sub)
	assert.Equal(t, "cliente", claims.Rol)
}

func TestParseValidateExpired(t *testing.T) {
	token := signToken(t, "usuario-789", "cliente", -time.Hour)

	_, err := ParseValidate(token, testSecret)

	assert.Error(t, err)
}

func TestParseValidateWrongSecret(t *testing.T) {
	token := signToken(t, "usuario-789", "cliente", time.Hour)

	_, err := ParseValidate(token, "otro-secreto")

	assert.Error(t, err)
}

func protectedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protegido", Middleware(testSecret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"sub": UserID(c), "rol": Rol(c)})
	})
	r.GET("/solo-comercio", Middleware(testSecret), RequireRol("comercio"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestMiddleware(t *testing.T) {
	r := protectedRouter()
	token := signToken(t, "usuario-789", "cliente", time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/protegido", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "usuario-789")
}

func TestMiddlewareMissingToken(t *testing.T) {
	r := protectedRouter()

	req := httptest.NewRequest(http.MethodGet, "/protegido", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddlewareMalformedToken(t *testing.T) {
	r := protectedRouter()

	req := httptest.NewRequest(http.MethodGet, "/protegido", nil)
	req.Header.Set("Authorization", "Bearer no-es-un-jwt")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRol(t *testing.T) {
	r := protectedRouter()

	// El rol correcto pasa
	token := signToken(t, "comercio-1", "comercio", time.Hour)
	req := httptest.NewRequest(http.MethodGet, "/solo-comercio", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// Otro rol recibe 403
	token = signToken(t, "usuario-789", "cliente", time.Hour)
	req = httptest.NewRequest(http.MethodGet, "/solo-comercio", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
