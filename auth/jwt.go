// Package auth valida los tokens emitidos por el servicio de identidad y
// expone la sesión al resto de handlers. La emisión de tokens no vive aquí.
package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
)

const (
	ctxUserID = "sub"
	ctxRol    = "rol"
)

// Claims son los claims propios de la plataforma.
type Claims struct {
	Sub string `json:"sub"`
	Rol string `json:"rol"`
	jwt.RegisteredClaims
}

// ParseValidate verifica firma y vigencia del token y devuelve sus claims.
func ParseValidate(tokenStr, secret string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return nil, errors.New("invalid token")
	}
	return c, nil
}

// Middleware exige un bearer token válido e inyecta usuario y rol en el
// contexto de la petición.
func Middleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token de acceso requerido"})
			return
		}
		claims, err := ParseValidate(strings.TrimPrefix(h, "Bearer "), secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token inválido o expirado"})
			return
		}
		c.Set(ctxUserID, claims.Sub)
		c.Set(ctxRol, claims.Rol)
		c.Next()
	}
}

// RequireRol corta la petición si el rol autenticado no está en la lista.
func RequireRol(roles ...string) gin.HandlerFunc {
	allowed := map[string]struct{}{}
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		if _, ok := allowed[Rol(c)]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "No tienes permisos para esta operación"})
			return
		}
		c.Next()
	}
}

// UserID devuelve el id del usuario autenticado.
func UserID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

// Rol devuelve el rol del usuario autenticado.
func Rol(c *gin.Context) string {
	return c.GetString(ctxRol)
}
