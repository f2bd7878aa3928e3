package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"

	claimsKey = "auth.claims"
)

// Claims is the token payload issued by the auth service.
type Claims struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// AuthMiddleware verifies an HS256 bearer token and stores its claims on the
// gin context.
func AuthMiddleware(secret []byte) gin.HandlerFunc {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			abortMessage(c, http.StatusUnauthorized, "Authentication required")
			return
		}

		claims := &Claims{}
		token, err := parser.ParseWithClaims(strings.TrimPrefix(authHeader, "Bearer "), claims, func(*jwt.Token) (interface{}, error) {
			return secret, nil
		})
		if err != nil || !token.Valid || claims.ID <= 0 {
			abortMessage(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireRole must run after AuthMiddleware.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := currentUser(c)
		if err != nil {
			abortMessage(c, http.StatusUnauthorized, "Authentication required")
			return
		}
		for _, role := range roles {
			if claims.Role == role {
				c.Next()
				return
			}
		}
		abortMessage(c, http.StatusForbidden, "Access denied")
	}
}

var errNoClaims = errors.New("no authenticated user")

func currentUser(c *gin.Context) (*Claims, error) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, errNoClaims
	}
	claims, ok := v.(*Claims)
	if !ok {
		return nil, errNoClaims
	}
	return claims, nil
}
