package security

import (
	"net/http"
	"strings"
	"time"

	"CSProject/tools/errs"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CtxActingUsername is where downstream handlers read the
// authenticated username from. Authentication itself is external to
// the sync core; this middleware only resolves actingUsername for the
// membership gate.
const CtxActingUsername = "actingUsername"

type claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// MintToken issues a token for username. Used by the dev login
// endpoint and by tests.
func MintToken(secret []byte, username string, expire time.Duration) (string, error) {
	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expire)),
		},
	})
	return t.SignedString(secret)
}

// ParseToken validates the token and returns the username claim.
func ParseToken(secret []byte, token string) (string, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errs.ErrTokenExpired.WrapMsg("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", errs.ErrTokenExpired.WrapMsg("invalid token")
	}
	if c.Username == "" {
		return "", errs.ErrTokenExpired.WrapMsg("token has no username")
	}
	return c.Username, nil
}

// Middleware resolves the acting username from Authorization: Bearer.
func Middleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		var token string
		if authz := strings.TrimSpace(c.GetHeader("Authorization")); authz != "" {
			if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
				token = strings.TrimSpace(authz[len("bearer "):])
			}
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrTokenExpired)
			return
		}
		username, err := ParseToken(secret, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrTokenExpired)
			return
		}
		c.Set(CtxActingUsername, username)
		c.Next()
	}
}

// ActingUsername reads the resolved username off the request context.
func ActingUsername(c *gin.Context) string {
	return c.GetString(CtxActingUsername)
}
