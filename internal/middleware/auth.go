package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	AuthContextKey = "partner_id"
)

// ErrNoSecret is returned when signing without a configured secret
var ErrNoSecret = errors.New("jwt secret not configured")

// Claims represents JWT claims of a partner allowed to submit jobs
type Claims struct {
	PartnerID string `json:"partner_id"`
	jwt.RegisteredClaims
}

// Authenticator issues and validates partner tokens
type Authenticator struct {
	secret []byte
	issuer string
}

// NewAuthenticator creates an authenticator. An empty secret disables
// authentication.
func NewAuthenticator(secret, issuer string) *Authenticator {
	return &Authenticator{secret: []byte(secret), issuer: issuer}
}

// Enabled reports whether a secret is configured
func (a *Authenticator) Enabled() bool {
	return len(a.secret) > 0
}

// JWTAuth middleware validates bearer tokens. When authentication is
// disabled every request passes.
func (a *Authenticator) JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.Enabled() {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization format"})
			c.Abort()
			return
		}

		claims, err := a.Parse(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set(AuthContextKey, claims.PartnerID)
		c.Next()
	}
}

// Parse validates a token string and returns its claims
func (a *Authenticator) Parse(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.PartnerID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// GenerateToken generates a JWT token for a partner
func (a *Authenticator) GenerateToken(partnerID string, expiresIn time.Duration) (string, error) {
	if !a.Enabled() {
		return "", ErrNoSecret
	}

	now := time.Now()
	claims := Claims{
		PartnerID: partnerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   partnerID,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// GetPartnerID retrieves the partner ID from the context
func GetPartnerID(c *gin.Context) (string, bool) {
	partnerID, exists := c.Get(AuthContextKey)
	if !exists {
		return "", false
	}

	partnerIDStr, ok := partnerID.(string)
	return partnerIDStr, ok
}
