package middleware

import (
	"context"
	"net/http"
	"strings"

	"posadmin/internal/apierror"
	"posadmin/internal/model"
	"posadmin/internal/policy"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	ClaimsKey = "claims"

	tokenTypeAccess = "access"
)

// JWTClaims are the custom claims embedded in every token.
type JWTClaims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Denylist reports token ids revoked by logout.
type Denylist interface {
	IsRevoked(ctx context.Context, jti string) bool
}

// JWTAuth validates the Bearer access token on every protected route.
// deny may be nil.
func JWTAuth(secret string, deny Denylist) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Authentication required"))
			return
		}

		tokenStr := strings.TrimPrefix(header, "Bearer ")
		claims := &JWTClaims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})

		if err != nil || !token.Valid || claims.TokenType != tokenTypeAccess {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Invalid or expired token"))
			return
		}
		if _, err := uuid.Parse(claims.UserID); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Invalid or expired token"))
			return
		}
		if deny != nil && claims.ID != "" && deny.IsRevoked(c.Request.Context(), claims.ID) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Token has been revoked"))
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// AccountLookup reports the stored role of an account. ok is false when the
// account no longer exists or has been deactivated.
type AccountLookup interface {
	ActiveRole(ctx context.Context, userID uuid.UUID) (role model.Role, ok bool, err error)
}

// CurrentAccount runs after JWTAuth and replaces the token's role with the
// stored one, so demotions and deactivations apply on the next request.
func CurrentAccount(accounts AccountLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Authentication required"))
			return
		}
		uid, err := uuid.Parse(claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Invalid or expired token"))
			return
		}
		role, ok, err := accounts.ActiveRole(c.Request.Context(), uid)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Account is no longer active"))
			return
		}
		if string(role) != claims.Role {
			live := *claims
			live.Role = string(role)
			c.Set(ClaimsKey, &live)
		}
		c.Next()
	}
}

// RequireRole rejects requests whose JWT role is not in the allowed list.
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[string(r)] = true
	}
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil || !allowed[claims.Role] {
			c.AbortWithStatusJSON(http.StatusForbidden, apierror.New("Insufficient permissions"))
			return
		}
		c.Next()
	}
}

// GetClaims is a helper to retrieve typed claims from the Gin context.
func GetClaims(c *gin.Context) *JWTClaims {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*JWTClaims)
	return claims
}

// ActorFrom builds the policy actor for the authenticated request.
func ActorFrom(c *gin.Context) (policy.Actor, bool) {
	claims := GetClaims(c)
	if claims == nil {
		return policy.Actor{}, false
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return policy.Actor{}, false
	}
	return policy.Actor{ID: id, Role: model.Role(claims.Role)}, true
}
