package middleware

import (
	"context"
	"net/http"
	"sync"

	"posadmin/internal/dto"
	"posadmin/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RouteNames maps "METHOD /full/path" to a stable route name so middleware
// can match routes by name instead of by URL.
type RouteNames struct {
	mu    sync.RWMutex
	names map[string]string
}

func NewRouteNames() *RouteNames {
	return &RouteNames{names: make(map[string]string)}
}

func (r *RouteNames) Add(method, fullPath, name string) {
	r.mu.Lock()
	r.names[method+" "+fullPath] = name
	r.mu.Unlock()
}

// Of returns the name of the route serving c, or "".
func (r *RouteNames) Of(c *gin.Context) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.names[c.Request.Method+" "+c.FullPath()]
}

// ShiftChecker reports whether a user currently has an open shift.
type ShiftChecker interface {
	HasOpenShift(ctx context.Context, userID uuid.UUID) (bool, error)
}

// ShiftExempt are the routes a cashier may reach without an open shift.
var ShiftExempt = map[string]bool{
	"shifts.open":   true,
	"shifts.store":  true,
	"shifts.close":  true,
	"shifts.update": true,
	"logout":        true,
}

// ShiftGate sends cashiers without an open shift to the open-shift screen.
// Other roles pass through untouched.
func ShiftGate(checker ShiftChecker, names *RouteNames) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil || claims.Role != string(model.RoleCashier) || ShiftExempt[names.Of(c)] {
			c.Next()
			return
		}
		uid, err := uuid.Parse(claims.UserID)
		if err != nil {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		open, err := checker.HasOpenShift(c.Request.Context(), uid)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		if !open {
			c.AbortWithStatusJSON(http.StatusConflict, dto.Failure("Please open a shift first.", "/shifts/open"))
			return
		}
		c.Next()
	}
}
