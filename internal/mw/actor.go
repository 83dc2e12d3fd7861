package mw

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hotel-booking-backend/internal/parse"
)

// Identity headers set by the upstream auth gateway.
const (
	UserIDHeader = "X-User-ID"
	RolesHeader  = "X-User-Roles"
)

const actorKey = "actor"

// Role names understood by the API.
const (
	RoleSuperAdmin   = "super_admin"
	RoleAdmin        = "admin"
	RoleReceptionist = "receptionist"
)

var (
	StaffRoles = []string{RoleSuperAdmin, RoleAdmin, RoleReceptionist}
	AdminRoles = []string{RoleSuperAdmin, RoleAdmin}
)

// Actor is the caller of a request. The zero Actor is anonymous.
type Actor struct {
	UserID int64
	Roles  []string
}

// Authenticated reports whether the request carried a user id.
func (a Actor) Authenticated() bool {
	return a.UserID > 0
}

// HasAnyRole reports whether the actor holds one of roles.
func (a Actor) HasAnyRole(roles ...string) bool {
	for _, have := range a.Roles {
		for _, want := range roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// IsStaff reports whether the actor is hotel staff.
func (a Actor) IsStaff() bool { return a.HasAnyRole(StaffRoles...) }

// IsAdmin reports whether the actor is an administrator.
func (a Actor) IsAdmin() bool { return a.HasAnyRole(AdminRoles...) }

// Identify reads the identity headers into the request's Actor. A malformed
// user id is rejected rather than treated as anonymous.
func Identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		var actor Actor
		if raw := c.GetHeader(UserIDHeader); raw != "" {
			id, err := parse.ID(raw)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid " + UserIDHeader + " header"})
				return
			}
			actor.UserID = id
			actor.Roles = parse.Roles(c.GetHeader(RolesHeader))
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

// ActorFrom returns the Actor stored by Identify.
func ActorFrom(c *gin.Context) Actor {
	if v, ok := c.Get(actorKey); ok {
		if a, ok := v.(Actor); ok {
			return a
		}
	}
	return Actor{}
}

// RequireUser rejects anonymous requests with 401.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ActorFrom(c).Authenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}

// RequireRoles rejects requests whose actor holds none of roles.
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := ActorFrom(c)
		if !actor.Authenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		if !actor.HasAnyRole(roles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
			return
		}
		c.Next()
	}
}
