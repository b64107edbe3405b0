// README: Actor identity middleware; trusts the gateway-supplied headers.
package middleware

import "github.com/gin-gonic/gin"

const (
	ActorIDKey   = "actor_id"
	ActorRoleKey = "actor_role"
)

// Actor copies X-Actor-ID and X-Actor-Role into the request context. Session
// issuance and verification live in the auth collaborator in front of this
// service; the engine only needs to know who is calling.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ActorIDKey, c.GetHeader("X-Actor-ID"))
		c.Set(ActorRoleKey, c.GetHeader("X-Actor-Role"))
		c.Next()
	}
}
