package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
)

// actorIDKey is the key used to store the acting identity in the Gin context.
// Using a custom type prevents collisions.
const actorIDKey = contextKey("actorID")

// DefaultActorID attributes writes that arrive without an explicit actor.
const DefaultActorID = "system"

// ActorHeader names the request header carrying the acting identity.
const ActorHeader = "X-Actor-ID"

// ActorAttribution captures the caller-declared identity from the actor
// header and stores it for audit attribution. Requests without the header
// are attributed to the system actor.
func ActorAttribution() gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID := c.GetHeader(ActorHeader)
		if actorID == "" {
			actorID = DefaultActorID
		}

		c.Set(string(actorIDKey), actorID)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), actorIDKey, actorID))

		c.Next()
	}
}

// GetActorIDFromContext retrieves the acting identity from the Gin context.
// It returns the actor ID and a boolean indicating if it was found.
func GetActorIDFromContext(c *gin.Context) (string, bool) {
	actorIDVal, exists := c.Get(string(actorIDKey))
	if !exists {
		// check in the request context as well
		actorIDCtxVal := c.Request.Context().Value(actorIDKey)
		if actorIDCtxVal != nil {
			return actorIDCtxVal.(string), true
		}
		return "", false
	}

	actorID, ok := actorIDVal.(string)
	if !ok {
		// This should not happen if the attribution middleware sets it correctly
		return "", false
	}

	return actorID, true
}
