package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/roundtable-run/roundtable/pkg/credential"
	"github.com/roundtable-run/roundtable/pkg/models"
)

const credentialContextKey = "roundtable.credential"

// requireScope returns middleware that extracts a bearer token from the
// Authorization header, verifies it against store, and rejects the
// request unless the resulting credential carries scope. The verified
// credential is stashed in the gin context for handlers that need the
// caller's display name (e.g. defaulting a respond's agent_name).
func requireScope(store *credential.Store, scope models.Scope) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
			return
		}

		cred, err := store.RequireScope(token, scope)
		if err != nil {
			respondError(c, err)
			c.Abort()
			return
		}

		c.Set(credentialContextKey, cred)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if token == "" {
		return "", false
	}
	return token, true
}

// callerCredential returns the credential requireScope stashed for this
// request, or nil if no auth middleware ran (e.g. the unauthenticated
// registration endpoint).
func callerCredential(c *gin.Context) *models.Credential {
	v, ok := c.Get(credentialContextKey)
	if !ok {
		return nil
	}
	cred, _ := v.(*models.Credential)
	return cred
}
